package model

import (
	"bytes"
	"encoding/json"
	"math"
)

// Metadata is the per-type payload attached to an AuditEvent.
// Every variant flattens to a map of primitive values.
type Metadata interface {
	Fields() map[string]any
}

// EvaluationMetadata accompanies EVALUATION_CREATED and EVALUATION_OPENED.
type EvaluationMetadata struct {
	Source string `json:"source,omitempty"`
	OrgID  string `json:"orgId,omitempty"`
}

// Fields implements Metadata.
func (m EvaluationMetadata) Fields() map[string]any {
	f := map[string]any{}
	putString(f, "source", m.Source)
	putString(f, "orgId", m.OrgID)
	return f
}

// DecisionMetadata accompanies COORDINATOR_DECISION_SET.
type DecisionMetadata struct {
	Status        DecisionStatus `json:"status"`
	DecidedAt     string         `json:"decidedAt,omitempty"`
	DecidedByID   string         `json:"decidedById,omitempty"`
	DecidedByName string         `json:"decidedByName,omitempty"`
}

// Fields implements Metadata.
func (m DecisionMetadata) Fields() map[string]any {
	f := map[string]any{"status": string(m.Status)}
	putString(f, "decidedAt", m.DecidedAt)
	putString(f, "decidedById", m.DecidedByID)
	putString(f, "decidedByName", m.DecidedByName)
	return f
}

// CommentMetadata accompanies COORDINATOR_COMMENT_SET. The comment text is not stored.
type CommentMetadata struct {
	HasComment bool `json:"hasComment"`
	Length     int  `json:"length"`
}

// Fields implements Metadata.
func (m CommentMetadata) Fields() map[string]any {
	return map[string]any{"hasComment": m.HasComment, "length": m.Length}
}

// ReportMetadata accompanies REPORT_PDF_DOWNLOADED and REPORT_PDF_UPLOADED.
type ReportMetadata struct {
	Source   string `json:"source,omitempty"`
	Download bool   `json:"download,omitempty"`
	Upload   bool   `json:"upload,omitempty"`
}

// Fields implements Metadata.
func (m ReportMetadata) Fields() map[string]any {
	f := map[string]any{}
	putString(f, "source", m.Source)
	if m.Download {
		f["download"] = true
	}
	if m.Upload {
		f["upload"] = true
	}
	return f
}

// AnalysisMetadata accompanies the AI_ANALYSIS_* events.
type AnalysisMetadata struct {
	Risk         string   `json:"risk,omitempty"`
	Verdict      string   `json:"verdict,omitempty"`
	OverallScore *float64 `json:"overallScore,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Fields implements Metadata.
func (m AnalysisMetadata) Fields() map[string]any {
	f := map[string]any{}
	putString(f, "risk", m.Risk)
	putString(f, "verdict", m.Verdict)
	if m.OverallScore != nil && !math.IsNaN(*m.OverallScore) && !math.IsInf(*m.OverallScore, 0) {
		f["overallScore"] = *m.OverallScore
	}
	putString(f, "error", m.Error)
	return f
}

// SessionMetadata accompanies SESSION_LOGIN and SESSION_LOGOUT.
type SessionMetadata struct {
	Source string `json:"source,omitempty"`
}

// Fields implements Metadata.
func (m SessionMetadata) Fields() map[string]any {
	f := map[string]any{}
	putString(f, "source", m.Source)
	return f
}

// GenericMetadata is the open fallback for unknown types or payloads that do not
// fit their typed variant. Values are restricted to string, float64, bool and nil.
type GenericMetadata map[string]any

// NewGenericMetadata copies the primitive entries of in. Integers become float64;
// nested objects and arrays are dropped.
func NewGenericMetadata(in map[string]any) GenericMetadata {
	out := make(GenericMetadata, len(in))
	for k, v := range in {
		if p, ok := primitive(v); ok {
			out[k] = p
		}
	}
	return out
}

// Fields implements Metadata.
func (m GenericMetadata) Fields() map[string]any {
	f := make(map[string]any, len(m))
	for k, v := range m {
		f[k] = v
	}
	return f
}

// DecodeMetadata picks the variant for t and decodes raw strictly into it,
// falling back to GenericMetadata when the payload does not fit. It returns nil
// for absent, null or non-object payloads.
func DecodeMetadata(t EventType, raw json.RawMessage) Metadata {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}

	switch t {
	case EventEvaluationCreated, EventEvaluationOpened:
		var m EvaluationMetadata
		if decodeStrict(raw, &m) {
			return m
		}
	case EventCoordinatorDecision:
		var m DecisionMetadata
		if decodeStrict(raw, &m) && m.Status.Valid() {
			return m
		}
	case EventCoordinatorComment:
		var m CommentMetadata
		if decodeStrict(raw, &m) {
			return m
		}
	case EventReportPDFDownloaded, EventReportPDFUploaded:
		var m ReportMetadata
		if decodeStrict(raw, &m) {
			return m
		}
	case EventAIAnalysisStarted, EventAIAnalysisFinished, EventAIAnalysisFailed:
		var m AnalysisMetadata
		if decodeStrict(raw, &m) {
			return m
		}
	case EventSessionLogin, EventSessionLogout:
		var m SessionMetadata
		if decodeStrict(raw, &m) {
			return m
		}
	}

	var bag map[string]any
	if err := json.Unmarshal(raw, &bag); err != nil {
		return nil
	}
	return NewGenericMetadata(bag)
}

func decodeStrict(raw []byte, v any) bool {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v) == nil
}

func primitive(v any) (any, bool) {
	switch x := v.(type) {
	case nil, string, bool:
		return x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, false
		}
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return nil, false
}

func putString(f map[string]any, key, val string) {
	if val != "" {
		f[key] = val
	}
}

// CloneMetadata returns a copy of m that shares no mutable state with it.
func CloneMetadata(m Metadata) Metadata {
	switch v := m.(type) {
	case GenericMetadata:
		return NewGenericMetadata(v)
	case AnalysisMetadata:
		if v.OverallScore != nil {
			s := *v.OverallScore
			v.OverallScore = &s
		}
		return v
	}
	return m
}
