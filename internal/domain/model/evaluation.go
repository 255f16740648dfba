package model

import (
	"encoding/json"
	"math"
	"time"
)

// DecisionStatus is the coordinator's human judgment on an evaluation.
type DecisionStatus string

// Decision statuses. The empty value means the collaborator reported none.
const (
	DecisionPending  DecisionStatus = "PENDIENTE"
	DecisionApproved DecisionStatus = "APROBADO"
	DecisionRejected DecisionStatus = "RECHAZADO"
)

// Valid reports whether s is one of the three decision statuses.
func (s DecisionStatus) Valid() bool {
	switch s {
	case DecisionPending, DecisionApproved, DecisionRejected:
		return true
	}
	return false
}

// Candidate is the candidate snapshot captured when the evaluation was created.
type Candidate struct {
	FullName            string `json:"fullName,omitempty"`
	SchoolNameSnapshot  string `json:"schoolNameSnapshot,omitempty"`
	ProgramNameSnapshot string `json:"programNameSnapshot,omitempty"`
}

// EvaluationSummary is the read-only projection served by the evaluation API.
type EvaluationSummary struct {
	ID                         string         `json:"id"`
	CreatedAt                  string         `json:"createdAt,omitempty"`
	Candidate                  *Candidate     `json:"candidate,omitempty"`
	AITeachingSuitabilityScore *float64       `json:"aiTeachingSuitabilityScore,omitempty"`
	AIFinalRecommendation      *string        `json:"aiFinalRecommendation,omitempty"`
	CoordinatorDecisionStatus  DecisionStatus `json:"coordinatorDecisionStatus,omitempty"`
}

// Score returns the suitability score for aggregation: nil, NaN and Inf count as 0.
func (e EvaluationSummary) Score() float64 {
	if e.AITeachingSuitabilityScore == nil {
		return 0
	}
	s := *e.AITeachingSuitabilityScore
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// ScoreForDisplay returns Score clamped to [0,100].
func (e EvaluationSummary) ScoreForDisplay() float64 {
	return math.Max(0, math.Min(100, e.Score()))
}

// Verdict returns the AI recommendation or "".
func (e EvaluationSummary) Verdict() string {
	if e.AIFinalRecommendation == nil {
		return ""
	}
	return *e.AIFinalRecommendation
}

// CandidateName returns the candidate full name, tolerating a nil candidate.
func (e EvaluationSummary) CandidateName() string {
	if e.Candidate == nil {
		return ""
	}
	return e.Candidate.FullName
}

// School returns the raw school snapshot.
func (e EvaluationSummary) School() string {
	if e.Candidate == nil {
		return ""
	}
	return e.Candidate.SchoolNameSnapshot
}

// Program returns the raw program snapshot.
func (e EvaluationSummary) Program() string {
	if e.Candidate == nil {
		return ""
	}
	return e.Candidate.ProgramNameSnapshot
}

// CreatedTime parses CreatedAt; missing or unparseable values yield the zero time.
func (e EvaluationSummary) CreatedTime() time.Time {
	t, err := ParseTime(e.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Clone returns a deep copy of e.
func (e EvaluationSummary) Clone() EvaluationSummary {
	out := e
	if e.Candidate != nil {
		c := *e.Candidate
		out.Candidate = &c
	}
	if e.AITeachingSuitabilityScore != nil {
		s := *e.AITeachingSuitabilityScore
		out.AITeachingSuitabilityScore = &s
	}
	if e.AIFinalRecommendation != nil {
		v := *e.AIFinalRecommendation
		out.AIFinalRecommendation = &v
	}
	return out
}

// EvaluationDetail is the full record, including raw form and AI payloads.
type EvaluationDetail struct {
	EvaluationSummary
	CoordinatorComment string          `json:"coordinatorComment,omitempty"`
	AIOverallComment   string          `json:"aiOverallComment,omitempty"`
	FormRawData        json.RawMessage `json:"formRawData,omitempty"`
	AIRawJSON          json.RawMessage `json:"aiRawJson,omitempty"`
}

// DecisionPayload is the body submitted to record a coordinator decision.
type DecisionPayload struct {
	Status  DecisionStatus `json:"status"`
	Comment string         `json:"comment,omitempty"`
}

// RiskBucket is the coarse classification of a verdict string.
type RiskBucket string

// Risk buckets.
const (
	RiskRecommended    RiskBucket = "RECOMENDADA"
	RiskCaution        RiskBucket = "PRECAUCION"
	RiskNotRecommended RiskBucket = "NO_RECOMENDAR"
	RiskUnknown        RiskBucket = "DESCONOCIDO"
)

// AdminMetrics is the dashboard KPI rollup over an evaluation list.
type AdminMetrics struct {
	Total          int     `json:"total"`
	AvgScore       float64 `json:"avgScore"`
	Recommended    int     `json:"recommended"`
	Caution        int     `json:"caution"`
	NotRecommended int     `json:"notRecommended"`
}

// SchoolSummary is the per-school rollup.
type SchoolSummary struct {
	SchoolName     string  `json:"schoolName"`
	Total          int     `json:"total"`
	AvgScore       float64 `json:"avgScore"`
	Recommended    int     `json:"recommended"`
	NotRecommended int     `json:"notRecommended"`
}

// CoordinatorMetrics is the coordinator list header.
type CoordinatorMetrics struct {
	Total    int     `json:"total"`
	AvgScore float64 `json:"avgScore"`
}
