// Package timeline shapes audit events for activity timelines: grouping by
// calendar day, human labels, compact metadata and a coarse visual tone.
package timeline

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goodsign/monday"

	"github.com/okian/evaldash/internal/domain/model"
)

// Tone is the visual class of an entry.
type Tone string

// Tones.
const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneInfo     Tone = "info"
	ToneNeutral  Tone = "neutral"
)

// maxOrgIDLen hides long organisation identifiers from compact metadata.
const maxOrgIDLen = 30

// Entry is one rendered event.
type Entry struct {
	Event   model.AuditEvent `json:"event"`
	Label   string           `json:"label"`
	Time    string           `json:"time"`
	Tone    Tone             `json:"tone"`
	Details map[string]any   `json:"details,omitempty"`
}

// Day groups the entries that fall on one calendar day.
type Day struct {
	Day     string  `json:"day"`
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// Group sorts events newest first and buckets them by calendar day in loc.
// Days are ordered newest first. Events without a timestamp land on the epoch day.
func Group(events []model.AuditEvent, loc *time.Location) []Day {
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]model.AuditEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return millis(sorted[i].OccurredAt) > millis(sorted[j].OccurredAt)
	})

	index := make(map[string]int)
	days := make([]Day, 0)
	for _, ev := range sorted {
		at := ev.OccurredAt
		if at.IsZero() {
			at = time.Unix(0, 0)
		}
		at = at.In(loc)

		key := at.Format(time.DateOnly)
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, Day{Day: key, Title: DayTitle(at)})
		}
		days[i].Entries = append(days[i].Entries, Entry{
			Event:   ev,
			Label:   Label(ev),
			Time:    at.Format("15:04"),
			Tone:    ToneOf(ev),
			Details: CompactMetadata(ev),
		})
	}

	sort.SliceStable(days, func(i, j int) bool { return days[i].Day > days[j].Day })
	return days
}

// Label returns the human label of ev.
func Label(ev model.AuditEvent) string {
	switch ev.Type {
	case model.EventSessionLogin:
		return "Inicio de sesión"
	case model.EventSessionLogout:
		return "Cierre de sesión"
	case model.EventAIAnalysisStarted:
		return "Análisis IA iniciado"
	case model.EventAIAnalysisFinished:
		return "Análisis IA finalizado"
	case model.EventAIAnalysisFailed:
		return "Análisis IA fallido"
	case model.EventEvaluationCreated:
		return "Evaluación creada"
	case model.EventEvaluationOpened:
		return "Evaluación abierta"
	case model.EventCoordinatorDecision:
		switch decisionStatus(ev) {
		case model.DecisionApproved:
			return "Candidato aprobado"
		case model.DecisionRejected:
			return "Candidato rechazado"
		}
		return "Decisión actualizada"
	case model.EventCoordinatorComment:
		return "Comentario del coordinador agregado"
	case model.EventReportPDFDownloaded:
		return "Reporte PDF descargado"
	case model.EventReportPDFUploaded:
		return "Reporte PDF subido al backend"
	}
	return strings.ToLower(strings.ReplaceAll(string(ev.Type), "_", " "))
}

// ToneOf classifies ev for display.
func ToneOf(ev model.AuditEvent) Tone {
	t := string(ev.Type)
	switch {
	case ev.Type == model.EventCoordinatorDecision:
		switch decisionStatus(ev) {
		case model.DecisionApproved:
			return TonePositive
		case model.DecisionRejected:
			return ToneNegative
		}
		return ToneNeutral
	case strings.Contains(t, "ERROR"), strings.Contains(t, "FAILED"):
		return ToneNegative
	case strings.Contains(t, "FINISHED"), strings.Contains(t, "CREATED"), strings.Contains(t, "UPLOADED"):
		return TonePositive
	case strings.Contains(t, "OPENED"), strings.Contains(t, "DOWNLOADED"):
		return ToneInfo
	}
	return ToneNeutral
}

// CompactMetadata keeps the human-readable metadata keys and drops long identifiers.
func CompactMetadata(ev model.AuditEvent) map[string]any {
	if ev.Metadata == nil {
		return nil
	}
	md := ev.Metadata.Fields()
	out := make(map[string]any)

	for _, key := range []string{"source", "status", "risk", "verdict", "hasComment", "length"} {
		if v, ok := md[key]; ok && truthy(v) {
			out[key] = v
		}
	}
	if v, ok := md["overallScore"].(float64); ok {
		out["overallScore"] = v
	}
	if v, ok := md["orgId"]; ok && truthy(v) && utf8.RuneCountInString(fmt.Sprint(v)) < maxOrgIDLen {
		out["orgId"] = v
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

const dayTitleLayout = "Monday, 2 de January de 2006"

// DayTitle renders t as a long Spanish date, e.g. "martes, 4 de marzo de 2025".
func DayTitle(t time.Time) string {
	return strings.ToLower(monday.Format(t, dayTitleLayout, monday.LocaleEsES))
}

func decisionStatus(ev model.AuditEvent) model.DecisionStatus {
	if ev.Metadata == nil {
		return ""
	}
	s, _ := ev.Metadata.Fields()["status"].(string)
	return model.DecisionStatus(s)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	}
	return true
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
