package aggregate

import (
	"time"

	"github.com/okian/evaldash/internal/domain/model"
)

// DecisionFilter narrows the coordinator list: AllDecisions or one status.
type DecisionFilter string

// AllDecisions disables decision filtering.
const AllDecisions DecisionFilter = "ALL"

// Valid reports whether f is AllDecisions, a decision status or empty.
func (f DecisionFilter) Valid() bool {
	return f == "" || f == AllDecisions || model.DecisionStatus(f).Valid()
}

// EffectiveDecision resolves the status shown for ev: a local override first,
// then the status reported by the collaborator, then PENDIENTE.
func EffectiveDecision(ev model.EvaluationSummary, overrides map[string]model.DecisionStatus) model.DecisionStatus {
	if s, ok := overrides[ev.ID]; ok && s.Valid() {
		return s
	}
	if ev.CoordinatorDecisionStatus.Valid() {
		return ev.CoordinatorDecisionStatus
	}
	return model.DecisionPending
}

// FilterByDecision applies the search rule and the decision filter, keeping input order.
func FilterByDecision(
	evs []model.EvaluationSummary,
	search string,
	filter DecisionFilter,
	overrides map[string]model.DecisionStatus,
) []model.EvaluationSummary {
	defer observe("coordinator_filter", time.Now())

	q := normalizeQuery(search)
	out := make([]model.EvaluationSummary, 0, len(evs))
	for _, ev := range evs {
		if !matchesSearch(ev, q) {
			continue
		}
		if filter != "" && filter != AllDecisions && EffectiveDecision(ev, overrides) != model.DecisionStatus(filter) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// ComputeCoordinatorMetrics returns the total and average score of evs.
func ComputeCoordinatorMetrics(evs []model.EvaluationSummary) model.CoordinatorMetrics {
	if len(evs) == 0 {
		return model.CoordinatorMetrics{}
	}
	var sum float64
	for _, ev := range evs {
		sum += ev.Score()
	}
	return model.CoordinatorMetrics{Total: len(evs), AvgScore: sum / float64(len(evs))}
}
