package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/pkg/metrics"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// AllSchools is the school selector sentinel that disables school filtering.
const AllSchools = "all"

// NoSchool groups evaluations without a school snapshot.
const NoSchool = "Sin escuela"

// BuildSchoolOptions returns the distinct non-blank trimmed school names,
// sorted with Spanish collation.
func BuildSchoolOptions(evs []model.EvaluationSummary) []string {
	defer observe("school_options", time.Now())

	seen := make(map[string]struct{}, len(evs))
	out := make([]string, 0)
	for _, ev := range evs {
		name := strings.TrimSpace(ev.School())
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	collate.New(language.Spanish).SortStrings(out)
	return out
}

// FilterEvaluations keeps evaluations whose raw school snapshot equals school
// (unless school is AllSchools or empty) and whose candidate name, school or
// program contains search. The result is a new slice ordered by createdAt
// descending; missing or unparseable dates sort as oldest.
func FilterEvaluations(evs []model.EvaluationSummary, search, school string) []model.EvaluationSummary {
	defer observe("filter", time.Now())

	q := normalizeQuery(search)
	out := make([]model.EvaluationSummary, 0, len(evs))
	for _, ev := range evs {
		if school != "" && school != AllSchools && ev.School() != school {
			continue
		}
		if !matchesSearch(ev, q) {
			continue
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return createdMillis(out[i]) > createdMillis(out[j])
	})
	return out
}

// ComputeMetrics returns the KPI rollup. Unknown verdicts count in no bucket.
func ComputeMetrics(evs []model.EvaluationSummary) model.AdminMetrics {
	defer observe("metrics", time.Now())

	var m model.AdminMetrics
	if len(evs) == 0 {
		return m
	}

	var sum float64
	for _, ev := range evs {
		sum += ev.Score()
		switch ClassifyVerdict(ev.Verdict()) {
		case model.RiskRecommended:
			m.Recommended++
		case model.RiskCaution:
			m.Caution++
		case model.RiskNotRecommended:
			m.NotRecommended++
		}
	}
	m.Total = len(evs)
	m.AvgScore = sum / float64(m.Total)
	return m
}

// ComputeSchoolsSummary groups by trimmed school snapshot (blank groups under
// NoSchool) and orders groups by total descending, ties in discovery order.
func ComputeSchoolsSummary(evs []model.EvaluationSummary) []model.SchoolSummary {
	defer observe("schools_summary", time.Now())

	index := make(map[string]int)
	out := make([]model.SchoolSummary, 0)
	for _, ev := range evs {
		key := SchoolKey(ev)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, model.SchoolSummary{SchoolName: key})
		}

		s := &out[i]
		s.Total++
		s.AvgScore += ev.Score()
		switch ClassifyVerdict(ev.Verdict()) {
		case model.RiskRecommended:
			s.Recommended++
		case model.RiskNotRecommended:
			s.NotRecommended++
		}
	}

	for i := range out {
		if out[i].Total > 0 {
			out[i].AvgScore /= float64(out[i].Total)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// SchoolKey is the grouping key of ev.
func SchoolKey(ev model.EvaluationSummary) string {
	if name := strings.TrimSpace(ev.School()); name != "" {
		return name
	}
	return NoSchool
}

func normalizeQuery(search string) string {
	return strings.ToLower(strings.TrimSpace(search))
}

func matchesSearch(ev model.EvaluationSummary, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ev.CandidateName()), q) ||
		strings.Contains(strings.ToLower(ev.School()), q) ||
		strings.Contains(strings.ToLower(ev.Program()), q)
}

func createdMillis(ev model.EvaluationSummary) int64 {
	t := ev.CreatedTime()
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func observe(op string, start time.Time) {
	metrics.RecordAggregationDuration(op, float64(time.Since(start).Microseconds())/1000)
}
