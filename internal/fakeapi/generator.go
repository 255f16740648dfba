package fakeapi

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/okian/evaldash/internal/domain/model"
)

// Generate builds n deterministic evaluation records for seed. Records are
// spread over the window ending at now and include the gaps real data has:
// missing dates, scores, schools and verdicts.
func Generate(seed uint64, n int, now time.Time) []model.EvaluationDetail {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]model.EvaluationDetail, n)
	for i := range out {
		out[i] = generateOne(rng, i, now)
	}
	return out
}

func generateOne(rng *rand.Rand, i int, now time.Time) model.EvaluationDetail {
	sc := catalog[rng.IntN(len(catalog))]
	program := sc.programs[rng.IntN(len(sc.programs))]
	name := firstNames[rng.IntN(len(firstNames))] + " " + lastNames[rng.IntN(len(lastNames))]

	ev := model.EvaluationSummary{
		ID: fmt.Sprintf("eval-%04d", i+1),
		Candidate: &model.Candidate{
			FullName:            name,
			SchoolNameSnapshot:  sc.name,
			ProgramNameSnapshot: program,
		},
		CoordinatorDecisionStatus: pickDecision(rng),
	}

	if (i+1)%noSchoolEvery == 0 {
		ev.Candidate.SchoolNameSnapshot = ""
	}
	if (i+1)%undatedEvery != 0 {
		at := now.Add(-time.Duration(rng.Int64N(int64(spread))))
		ev.CreatedAt = model.FormatTime(at.Truncate(time.Millisecond))
	}

	score := math.Round((40+rng.Float64()*60)*10) / 10
	if (i+1)%unscoredEvery != 0 {
		ev.AITeachingSuitabilityScore = &score
	}
	if v := verdictFor(rng, score); v != "" {
		ev.AIFinalRecommendation = &v
	}

	return model.EvaluationDetail{
		EvaluationSummary: ev,
		AIOverallComment:  "Síntesis generada para " + name + ".",
		FormRawData:       mustJSON(formFor(name, sc.name, program)),
		AIRawJSON:         mustJSON(map[string]any{"overallScore": score, "finalRecommendation": ev.Verdict()}),
	}
}

func pickDecision(rng *rand.Rand) model.DecisionStatus {
	switch rng.IntN(6) {
	case 0:
		return model.DecisionApproved
	case 1:
		return model.DecisionRejected
	case 2:
		return model.DecisionPending
	}
	return ""
}

// verdictFor biases the verdict by score so buckets correlate with scores.
func verdictFor(rng *rand.Rand, score float64) string {
	if rng.IntN(10) == 0 {
		return verdicts[len(verdicts)-1]
	}
	switch {
	case score >= 80:
		if rng.IntN(2) == 0 {
			return verdicts[0]
		}
		return verdicts[3]
	case score >= 60:
		return verdicts[1]
	}
	return verdicts[2]
}

func formFor(name, school, program string) map[string]any {
	return map[string]any{
		"candidateName": name,
		"school":        school,
		"program":       program,
		"questions": []map[string]string{
			{"id": "q1", "answer": "Experiencia docente previa en educación superior."},
			{"id": "q2", "answer": "Uso de metodologías activas en el aula."},
		},
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
