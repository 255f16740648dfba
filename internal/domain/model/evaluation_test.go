package model_test

import (
	"math"
	"testing"

	"github.com/okian/evaldash/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func ptr[T any](v T) *T { return &v }

func TestEvaluationSummary(t *testing.T) {
	convey.Convey("Given evaluation summaries with odd scores", t, func() {
		convey.Convey("Missing, NaN and infinite scores count as zero", func() {
			convey.So(model.EvaluationSummary{}.Score(), convey.ShouldEqual, 0)
			convey.So(model.EvaluationSummary{AITeachingSuitabilityScore: ptr(math.NaN())}.Score(), convey.ShouldEqual, 0)
			convey.So(model.EvaluationSummary{AITeachingSuitabilityScore: ptr(math.Inf(1))}.Score(), convey.ShouldEqual, 0)
		})

		convey.Convey("Display scores are clamped", func() {
			convey.So(model.EvaluationSummary{AITeachingSuitabilityScore: ptr(140.0)}.ScoreForDisplay(), convey.ShouldEqual, 100)
			convey.So(model.EvaluationSummary{AITeachingSuitabilityScore: ptr(-3.0)}.ScoreForDisplay(), convey.ShouldEqual, 0)
			convey.So(model.EvaluationSummary{AITeachingSuitabilityScore: ptr(140.0)}.Score(), convey.ShouldEqual, 140)
		})

		convey.Convey("A nil candidate reads as empty strings", func() {
			ev := model.EvaluationSummary{}
			convey.So(ev.CandidateName(), convey.ShouldEqual, "")
			convey.So(ev.School(), convey.ShouldEqual, "")
			convey.So(ev.Program(), convey.ShouldEqual, "")
			convey.So(ev.Verdict(), convey.ShouldEqual, "")
		})

		convey.Convey("Unparseable dates read as the zero time", func() {
			convey.So(model.EvaluationSummary{CreatedAt: "ayer"}.CreatedTime().IsZero(), convey.ShouldBeTrue)
			convey.So(model.EvaluationSummary{CreatedAt: "2025-01-02T03:04:05Z"}.CreatedTime().Year(), convey.ShouldEqual, 2025)
		})

		convey.Convey("Clone does not share pointers", func() {
			orig := model.EvaluationSummary{
				Candidate:                  &model.Candidate{FullName: "Ana"},
				AITeachingSuitabilityScore: ptr(50.0),
			}
			c := orig.Clone()
			c.Candidate.FullName = "Otra"
			*c.AITeachingSuitabilityScore = 10
			convey.So(orig.Candidate.FullName, convey.ShouldEqual, "Ana")
			convey.So(*orig.AITeachingSuitabilityScore, convey.ShouldEqual, 50)
		})
	})
}

func TestDecisionStatus(t *testing.T) {
	convey.Convey("Decision statuses validate", t, func() {
		convey.So(model.DecisionPending.Valid(), convey.ShouldBeTrue)
		convey.So(model.DecisionStatus("").Valid(), convey.ShouldBeFalse)
		convey.So(model.DecisionStatus("aprobado").Valid(), convey.ShouldBeFalse)
	})
}
