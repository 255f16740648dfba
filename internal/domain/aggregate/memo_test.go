package aggregate_test

import (
	"testing"

	"github.com/okian/evaldash/internal/domain/aggregate"
	"github.com/okian/evaldash/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMemo(t *testing.T) {
	convey.Convey("Given a memo over school summaries", t, func() {
		memo := aggregate.NewMemo("test_schools", func(in []model.SchoolSummary) []model.SchoolSummary {
			return append([]model.SchoolSummary(nil), in...)
		})
		evs := []model.EvaluationSummary{summary("1", "Ana", "A", "", "", "Recomendada", score(90))}
		calls := 0
		compute := func() []model.SchoolSummary {
			calls++
			return aggregate.ComputeSchoolsSummary(evs)
		}

		first := memo.Get(aggregate.Fingerprint(evs), compute)
		second := memo.Get(aggregate.Fingerprint(aggregate.CloneSummaries(evs)), compute)

		convey.Convey("Then a deep-equal input hits the cache", func() {
			convey.So(calls, convey.ShouldEqual, 1)
			convey.So(second, convey.ShouldResemble, first)
		})

		convey.Convey("Then mutating a result does not poison the cache", func() {
			second[0].Total = 99
			third := memo.Get(aggregate.Fingerprint(evs), compute)
			convey.So(third[0].Total, convey.ShouldEqual, 1)
		})

		convey.Convey("Then a changed score misses", func() {
			changed := aggregate.CloneSummaries(evs)
			*changed[0].AITeachingSuitabilityScore = 10
			memo.Get(aggregate.Fingerprint(changed), compute)
			convey.So(calls, convey.ShouldEqual, 2)
		})

		convey.Convey("Then Reset forces a recompute", func() {
			memo.Reset()
			memo.Get(aggregate.Fingerprint(evs), compute)
			convey.So(calls, convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Given fingerprints with parameters", t, func() {
		evs := []model.EvaluationSummary{{ID: "1"}}
		convey.So(aggregate.Fingerprint(evs, "a", "b"), convey.ShouldNotEqual, aggregate.Fingerprint(evs, "ab", ""))
		convey.So(aggregate.Fingerprint(evs, "x"), convey.ShouldEqual, aggregate.Fingerprint(evs, "x"))
	})
}
