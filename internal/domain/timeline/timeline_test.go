package timeline_test

import (
	"testing"
	"time"

	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/internal/domain/timeline"
	"github.com/smartystreets/goconvey/convey"
)

func event(id string, typ model.EventType, at time.Time, md model.Metadata) model.AuditEvent {
	return model.AuditEvent{ID: id, Type: typ, OccurredAt: at, Actor: model.SystemActor(), Metadata: md}
}

func TestGroup(t *testing.T) {
	convey.Convey("Given events spread over two days and one without a timestamp", t, func() {
		bogota, err := time.LoadLocation("America/Bogota")
		convey.So(err, convey.ShouldBeNil)

		events := []model.AuditEvent{
			event("a", model.EventEvaluationOpened, time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC), nil),
			event("b", model.EventEvaluationCreated, time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC), nil),
			event("c", model.EventCoordinatorComment, time.Date(2025, 3, 5, 2, 0, 0, 0, time.UTC), nil),
			event("z", model.EventSessionLogin, time.Time{}, nil),
			event("d", model.EventReportPDFDownloaded, time.Date(2025, 3, 4, 18, 30, 0, 0, time.UTC), nil),
		}

		days := timeline.Group(events, bogota)

		convey.Convey("Then days are keyed in the display zone and ordered newest first", func() {
			keys := make([]string, len(days))
			for i, d := range days {
				keys[i] = d.Day
			}
			convey.So(keys, convey.ShouldResemble, []string{"2025-03-05", "2025-03-04", "1969-12-31"})
		})

		convey.Convey("Then entries inside a day are newest first", func() {
			ids := []string{}
			for _, e := range days[1].Entries {
				ids = append(ids, e.Event.ID)
			}
			// 02:00 UTC on the 5th is the evening of the 4th in Bogota.
			convey.So(ids, convey.ShouldResemble, []string{"c", "d", "a"})
			convey.So(days[1].Entries[0].Time, convey.ShouldEqual, "21:00")
			convey.So(days[1].Entries[1].Time, convey.ShouldEqual, "13:30")
			convey.So(days[1].Title, convey.ShouldEqual, "martes, 4 de marzo de 2025")
		})

		convey.Convey("Then the input slice is untouched", func() {
			convey.So(events[0].ID, convey.ShouldEqual, "a")
		})
	})

	convey.Convey("Given no events", t, func() {
		convey.So(timeline.Group(nil, nil), convey.ShouldBeEmpty)
	})
}

func TestLabelAndTone(t *testing.T) {
	convey.Convey("Given decision events", t, func() {
		approved := event("1", model.EventCoordinatorDecision, time.Now(), model.DecisionMetadata{Status: model.DecisionApproved})
		rejected := event("2", model.EventCoordinatorDecision, time.Now(), model.DecisionMetadata{Status: model.DecisionRejected})
		pending := event("3", model.EventCoordinatorDecision, time.Now(), model.DecisionMetadata{Status: model.DecisionPending})

		convey.So(timeline.Label(approved), convey.ShouldEqual, "Candidato aprobado")
		convey.So(timeline.Label(rejected), convey.ShouldEqual, "Candidato rechazado")
		convey.So(timeline.Label(pending), convey.ShouldEqual, "Decisión actualizada")
		convey.So(timeline.ToneOf(approved), convey.ShouldEqual, timeline.TonePositive)
		convey.So(timeline.ToneOf(rejected), convey.ShouldEqual, timeline.ToneNegative)
		convey.So(timeline.ToneOf(pending), convey.ShouldEqual, timeline.ToneNeutral)
	})

	convey.Convey("Given other event types", t, func() {
		convey.So(timeline.Label(event("1", model.EventReportPDFUploaded, time.Now(), nil)), convey.ShouldEqual, "Reporte PDF subido al backend")
		convey.So(timeline.Label(event("1", "CUSTOM_THING_HAPPENED", time.Now(), nil)), convey.ShouldEqual, "custom thing happened")

		convey.So(timeline.ToneOf(event("1", model.EventAIAnalysisFinished, time.Now(), nil)), convey.ShouldEqual, timeline.TonePositive)
		convey.So(timeline.ToneOf(event("1", model.EventAIAnalysisFailed, time.Now(), nil)), convey.ShouldEqual, timeline.ToneNegative)
		convey.So(timeline.ToneOf(event("1", "UPLOAD_ERROR", time.Now(), nil)), convey.ShouldEqual, timeline.ToneNegative)
		convey.So(timeline.ToneOf(event("1", model.EventEvaluationOpened, time.Now(), nil)), convey.ShouldEqual, timeline.ToneInfo)
		convey.So(timeline.ToneOf(event("1", model.EventSessionLogout, time.Now(), nil)), convey.ShouldEqual, timeline.ToneNeutral)
	})
}

func TestCompactMetadata(t *testing.T) {
	convey.Convey("Given generic metadata with noise", t, func() {
		ev := event("1", "SOMETHING", time.Now(), model.GenericMetadata{
			"source":       "coordinator-list",
			"status":       "",
			"overallScore": float64(0),
			"orgId":        "org-0123456789-0123456789-0123456789",
			"hasComment":   false,
			"internalId":   "abc",
		})

		convey.Convey("Then only readable keys survive", func() {
			convey.So(timeline.CompactMetadata(ev), convey.ShouldResemble, map[string]any{
				"source":       "coordinator-list",
				"overallScore": float64(0),
			})
		})
	})

	convey.Convey("Given typed metadata", t, func() {
		ev := event("1", model.EventCoordinatorComment, time.Now(), model.CommentMetadata{HasComment: true, Length: 7})
		convey.So(timeline.CompactMetadata(ev), convey.ShouldResemble, map[string]any{"hasComment": true, "length": 7})

		short := event("2", model.EventEvaluationCreated, time.Now(), model.EvaluationMetadata{OrgID: "org-1"})
		convey.So(timeline.CompactMetadata(short), convey.ShouldResemble, map[string]any{"orgId": "org-1"})
	})

	convey.Convey("Given no metadata", t, func() {
		convey.So(timeline.CompactMetadata(event("1", model.EventSessionLogin, time.Now(), nil)), convey.ShouldBeNil)
	})
}

func TestDayTitle(t *testing.T) {
	convey.Convey("Given dates across the week", t, func() {
		convey.So(timeline.DayTitle(time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)), convey.ShouldEqual, "miércoles, 1 de enero de 2025")
		convey.So(timeline.DayTitle(time.Date(2025, time.March, 8, 9, 0, 0, 0, time.UTC)), convey.ShouldEqual, "sábado, 8 de marzo de 2025")
		convey.So(timeline.DayTitle(time.Date(2024, time.December, 29, 23, 0, 0, 0, time.UTC)), convey.ShouldEqual, "domingo, 29 de diciembre de 2024")
	})
}
