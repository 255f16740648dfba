package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/evaldash/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEventType(t *testing.T) {
	convey.Convey("Given event types", t, func() {
		convey.So(model.EventCoordinatorDecision.Valid(), convey.ShouldBeTrue)
		convey.So(model.EventReportPDFUploaded.Valid(), convey.ShouldBeTrue)
		convey.So(model.EventType("SOMETHING_NEW").Valid(), convey.ShouldBeFalse)
		convey.So(model.EventType("").Valid(), convey.ShouldBeFalse)
	})
}

func TestAuditEventJSON(t *testing.T) {
	convey.Convey("Given an audit event with a decision payload", t, func() {
		at := time.Date(2025, 3, 4, 10, 30, 0, 123000000, time.UTC)
		ev := model.AuditEvent{
			ID:           "e-1",
			Type:         model.EventCoordinatorDecision,
			OccurredAt:   at,
			EvaluationID: "ev-9",
			Actor:        model.Actor{ID: "u-1", Name: "Coord", Role: model.RoleCoordinator},
			Metadata:     model.DecisionMetadata{Status: model.DecisionApproved, DecidedByName: "Coord"},
		}

		convey.Convey("When it is encoded", func() {
			raw, err := json.Marshal(ev)
			convey.So(err, convey.ShouldBeNil)

			var wire map[string]any
			convey.So(json.Unmarshal(raw, &wire), convey.ShouldBeNil)

			convey.Convey("Then it uses the persisted layout", func() {
				convey.So(wire["at"], convey.ShouldEqual, "2025-03-04T10:30:00.123Z")
				convey.So(wire["evaluationId"], convey.ShouldEqual, "ev-9")
				actor := wire["actor"].(map[string]any)
				convey.So(actor["email"], convey.ShouldBeNil)
				meta := wire["metadata"].(map[string]any)
				convey.So(meta["status"], convey.ShouldEqual, "APROBADO")
				convey.So(meta, convey.ShouldNotContainKey, "decidedAt")
			})

			convey.Convey("Then decoding restores the typed variant", func() {
				var back model.AuditEvent
				convey.So(json.Unmarshal(raw, &back), convey.ShouldBeNil)
				convey.So(back.OccurredAt.Equal(at), convey.ShouldBeTrue)
				convey.So(back.Actor, convey.ShouldResemble, ev.Actor)
				convey.So(back.Metadata, convey.ShouldResemble, ev.Metadata)
			})
		})

		convey.Convey("When a session event has no evaluation", func() {
			ev.EvaluationID = ""
			ev.Metadata = nil
			raw, err := json.Marshal(ev)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then evaluationId is null and metadata is omitted", func() {
				convey.So(string(raw), convey.ShouldContainSubstring, `"evaluationId":null`)
				convey.So(string(raw), convey.ShouldNotContainSubstring, `"metadata"`)
			})
		})
	})

	convey.Convey("Given a v1 record with a bad timestamp and extra metadata keys", t, func() {
		raw := `{"id":"x","type":"EVALUATION_OPENED","at":"yesterday","evaluationId":null,
			"actor":{"id":null,"name":"Sistema","email":null,"role":"system"},
			"metadata":{"source":"coordinator-list","extra":1,"nested":{"a":1}}}`

		var ev model.AuditEvent
		err := json.Unmarshal([]byte(raw), &ev)

		convey.Convey("Then it decodes leniently", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(ev.OccurredAt.IsZero(), convey.ShouldBeTrue)
			convey.So(ev.EvaluationID, convey.ShouldEqual, "")
			convey.So(ev.Actor, convey.ShouldResemble, model.SystemActor())
			convey.So(ev.Metadata, convey.ShouldResemble, model.GenericMetadata{
				"source": "coordinator-list",
				"extra":  float64(1),
			})
		})
	})
}

func TestDecodeMetadata(t *testing.T) {
	convey.Convey("Given raw metadata payloads", t, func() {
		convey.Convey("Comment metadata decodes strictly", func() {
			m := model.DecodeMetadata(model.EventCoordinatorComment, json.RawMessage(`{"hasComment":true,"length":12}`))
			convey.So(m, convey.ShouldResemble, model.CommentMetadata{HasComment: true, Length: 12})
		})

		convey.Convey("A decision with an unknown status falls back to generic", func() {
			m := model.DecodeMetadata(model.EventCoordinatorDecision, json.RawMessage(`{"status":"MAYBE"}`))
			convey.So(m, convey.ShouldResemble, model.GenericMetadata{"status": "MAYBE"})
		})

		convey.Convey("Unknown event types keep primitive values", func() {
			m := model.DecodeMetadata("FUTURE_EVENT", json.RawMessage(`{"a":"b","n":null,"list":[1]}`))
			convey.So(m, convey.ShouldResemble, model.GenericMetadata{"a": "b", "n": nil})
		})

		convey.Convey("Null and non-object payloads decode to nil", func() {
			convey.So(model.DecodeMetadata(model.EventSessionLogin, json.RawMessage(`null`)), convey.ShouldBeNil)
			convey.So(model.DecodeMetadata(model.EventSessionLogin, json.RawMessage(`[1,2]`)), convey.ShouldBeNil)
			convey.So(model.DecodeMetadata(model.EventSessionLogin, nil), convey.ShouldBeNil)
		})

		convey.Convey("Analysis scores survive as numbers", func() {
			m := model.DecodeMetadata(model.EventAIAnalysisFinished, json.RawMessage(`{"risk":"bajo","overallScore":87.5}`))
			a, ok := m.(model.AnalysisMetadata)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(*a.OverallScore, convey.ShouldEqual, 87.5)
			convey.So(a.Fields(), convey.ShouldResemble, map[string]any{"risk": "bajo", "overallScore": 87.5})
		})
	})
}

func TestNewGenericMetadata(t *testing.T) {
	convey.Convey("Given a mixed bag", t, func() {
		m := model.NewGenericMetadata(map[string]any{
			"s": "x", "i": 3, "b": true, "obj": map[string]any{}, "slice": []string{"a"},
		})

		convey.Convey("Then only primitives are kept and ints become float64", func() {
			convey.So(m, convey.ShouldResemble, model.GenericMetadata{"s": "x", "i": float64(3), "b": true})
		})
	})
}
