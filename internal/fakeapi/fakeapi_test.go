package fakeapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/internal/fakeapi"
	"github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	convey.Convey("Given the same seed twice", t, func() {
		a := fakeapi.Generate(7, 60, now)
		b := fakeapi.Generate(7, 60, now)

		convey.Convey("Then the data set is identical", func() {
			convey.So(a, convey.ShouldResemble, b)
			convey.So(a[0].ID, convey.ShouldEqual, "eval-0001")
		})

		convey.Convey("Then a different seed changes it", func() {
			convey.So(fakeapi.Generate(8, 60, now), convey.ShouldNotResemble, a)
		})

		convey.Convey("Then the gaps real data has are present", func() {
			var undated, unscored, noSchool int
			for _, r := range a {
				if r.CreatedAt == "" {
					undated++
				}
				if r.AITeachingSuitabilityScore == nil {
					unscored++
				} else {
					convey.So(*r.AITeachingSuitabilityScore, convey.ShouldBeBetweenOrEqual, 40.0, 100.0)
				}
				if r.School() == "" {
					noSchool++
				}
				convey.So(json.Valid(r.FormRawData), convey.ShouldBeTrue)
			}
			convey.So(undated, convey.ShouldEqual, 1)
			convey.So(unscored, convey.ShouldEqual, 2)
			convey.So(noSchool, convey.ShouldEqual, 2)
		})
	})
}

func TestServer(t *testing.T) {
	convey.Convey("Given a stub server with generated records", t, func() {
		records := fakeapi.Generate(1, 5, now)
		srv := fakeapi.NewServer(records)

		do := func(method, path string, body []byte) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, path, bytes.NewReader(body))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			return rec
		}

		convey.Convey("When the list is requested", func() {
			rec := do(http.MethodGet, "/teachers/evaluations", nil)
			var got []model.EvaluationSummary
			convey.So(json.Unmarshal(rec.Body.Bytes(), &got), convey.ShouldBeNil)

			convey.Convey("Then summaries come back in order without raw payloads", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(len(got), convey.ShouldEqual, 5)
				convey.So(got[0].ID, convey.ShouldEqual, records[0].ID)
				convey.So(rec.Body.String(), convey.ShouldNotContainSubstring, "formRawData")
			})
		})

		convey.Convey("When a detail is requested", func() {
			rec := do(http.MethodGet, "/teachers/evaluations/"+records[2].ID, nil)
			var got model.EvaluationDetail
			convey.So(json.Unmarshal(rec.Body.Bytes(), &got), convey.ShouldBeNil)

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(got.ID, convey.ShouldEqual, records[2].ID)
			convey.So(len(got.FormRawData), convey.ShouldBeGreaterThan, 0)
			convey.So(len(got.AIRawJSON), convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("When an unknown detail is requested", func() {
			convey.So(do(http.MethodGet, "/teachers/evaluations/nope", nil).Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("When a decision is posted", func() {
			rec := do(http.MethodPost, "/teachers/evaluations/"+records[1].ID+"/decision",
				[]byte(`{"status":"RECHAZADO","comment":" no cumple "}`))

			convey.Convey("Then it is stored", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				status, ok := srv.Decision(records[1].ID)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(status, convey.ShouldEqual, model.DecisionRejected)
			})
		})

		convey.Convey("When an invalid decision is posted", func() {
			rec := do(http.MethodPost, "/teachers/evaluations/"+records[1].ID+"/decision", []byte(`{"status":"QUIZAS"}`))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the server is failing", func() {
			srv.SetFailing(true)
			rec := do(http.MethodGet, "/teachers/evaluations", nil)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
			convey.So(srv.Requests(), convey.ShouldEqual, 1)
		})
	})
}
