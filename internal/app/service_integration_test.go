package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/evaldash/internal/adapters/evalapi"
	"github.com/okian/evaldash/internal/adapters/repository"
	service "github.com/okian/evaldash/internal/app"
	"github.com/okian/evaldash/internal/domain/aggregate"
	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/internal/fakeapi"
	"github.com/okian/evaldash/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service wired to the stub evaluation api and a file-backed audit log", t, func() {
		records := fakeapi.Generate(42, 40, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		stub := fakeapi.NewServer(records)
		ts := httptest.NewServer(stub)
		defer ts.Close()

		client, err := evalapi.New(ts.URL, evalapi.WithTimeout(2*time.Second))
		So(err, ShouldBeNil)

		dir := t.TempDir()
		newStore := func() *repository.AuditStore {
			medium, err := repository.NewFileMedium(dir)
			So(err, ShouldBeNil)
			return repository.NewAuditStore(medium)
		}

		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithEvaluationSource(client),
			service.WithAuditStore(newStore()),
			service.WithSnapshotTTL(time.Minute),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When loading the admin overview", func() {
			ov, err := svc.AdminOverview(ctx, "", aggregate.AllSchools)
			So(err, ShouldBeNil)

			Convey("Then every generated evaluation is counted", func() {
				So(ov.Metrics.Total, ShouldEqual, len(records))
				So(ov.Metrics.Recommended+ov.Metrics.Caution+ov.Metrics.NotRecommended, ShouldBeLessThanOrEqualTo, len(records))
				So(len(ov.SchoolOptions), ShouldBeGreaterThan, 0)
				var total int
				for _, sc := range ov.Schools {
					total += sc.Total
				}
				So(total, ShouldEqual, len(records))
			})
		})

		Convey("When the upstream goes down after a successful read", func() {
			_, err := svc.CoordinatorList(ctx, "", aggregate.AllDecisions)
			So(err, ShouldBeNil)
			stub.SetFailing(true)
			svc.InvalidateSnapshot()

			view, err := svc.CoordinatorList(ctx, "", aggregate.AllDecisions)

			Convey("Then the stale list keeps the dashboard up", func() {
				So(err, ShouldBeNil)
				So(view.Metrics.Total, ShouldEqual, len(records))
			})

			Convey("Then decisions fail without leaving audit events", func() {
				_, err := svc.SetDecision(ctx, coordinator, records[0].ID, model.DecisionApproved, "")
				So(errors.Is(err, service.ErrUnavailable), ShouldBeTrue)
				So(len(svc.ListEvents(ctx, repository.ListFilter{})), ShouldEqual, 0)
			})
		})

		Convey("When several coordinators decide concurrently", func() {
			const n = 10
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := range n {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					who := model.Actor{ID: fmt.Sprintf("u-%d", i), Name: fmt.Sprintf("Coord %d", i), Role: model.RoleCoordinator}
					_, err := svc.SetDecision(ctx, who, records[i].ID, model.DecisionRejected, "revisado")
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				So(err, ShouldBeNil)
			}

			Convey("Then the upstream holds every decision", func() {
				for i := range n {
					st, ok := stub.Decision(records[i].ID)
					So(ok, ShouldBeTrue)
					So(st, ShouldEqual, model.DecisionRejected)
				}
			})

			Convey("Then every decision and comment is in the audit log", func() {
				So(len(svc.ListEvents(ctx, repository.ListFilter{})), ShouldEqual, 2*n)
			})

			Convey("Then a new process over the same directory reads them back", func() {
				other := service.New(
					service.WithLogger(logger.Nop()),
					service.WithAuditStore(newStore()),
				)
				events := other.ListEvents(ctx, repository.ListFilter{EvaluationID: records[3].ID})
				So(len(events), ShouldEqual, 2)
				So(events[0].Actor.Name, ShouldEqual, "Coord 3")
			})
		})

		Convey("When a detail is opened through the real client", func() {
			d, err := svc.OpenEvaluation(ctx, coordinator, records[5].ID, "admin_table")
			So(err, ShouldBeNil)
			So(d.ID, ShouldEqual, records[5].ID)

			_, err = svc.OpenEvaluation(ctx, coordinator, "eval-9999", "admin_table")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)

			timeline := svc.Timeline(ctx, repository.ListFilter{EvaluationID: records[5].ID}, time.UTC)
			So(len(timeline), ShouldEqual, 1)
			So(timeline[0].Entries[0].Event.Type, ShouldEqual, model.EventEvaluationOpened)
		})
	})
}
