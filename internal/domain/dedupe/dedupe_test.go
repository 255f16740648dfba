package dedupe_test

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/evaldash/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGuard(t *testing.T) {
	Convey("Given a new guard", t, func() {
		g := dedupe.New[string]("test")
		So(g.Size(), ShouldEqual, 0)

		Convey("When a key is claimed for the first time", func() {
			_, st := g.Begin("k1")

			Convey("Then the caller owns it", func() {
				So(st, ShouldEqual, dedupe.StateNew)
			})

			Convey("And a second claim before completion sees it in flight", func() {
				_, st2 := g.Begin("k1")
				So(st2, ShouldEqual, dedupe.StateInFlight)
				So(g.Size(), ShouldEqual, 0)
			})

			Convey("And after completion the value is replayed", func() {
				g.Complete("k1", "result")
				v, st2 := g.Begin("k1")
				So(st2, ShouldEqual, dedupe.StateDone)
				So(v, ShouldEqual, "result")
				So(g.Size(), ShouldEqual, 1)
			})

			Convey("And after release the key can be claimed again", func() {
				g.Release("k1")
				_, st2 := g.Begin("k1")
				So(st2, ShouldEqual, dedupe.StateNew)
			})
		})

		Convey("When completing a key that was never claimed", func() {
			g.Complete("ghost", "x")

			Convey("Then nothing is stored", func() {
				So(g.Size(), ShouldEqual, 0)
				_, st := g.Begin("ghost")
				So(st, ShouldEqual, dedupe.StateNew)
			})
		})
	})

	Convey("Given a bounded guard", t, func() {
		g := dedupe.New[int]("test", dedupe.WithMaxSize(3))
		for i := range 5 {
			key := fmt.Sprintf("k%d", i)
			g.Begin(key)
			g.Complete(key, i)
		}

		Convey("Then the oldest keys are evicted", func() {
			So(g.Size(), ShouldEqual, 3)
			_, st := g.Begin("k0")
			So(st, ShouldEqual, dedupe.StateNew)
			v, st := g.Begin("k4")
			So(st, ShouldEqual, dedupe.StateDone)
			So(v, ShouldEqual, 4)
		})
	})

	Convey("Given an unbounded guard", t, func() {
		g := dedupe.New[int]("test", dedupe.WithMaxSize(0))
		for i := range 50 {
			key := fmt.Sprintf("k%d", i)
			g.Begin(key)
			g.Complete(key, i)
		}
		So(g.Size(), ShouldEqual, 50)
	})
}

func TestDo(t *testing.T) {
	Convey("Given a guard and a counting operation", t, func() {
		g := dedupe.New[int]("test")
		var calls atomic.Int32
		op := func() (int, error) { return int(calls.Add(1)), nil }

		Convey("When the same key is used twice", func() {
			v1, replayed1, err1 := dedupe.Do(g, "key", op)
			v2, replayed2, err2 := dedupe.Do(g, "key", op)

			Convey("Then the operation runs once and the result is replayed", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(replayed1, ShouldBeFalse)
				So(replayed2, ShouldBeTrue)
				So(v1, ShouldEqual, 1)
				So(v2, ShouldEqual, 1)
				So(calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the key is empty", func() {
			_, _, _ = dedupe.Do(g, "", op)
			_, replayed, _ := dedupe.Do(g, "", op)

			Convey("Then every call runs", func() {
				So(replayed, ShouldBeFalse)
				So(calls.Load(), ShouldEqual, 2)
				So(g.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the guard is nil", func() {
			_, replayed, err := dedupe.Do[int](nil, "key", op)
			So(err, ShouldBeNil)
			So(replayed, ShouldBeFalse)
			So(calls.Load(), ShouldEqual, 1)
		})

		Convey("When the operation fails", func() {
			boom := errors.New("boom")
			_, _, err := dedupe.Do(g, "key", func() (int, error) { return 0, boom })

			Convey("Then the key is released for a retry", func() {
				So(err, ShouldEqual, boom)
				v, replayed, err := dedupe.Do(g, "key", op)
				So(err, ShouldBeNil)
				So(replayed, ShouldBeFalse)
				So(v, ShouldEqual, 1)
			})
		})

		Convey("When the operation panics", func() {
			So(func() {
				_, _, _ = dedupe.Do(g, "key", func() (int, error) { panic("boom") })
			}, ShouldPanicWith, "boom")

			Convey("Then the key is released for a retry", func() {
				v, replayed, err := dedupe.Do(g, "key", op)
				So(err, ShouldBeNil)
				So(replayed, ShouldBeFalse)
				So(v, ShouldEqual, 1)
			})
		})

		Convey("When the key is still in flight", func() {
			g.Begin("busy")
			_, _, err := dedupe.Do(g, "busy", op)

			Convey("Then ErrInFlight is returned without running", func() {
				So(errors.Is(err, dedupe.ErrInFlight), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given many concurrent callers with one key", t, func() {
		g := dedupe.New[int]("test")
		var calls atomic.Int32
		var wg sync.WaitGroup
		var ok, busy atomic.Int32
		release := make(chan struct{})

		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := dedupe.Do(g, "same", func() (int, error) {
					<-release
					return int(calls.Add(1)), nil
				})
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, dedupe.ErrInFlight):
					busy.Add(1)
				}
			}()
		}
		// In-flight callers return immediately; only the owner blocks.
		for busy.Load() < 19 {
			runtime.Gosched()
		}
		close(release)
		wg.Wait()

		So(calls.Load(), ShouldEqual, 1)
		So(ok.Load(), ShouldEqual, 1)
		So(busy.Load(), ShouldEqual, 19)
	})
}
