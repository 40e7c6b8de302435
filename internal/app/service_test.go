package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/hoopvision/internal/adapters/archive"
	service "github.com/okian/hoopvision/internal/app"
	"github.com/okian/hoopvision/internal/adapters/source"
	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/session"
	"github.com/okian/hoopvision/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func conf(c float64) *float64 { return &c }

// shotRecord puts the ball in the default hoop with one shooter below it.
func shotRecord(frame int64, jersey string, cy float64) source.Record {
	return source.Record{
		Frame:     frame,
		Timestamp: float64(frame) / 25,
		Tracks: []source.TrackRecord{{
			TrackID:    1,
			BBox:       model.Box{X1: 430, Y1: cy - 50, X2: 470, Y2: cy + 50},
			Confidence: conf(0.9),
			Jersey:     &model.JerseyReading{Text: jersey, Confidence: 0.9},
		}},
		Balls: []source.Detection{{BBox: model.Box{X1: 445, Y1: 70, X2: 455, Y2: 80}, Confidence: conf(0.8)}},
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("When used before Start", func() {
			_, err := svc.CreateSession(ctx, "", nil)

			Convey("Then it refuses", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When started twice and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			svc.Stop(ctx)

			Convey("Then it is marked stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When the default calibration is degenerate", func() {
			bad := service.New(service.WithCalibration(model.Calibration{}))

			Convey("Then Start fails", func() {
				So(errors.Is(bad.Start(ctx), model.ErrInvalidCalibration), ShouldBeTrue)
			})
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { svc.Stop(ctx) })

		Convey("When a session is created without an id", func() {
			id, err := svc.CreateSession(ctx, "", nil)

			Convey("Then an id is generated", func() {
				So(err, ShouldBeNil)
				So(id, ShouldHaveLength, 36)
				So(svc.ListSessions(ctx), ShouldHaveLength, 1)
			})
		})

		Convey("When the same id is created twice", func() {
			_, err := svc.CreateSession(ctx, "g", nil)
			So(err, ShouldBeNil)
			_, err = svc.CreateSession(ctx, "g", nil)

			Convey("Then the second create conflicts", func() {
				So(errors.Is(err, service.ErrSessionExists), ShouldBeTrue)
			})
		})

		Convey("When a session has a bad calibration", func() {
			_, err := svc.CreateSession(ctx, "bad", &model.Calibration{HoopBox: model.Box{X1: 1, Y1: 1, X2: 1, Y2: 2}})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, model.ErrInvalidCalibration), ShouldBeTrue)
			})
		})

		Convey("When frames are submitted", func() {
			id, _ := svc.CreateSession(ctx, "g", nil)
			res, err := svc.SubmitFrame(ctx, id, shotRecord(50, "23", 150))
			So(err, ShouldBeNil)

			Convey("Then the shot is processed and ranked", func() {
				So(res.Status, ShouldEqual, service.StatusProcessed)
				So(res.Events, ShouldHaveLength, 2)
				So(res.Events[0].Points, ShouldEqual, 3)

				top, err := svc.TopN(ctx, id, 5)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)
				So(top[0].PlayerID, ShouldEqual, "23")
				So(top[0].Points, ShouldEqual, 3)

				e, err := svc.Rank(ctx, id, "23")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 1)
			})

			Convey("Then a retried frame is a duplicate", func() {
				res, err := svc.SubmitFrame(ctx, id, shotRecord(50, "23", 150))
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, service.StatusDuplicate)
				st, _ := svc.PlayerStats(ctx, id)
				So(st["23"].Makes, ShouldEqual, 1)
			})

			Convey("Then an older frame is out of order", func() {
				_, err := svc.SubmitFrame(ctx, id, shotRecord(40, "23", 150))
				So(errors.Is(err, session.ErrOutOfOrder), ShouldBeTrue)

				Convey("And it was not remembered as seen", func() {
					_, err := svc.SubmitFrame(ctx, id, shotRecord(40, "23", 150))
					So(errors.Is(err, session.ErrOutOfOrder), ShouldBeTrue)
				})
			})

			Convey("Then a negative frame is invalid", func() {
				_, err := svc.SubmitFrame(ctx, id, source.Record{Frame: -1})
				So(errors.Is(err, service.ErrInvalidFrame), ShouldBeTrue)
			})

			Convey("Then the game log and summary are available", func() {
				evts, err := svc.Events(ctx, id)
				So(err, ShouldBeNil)
				So(evts, ShouldHaveLength, 2)
				sum, err := svc.Summary(ctx, id)
				So(err, ShouldBeNil)
				So(sum.FramesProcessed, ShouldEqual, 1)
				idents, err := svc.Identities(ctx, id)
				So(err, ShouldBeNil)
				So(idents[0].PlayerID, ShouldEqual, "23")
			})
		})

		Convey("When a low-confidence ball is submitted", func() {
			id, _ := svc.CreateSession(ctx, "g", nil)
			rec := shotRecord(50, "23", 150)
			rec.Balls[0].Confidence = conf(0.2)
			res, err := svc.SubmitFrame(ctx, id, rec)

			Convey("Then no events are produced", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldBeEmpty)
			})
		})

		Convey("When a session is closed without an archive", func() {
			id, _ := svc.CreateSession(ctx, "g", nil)
			_, _ = svc.SubmitFrame(ctx, id, shotRecord(50, "23", 300))
			sum, err := svc.CloseSession(ctx, id)

			Convey("Then it disappears", func() {
				So(err, ShouldBeNil)
				So(sum.Events, ShouldEqual, 2)
				_, err := svc.Events(ctx, id)
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				_, err = svc.CloseSession(ctx, id)
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				So(svc.GetStats()["closedSessions"], ShouldEqual, 1)
			})
		})

		Convey("When an unknown session is addressed", func() {
			_, err := svc.SubmitFrame(ctx, "nope", shotRecord(1, "1", 1))
			_, terr := svc.TopN(ctx, "nope", 3)

			Convey("Then not found is reported", func() {
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				So(errors.Is(terr, service.ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}

// flakyArchive fails every save until healed.
type flakyArchive struct {
	mu     sync.Mutex
	healed bool
	saved  []archive.Record
}

func (a *flakyArchive) SaveSession(_ context.Context, rec archive.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.healed {
		return errors.New("disk full")
	}
	a.saved = append(a.saved, rec)
	return nil
}

func (a *flakyArchive) LoadSession(_ context.Context, id string) (archive.Record, error) {
	return archive.Record{}, fmt.Errorf("%w: %s", archive.ErrNotFound, id)
}

func (a *flakyArchive) heal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.healed = true
}

func TestService_CloseArchiveFailure(t *testing.T) {
	Convey("Given a session whose archive save fails", t, func() {
		ctx := context.Background()
		arc := &flakyArchive{}
		svc := service.New(service.WithArchive(arc))
		So(svc.Start(ctx), ShouldBeNil)

		id, _ := svc.CreateSession(ctx, "g", nil)
		_, err := svc.SubmitFrame(ctx, id, shotRecord(50, "23", 300))
		So(err, ShouldBeNil)
		_, err = svc.CloseSession(ctx, id)

		Convey("Then the close reports the failure and keeps the session readable", func() {
			So(err, ShouldNotBeNil)
			st, err := svc.PlayerStats(ctx, id)
			So(err, ShouldBeNil)
			So(st["23"].Points, ShouldEqual, 2)
			So(svc.ListSessions(ctx), ShouldHaveLength, 1)
			So(svc.GetStats()["closedSessions"], ShouldEqual, 0)
		})

		Convey("Then the session takes no more frames", func() {
			_, err := svc.SubmitFrame(ctx, id, shotRecord(80, "23", 300))
			So(errors.Is(err, session.ErrClosed), ShouldBeTrue)
		})

		Convey("When the close is retried after the archive recovers", func() {
			arc.heal()
			sum, err := svc.CloseSession(ctx, id)

			Convey("Then the session is archived and removed", func() {
				So(err, ShouldBeNil)
				So(sum.Events, ShouldEqual, 2)
				So(arc.saved, ShouldHaveLength, 1)
				So(arc.saved[0].Stats["23"].Makes, ShouldEqual, 1)
				So(svc.ListSessions(ctx), ShouldBeEmpty)
				So(svc.GetStats()["closedSessions"], ShouldEqual, 1)
			})
		})
	})
}

func TestService_Leaderboard(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { svc.Stop(ctx) })
		id, _ := svc.CreateSession(ctx, "g", nil)

		Convey("When a player is identified but has not scored", func() {
			rec := shotRecord(5, "11", 300)
			rec.Balls = nil
			res, err := svc.SubmitFrame(ctx, id, rec)
			So(err, ShouldBeNil)
			So(res.Events, ShouldBeEmpty)

			Convey("Then the player is ranked with zero points", func() {
				e, err := svc.Rank(ctx, id, "11")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 1)
				So(e.Points, ShouldEqual, 0)
				top, err := svc.TopN(ctx, id, 5)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)
			})
		})

		Convey("When frames race on one session", func() {
			var wg sync.WaitGroup
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := int64(0); i < 10; i++ {
						frame := (i*8 + int64(g) + 1) * 20
						_, _ = svc.SubmitFrame(ctx, id, shotRecord(frame, "23", 150+float64(g%2)*150))
					}
				}(g)
			}
			wg.Wait()

			Convey("Then the board matches the final totals", func() {
				st, err := svc.PlayerStats(ctx, id)
				So(err, ShouldBeNil)
				e, err := svc.Rank(ctx, id, "23")
				So(err, ShouldBeNil)
				So(e.Points, ShouldEqual, st["23"].Points)
				So(e.Makes, ShouldEqual, st["23"].Makes)
			})
		})
	})
}

func TestService_DuplicateAfterEviction(t *testing.T) {
	Convey("Given a retry cache that holds one frame", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithDedupeSize(1))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { svc.Stop(ctx) })

		a, _ := svc.CreateSession(ctx, "a", nil)
		b, _ := svc.CreateSession(ctx, "b", nil)
		_, err := svc.SubmitFrame(ctx, a, shotRecord(10, "23", 150))
		So(err, ShouldBeNil)
		_, err = svc.SubmitFrame(ctx, b, shotRecord(10, "7", 150))
		So(err, ShouldBeNil)

		Convey("When the last frame of the first session is retried", func() {
			res, err := svc.SubmitFrame(ctx, a, shotRecord(10, "23", 150))

			Convey("Then it is still acknowledged as a duplicate", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, service.StatusDuplicate)
				st, _ := svc.PlayerStats(ctx, a)
				So(st["23"].Makes, ShouldEqual, 1)
			})
		})
	})
}
