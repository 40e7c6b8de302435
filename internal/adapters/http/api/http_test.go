package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/hoopvision/internal/adapters/archive"
	"github.com/okian/hoopvision/internal/adapters/http/api"
	"github.com/okian/hoopvision/internal/adapters/mq/queue"
	"github.com/okian/hoopvision/internal/adapters/repository"
	service "github.com/okian/hoopvision/internal/app"
	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/domain/types"
	"github.com/okian/hoopvision/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// A three point make by jersey 23 under the default calibration.
const shotFrame = `{
	"frame": 10,
	"ts": 0.33,
	"tracks": [{"track_id": 1, "bbox": [430, 100, 470, 180], "jersey": {"text": " 23 ", "confidence": 0.9}}],
	"ball": [440, 60, 460, 80]
}`

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newTestMux(t *testing.T) (*http.ServeMux, *service.Service) {
	t.Helper()
	svc := service.New()
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 100).Register(context.Background(), mux)
	return mux, svc
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_SessionLifecycle(t *testing.T) {
	Convey("Given a registered API server backed by a running service", t, func() {
		mux, _ := newTestMux(t)

		Convey("When a session is created with an explicit id", func() {
			w := do(mux, http.MethodPost, "/sessions", `{"session_id":"g1"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			var created map[string]string
			So(json.NewDecoder(w.Body).Decode(&created), ShouldBeNil)
			So(created["session_id"], ShouldEqual, "g1")

			Convey("Then creating it again conflicts", func() {
				w := do(mux, http.MethodPost, "/sessions", `{"session_id":"g1"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)

				var resp errorResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "session_exists")
			})

			Convey("Then a made shot updates stats, events and the leaderboard", func() {
				w := do(mux, http.MethodPost, "/sessions/g1/frames", shotFrame)
				So(w.Code, ShouldEqual, http.StatusOK)

				var res types.FrameResult
				So(json.NewDecoder(w.Body).Decode(&res), ShouldBeNil)
				So(res.Status, ShouldEqual, types.StatusProcessed)
				So(res.Events, ShouldNotBeEmpty)
				So(res.Events[0].Type, ShouldEqual, model.EventShotMade)
				So(res.Events[0].Points, ShouldEqual, 3)

				w = do(mux, http.MethodGet, "/sessions/g1/stats", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var st map[string]model.PlayerStats
				So(json.NewDecoder(w.Body).Decode(&st), ShouldBeNil)
				So(st["23"].Points, ShouldEqual, 3)
				So(st["23"].ThreePtMakes, ShouldEqual, 1)

				w = do(mux, http.MethodGet, "/sessions/g1/events", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var evts []model.GameEvent
				So(json.NewDecoder(w.Body).Decode(&evts), ShouldBeNil)
				So(len(evts), ShouldEqual, len(res.Events))

				w = do(mux, http.MethodGet, "/sessions/g1/leaderboard?limit=5", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var board []types.Entry
				So(json.NewDecoder(w.Body).Decode(&board), ShouldBeNil)
				So(board, ShouldHaveLength, 1)
				So(board[0].PlayerID, ShouldEqual, "23")
				So(board[0].Rank, ShouldEqual, 1)

				w = do(mux, http.MethodGet, "/sessions/g1/rank/23", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var entry types.Entry
				So(json.NewDecoder(w.Body).Decode(&entry), ShouldBeNil)
				So(entry.Points, ShouldEqual, 3)

				Convey("And resubmitting the frame is acknowledged as a duplicate", func() {
					w := do(mux, http.MethodPost, "/sessions/g1/frames", shotFrame)
					So(w.Code, ShouldEqual, http.StatusOK)
					var res types.FrameResult
					So(json.NewDecoder(w.Body).Decode(&res), ShouldBeNil)
					So(res.Status, ShouldEqual, types.StatusDuplicate)
				})

				Convey("And an earlier frame is rejected as out of order", func() {
					w := do(mux, http.MethodPost, "/sessions/g1/frames", `{"frame": 5, "tracks": []}`)
					So(w.Code, ShouldEqual, http.StatusConflict)
					var resp errorResponse
					So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
					So(resp.Code, ShouldEqual, "out_of_order")
				})

				Convey("And an unknown player has no rank", func() {
					w := do(mux, http.MethodGet, "/sessions/g1/rank/99", "")
					So(w.Code, ShouldEqual, http.StatusNotFound)
				})
			})

			Convey("Then a malformed frame is a bad request", func() {
				w := do(mux, http.MethodPost, "/sessions/g1/frames", `{"frame":`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a negative frame index is a bad request", func() {
				w := do(mux, http.MethodPost, "/sessions/g1/frames", `{"frame": -1, "tracks": []}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then the session is listed", func() {
				w := do(mux, http.MethodGet, "/sessions", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var list []types.SessionSummary
				So(json.NewDecoder(w.Body).Decode(&list), ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				So(list[0].SessionID, ShouldEqual, "g1")
			})

			Convey("Then closing it returns the summary and removes it", func() {
				w := do(mux, http.MethodDelete, "/sessions/g1", "")
				So(w.Code, ShouldEqual, http.StatusOK)

				w = do(mux, http.MethodDelete, "/sessions/g1", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a session is created without a body", func() {
			w := do(mux, http.MethodPost, "/sessions", "")

			Convey("Then an id is generated", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				var created map[string]string
				So(json.NewDecoder(w.Body).Decode(&created), ShouldBeNil)
				So(created["session_id"], ShouldNotBeEmpty)
			})
		})

		Convey("When a session is created with an invalid calibration", func() {
			w := do(mux, http.MethodPost, "/sessions",
				`{"calibration": {"hoop_box": [500, 50, 400, 100], "three_point_line_y": 200}}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When an unknown session is queried", func() {
			Convey("Then every read is not found", func() {
				for _, path := range []string{
					"/sessions/nope",
					"/sessions/nope/stats",
					"/sessions/nope/events",
					"/sessions/nope/leaderboard",
					"/sessions/nope/rank/23",
				} {
					So(do(mux, http.MethodGet, path, "").Code, ShouldEqual, http.StatusNotFound)
				}
				So(do(mux, http.MethodPost, "/sessions/nope/frames", shotFrame).Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When an unregistered route is requested", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		mux := http.NewServeMux()
		api.NewServer(svc, svc, 100).Register(context.Background(), mux)

		Convey("When creating a session", func() {
			w := do(mux, http.MethodPost, "/sessions", "")

			Convey("Then the API is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

// brokenArchive fails every save.
type brokenArchive struct{}

func (brokenArchive) SaveSession(context.Context, archive.Record) error {
	return errors.New("disk full")
}

func (brokenArchive) LoadSession(_ context.Context, id string) (archive.Record, error) {
	return archive.Record{}, fmt.Errorf("%w: %s", archive.ErrNotFound, id)
}

func TestServer_CloseArchiveFailure(t *testing.T) {
	Convey("Given a service whose archive rejects saves", t, func() {
		svc := service.New(service.WithArchive(brokenArchive{}))
		So(svc.Start(context.Background()), ShouldBeNil)
		mux := http.NewServeMux()
		api.NewServer(svc, svc, 100).Register(context.Background(), mux)

		So(do(mux, http.MethodPost, "/sessions", `{"session_id":"g1"}`).Code, ShouldEqual, http.StatusCreated)
		So(do(mux, http.MethodPost, "/sessions/g1/frames", shotFrame).Code, ShouldEqual, http.StatusOK)

		Convey("When the session is closed", func() {
			w := do(mux, http.MethodDelete, "/sessions/g1", "")

			Convey("Then the close fails and the session stays readable", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(do(mux, http.MethodGet, "/sessions/g1/stats", "").Code, ShouldEqual, http.StatusOK)
			})

			Convey("Then later frames report the session as closed", func() {
				w := do(mux, http.MethodPost, "/sessions/g1/frames", `{"frame": 20, "tracks": []}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				var resp errorResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "session_closed")
			})
		})
	})
}

type mockLeaderboard struct {
	topN    []types.Entry
	topNErr error
	rank    types.Entry
	rankErr error
}

func (m *mockLeaderboard) TopN(_ context.Context, _ string, n int) ([]types.Entry, error) {
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	if n > len(m.topN) {
		return m.topN, nil
	}
	return m.topN[:n], nil
}

func (m *mockLeaderboard) Rank(_ context.Context, _, _ string) (types.Entry, error) {
	if m.rankErr != nil {
		return types.Entry{}, m.rankErr
	}
	return m.rank, nil
}

func serveLeaderboard(h *api.LeaderboardHandler, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions/{id}/leaderboard", h.HandleGetLeaderboard)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestLeaderboardHandler_HandleGetLeaderboard(t *testing.T) {
	Convey("Given a leaderboard handler", t, func() {
		lb := &mockLeaderboard{
			topN: []types.Entry{
				{Rank: 1, PlayerID: "23", Points: 9},
				{Rank: 2, PlayerID: "7", Points: 4},
				{Rank: 3, PlayerID: "11", Points: 2},
			},
		}
		handler := api.NewLeaderboardHandler(lb, 100)

		Convey("When requesting top N entries", func() {
			w := serveLeaderboard(handler, "/sessions/g1/leaderboard?limit=2")

			Convey("Then it should return the top N entries", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp []types.Entry
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp, ShouldHaveLength, 2)
				So(resp[0].PlayerID, ShouldEqual, "23")
				So(resp[1].PlayerID, ShouldEqual, "7")
			})
		})

		Convey("When no limit is specified", func() {
			w := serveLeaderboard(handler, "/sessions/g1/leaderboard")

			Convey("Then the default limit applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp []types.Entry
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp, ShouldHaveLength, 3)
			})
		})

		Convey("When the limit is invalid", func() {
			for _, q := range []string{"0", "-3", "abc", "101"} {
				w := serveLeaderboard(handler, "/sessions/g1/leaderboard?limit="+q)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the backend reports backpressure", func() {
			lb.topNErr = fmt.Errorf("submit: %w", queue.ErrFull)
			w := serveLeaderboard(handler, "/sessions/g1/leaderboard?limit=10")

			Convey("Then it should return too many requests", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				var resp errorResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "backpressure")
			})
		})

		Convey("When the store fails", func() {
			lb.topNErr = errors.New("boom")
			w := serveLeaderboard(handler, "/sessions/g1/leaderboard?limit=10")

			Convey("Then it should return internal server error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestRankHandler_HandleGetRank(t *testing.T) {
	Convey("Given a rank handler", t, func() {
		lb := &mockLeaderboard{rank: types.Entry{Rank: 2, PlayerID: "7", Points: 4}}
		mux := http.NewServeMux()
		mux.HandleFunc("GET /sessions/{id}/rank/{player}", api.NewRankHandler(lb).HandleGetRank)

		Convey("When the player is ranked", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/g1/rank/7", nil))

			Convey("Then it should return the entry", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				var resp types.Entry
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Rank, ShouldEqual, 2)
			})
		})

		Convey("When the player is unknown", func() {
			lb.rankErr = repository.ErrNotFound
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/g1/rank/99", nil))

			Convey("Then it should return not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				var resp errorResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "not_found")
			})
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given a health handler", t, func() {
		handler := api.NewHealthHandler()

		Convey("When handling a plain health check", func() {
			w := httptest.NewRecorder()
			handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then it should return JSON status", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"ok"`)
			})
		})

		Convey("When the client asks for metrics text", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Accept", "text/plain")
			w := httptest.NewRecorder()
			handler.HandleHealth(w, req)

			Convey("Then it should serve the registry", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "# TYPE")
			})
		})
	})
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		handler := api.NewStatsHandler(&mockStatsProvider{
			stats: map[string]interface{}{"active_sessions": 2, "started": true},
		})

		Convey("When handling stats request", func() {
			w := httptest.NewRecorder()
			handler.HandleStats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then it should return stats", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp map[string]interface{}
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp["active_sessions"], ShouldEqual, 2)
				So(resp["started"], ShouldBeTrue)
			})
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given API error helpers", t, func() {
		base := errors.New("decode failed")

		Convey("WrapKind matches both the kind and the cause", func() {
			err := api.WrapKind("api.post_frame", api.ErrBadRequest, base)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, base), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.post_frame: bad request: decode failed")
		})

		Convey("NewKind carries only the kind", func() {
			err := api.NewKind("api.get_rank", api.ErrNotFound)
			So(errors.Is(err, api.ErrNotFound), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.get_rank: not found")
		})

		Convey("Wrap of nil is nil", func() {
			So(api.Wrap("op", nil), ShouldBeNil)
		})
	})
}
