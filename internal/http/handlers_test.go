package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/apa-scorekeeper/internal/config"
	"github.com/mauv0809/apa-scorekeeper/internal/cookie"
	"github.com/mauv0809/apa-scorekeeper/internal/eventlog"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
	"github.com/mauv0809/apa-scorekeeper/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestServer initializes a new server over cookie-only storage.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	metricsSvc := metrics.NewService(reg)
	metricsHandler := metrics.NewMetricsHandler(reg)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 17, 19, 0, 0, 0, time.UTC))
	opts := storage.DefaultOptions()
	opts.Clock = clock
	store := storage.New(cookie.NewMemoryJar(), nil, opts, metricsSvc)
	store.Init(context.Background())

	cfg := config.Config{ProbeTimeout: time.Second}
	return NewServer(store, metricsSvc, metricsHandler, cfg)
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, target, &buf)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func createMatch(t *testing.T, s *Server) match.Match {
	t.Helper()
	rr := do(t, s, "POST", "/match", match.NewMatchInput{Player1Name: "Alice", Player2Name: "Bob", Player1SkillLevel: 2, Player2SkillLevel: 5})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[match.Match](t, rr)
}

func TestHealthCheckHandler(t *testing.T) {
	server := setupTestServer(t)

	rr := do(t, server, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code, "handler returned wrong status code")
	assert.Equal(t, "OK!", rr.Body.String(), "handler returned unexpected body")
}

func TestMetricsHandler(t *testing.T) {
	server := setupTestServer(t)
	createMatch(t, server)

	rr := do(t, server, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `scorekeeper_storage_writes_total{backend="cookie"}`)
}

func TestStorageUsageHandler(t *testing.T) {
	server := setupTestServer(t)

	rr := do(t, server, "GET", "/storage", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	usage := decode[storage.Usage](t, rr)
	assert.Equal(t, metrics.BackendCookie, usage.Backend)
	assert.True(t, usage.Ready)
}

func TestMatchHandlers(t *testing.T) {
	server := setupTestServer(t)

	rr := do(t, server, "GET", "/match", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	created := createMatch(t, server)
	assert.Equal(t, 19, created.Target(match.Player1))

	rr = do(t, server, "GET", "/match", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created.ID, decode[match.Match](t, rr).ID)

	score := 5
	rr = do(t, server, "PATCH", "/match/"+created.ID, match.Update{Player1Score: &score})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, decode[match.Match](t, rr).Player1Score)

	rr = do(t, server, "PATCH", "/match/stale-id", match.Update{Player1Score: &score})
	assert.Equal(t, http.StatusConflict, rr.Code)

	balls := match.NewRack()
	balls[0].State = match.BallDead
	rr = do(t, server, "PUT", "/match/"+created.ID+"/balls", balls)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, match.BallDead, decode[match.Match](t, rr).Balls[0].State)

	rr = do(t, server, "DELETE", "/match", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, server, "GET", "/match", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateMatchHandler_Validation(t *testing.T) {
	server := setupTestServer(t)

	rr := do(t, server, "POST", "/match", match.NewMatchInput{Player1Name: "Alice", Player1SkillLevel: 12})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req, err := http.NewRequest("POST", "/match", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTapBallHandler(t *testing.T) {
	server := setupTestServer(t)
	m := createMatch(t, server)

	rr := do(t, server, "POST", "/match/"+m.ID+"/balls/9/tap", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[match.Match](t, rr)
	assert.Equal(t, 2, updated.Player1Score)
	assert.Equal(t, match.BallScored, updated.Balls[8].State)

	rr = do(t, server, "POST", "/match/"+m.ID+"/balls/5/tap", tapRequest{Player: match.Player1})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, decode[match.Match](t, rr).Player1Score)

	// Second tap marks ball 5 dead and takes its point back.
	rr = do(t, server, "POST", "/match/"+m.ID+"/balls/5/tap", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	updated = decode[match.Match](t, rr)
	assert.Equal(t, 2, updated.Player1Score)
	assert.Equal(t, match.BallDead, updated.Balls[4].State)

	events := decode[[]match.Event](t, do(t, server, "GET", "/match/events", nil))
	require.Len(t, events, 3)
	assert.Equal(t, match.EventBallDead, events[2].Type)

	rr = do(t, server, "POST", "/match/"+m.ID+"/balls/10/tap", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, server, "POST", "/match/stale/balls/1/tap", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestTapBallHandler_EventsReplayToStoredScore(t *testing.T) {
	server := setupTestServer(t)
	m := createMatch(t, server)

	tap := func(ball string, times int) {
		for i := 0; i < times; i++ {
			rr := do(t, server, "POST", "/match/"+m.ID+"/balls/"+ball+"/tap", nil)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		}
	}
	// Ball 5 goes scored, dead, active, scored. The 9-ball is scored and
	// taken back.
	tap("5", 4)
	tap("9", 2)

	current := decode[match.Match](t, do(t, server, "GET", "/match", nil))
	assert.Equal(t, 1, current.Player1Score)
	assert.Equal(t, match.BallActive, current.Balls[8].State)

	events := decode[[]match.Event](t, do(t, server, "GET", "/match/events", nil))
	require.Len(t, events, 5)
	assert.Equal(t, "undo", events[4].Details)
	replayed := eventlog.Replay(events)
	assert.Equal(t, current.Player1Score, replayed.Player1)
	assert.Equal(t, current.Player2Score, replayed.Player2)

	// Scoring the 9-ball again after the take-back is recorded.
	tap("9", 1)
	current = decode[match.Match](t, do(t, server, "GET", "/match", nil))
	events = decode[[]match.Event](t, do(t, server, "GET", "/match/events", nil))
	require.Len(t, events, 6)
	assert.Equal(t, 3, current.Player1Score)
	assert.Equal(t, current.Player1Score, eventlog.Replay(events).Player1)
}

func TestBallHandlers_RejectInvalidRack(t *testing.T) {
	server := setupTestServer(t)
	m := createMatch(t, server)

	short := match.NewRack()[:3]
	rr := do(t, server, "PUT", "/match/"+m.ID+"/balls", short)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	deadNine := match.NewRack()
	deadNine[8].State = match.BallDead
	rr = do(t, server, "PUT", "/match/"+m.ID+"/balls", deadNine)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	duplicate := match.NewRack()
	duplicate[1].Number = 1
	rr = do(t, server, "PATCH", "/match/"+m.ID, match.Update{Balls: duplicate})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	current := decode[match.Match](t, do(t, server, "GET", "/match", nil))
	assert.Equal(t, match.NewRack(), current.Balls, "rejected racks leave the table alone")
}

func TestTapBallHandler_LockedBall(t *testing.T) {
	server := setupTestServer(t)
	m := createMatch(t, server)

	rr := do(t, server, "POST", "/match/"+m.ID+"/balls/3/tap", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, server, "POST", "/match/"+m.ID+"/balls/3/tap", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, server, "POST", "/match/"+m.ID+"/turn", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	after := decode[match.Match](t, rr)
	assert.Equal(t, match.Player2, after.CurrentPlayer)
	assert.True(t, after.Balls[2].TurnCompleted)

	rr = do(t, server, "POST", "/match/"+m.ID+"/balls/3/tap", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	current := decode[match.Match](t, do(t, server, "GET", "/match", nil))
	assert.Equal(t, match.BallDead, current.Balls[2].State)
	assert.Equal(t, match.Player1, current.Balls[2].ScoredBy)
}

func TestEventHandlers_Deduplicate(t *testing.T) {
	server := setupTestServer(t)
	createMatch(t, server)

	e := match.Event{Type: match.EventBallScored, Player: match.Player2, BallNumber: 6, GameNumber: 1, Points: 1}
	assert.Equal(t, http.StatusAccepted, do(t, server, "POST", "/match/events", e).Code)
	assert.Equal(t, http.StatusAccepted, do(t, server, "POST", "/match/events", e).Code)

	events := decode[[]match.Event](t, do(t, server, "GET", "/match/events", nil))
	assert.Len(t, events, 1)

	assert.Equal(t, http.StatusBadRequest, do(t, server, "POST", "/match/events", match.Event{}).Code)

	assert.Equal(t, http.StatusNoContent, do(t, server, "DELETE", "/match/events", nil).Code)
	events = decode[[]match.Event](t, do(t, server, "GET", "/match/events", nil))
	assert.Empty(t, events)
}

func TestHistoryHandlers(t *testing.T) {
	server := setupTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, server, "POST", "/history", nil).Code)

	m := createMatch(t, server)
	assert.Equal(t, http.StatusConflict, do(t, server, "POST", "/history", nil).Code)

	score := m.Target(match.Player1)
	rr := do(t, server, "PATCH", "/match/"+m.ID, match.Update{Player1Score: &score})
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, decode[match.Match](t, rr).IsComplete)

	rr = do(t, server, "POST", "/history", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	entries := decode[[]match.HistoryEntry](t, rr)
	require.Len(t, entries, 1)
	assert.Equal(t, http.StatusNotFound, do(t, server, "GET", "/match", nil).Code, "archived match is cleared")

	stats := decode[match.HistoryStats](t, do(t, server, "GET", "/history/stats", nil))
	assert.Equal(t, 1, stats.TotalMatches)

	ps := decode[match.PlayerStats](t, do(t, server, "GET", "/players/alice/stats", nil))
	assert.Equal(t, 1, ps.MatchesWon)

	rr = do(t, server, "DELETE", "/history/"+entries[0].HistoryID, nil)
	assert.Equal(t, http.StatusNotImplemented, rr.Code, "cookie storage keeps a single history slot")

	assert.Equal(t, http.StatusNoContent, do(t, server, "DELETE", "/history", nil).Code)
	assert.Empty(t, decode[[]match.HistoryEntry](t, do(t, server, "GET", "/history", nil)))
}

func TestDeleteHistoryEntryHandler(t *testing.T) {
	store := storage.NewMock()
	store.UsageFunc = func() storage.Usage { return storage.Usage{Backend: "sql", Ready: true, HistoryDeletion: true} }
	store.DeleteMatchFromHistoryFunc = func(id string) bool { return id == "known" }
	server := NewServer(store, metrics.NewMock(), http.NotFoundHandler(), config.Config{})

	assert.Equal(t, http.StatusNoContent, do(t, server, "DELETE", "/history/known", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, server, "DELETE", "/history/other", nil).Code)
	assert.Equal(t, []string{"known", "other"}, store.DeleteMatchFromHistoryCalls)
}

func TestReadyMiddleware_RejectsWhenNotReady(t *testing.T) {
	store := storage.NewMock()
	store.WaitReadyFunc = func(ctx context.Context) error { return storage.ErrNotReady }
	server := NewServer(store, metrics.NewMock(), http.NotFoundHandler(), config.Config{})

	rr := do(t, server, "GET", "/match", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, http.StatusOK, do(t, server, "GET", "/health", nil).Code)
}
