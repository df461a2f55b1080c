package http

import (
	"net/http"

	"github.com/mauv0809/apa-scorekeeper/internal/config"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
	"github.com/mauv0809/apa-scorekeeper/internal/storage"
)

func NewServer(store storage.Storage, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Store:          store,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All storage handlers wait for backend selection before they run.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, s.readyMiddleware)
	s.Router.Handle("GET /metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("GET /storage", Chain(s.StorageUsageHandler(), paramsMiddleware, s.readyMiddleware))

	s.Router.Handle("GET /match", Chain(s.GetMatchHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("POST /match", Chain(s.CreateMatchHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("DELETE /match", Chain(s.ClearMatchHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("PATCH /match/{id}", Chain(s.UpdateMatchHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("PUT /match/{id}/balls", Chain(s.UpdateBallsHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("POST /match/{id}/balls/{number}/tap", Chain(s.TapBallHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("POST /match/{id}/turn", Chain(s.EndTurnHandler(), paramsMiddleware, s.readyMiddleware))

	s.Router.Handle("GET /match/events", Chain(s.ListEventsHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("POST /match/events", Chain(s.AddEventHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("DELETE /match/events", Chain(s.ClearEventsHandler(), paramsMiddleware, s.readyMiddleware))

	s.Router.Handle("GET /history", Chain(s.ListHistoryHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("POST /history", Chain(s.ArchiveMatchHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("DELETE /history", Chain(s.ClearHistoryHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("DELETE /history/{id}", Chain(s.DeleteHistoryEntryHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("GET /history/stats", Chain(s.HistoryStatsHandler(), paramsMiddleware, s.readyMiddleware))
	s.Router.Handle("GET /players/{name}/stats", Chain(s.PlayerStatsHandler(), paramsMiddleware, s.readyMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
