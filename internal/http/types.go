package http

import (
	"net/http"

	"github.com/mauv0809/apa-scorekeeper/internal/config"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
	"github.com/mauv0809/apa-scorekeeper/internal/storage"
)

type Server struct {
	Store          storage.Storage
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
}

// tapRequest names who tapped a ball. Player defaults to the player at the
// table.
type tapRequest struct {
	Player match.PlayerNum `json:"player,omitempty"`
	Inning int             `json:"inning,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
