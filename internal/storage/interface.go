package storage

import (
	"context"

	"github.com/mauv0809/apa-scorekeeper/internal/cookie"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
	"github.com/mauv0809/apa-scorekeeper/internal/sqlstore"
)

// Backend is the match-level API every persistence medium implements.
// Failures of the medium never surface here: backends log, count and degrade.
type Backend interface {
	Name() string
	SupportsHistoryDeletion() bool
	Size() int

	GetCurrentMatch() *match.Match
	CreateMatch(in match.NewMatchInput) (*match.Match, error)
	UpdateMatch(id string, u match.Update) *match.Match
	UpdateBallStates(id string, balls []match.Ball) *match.Match
	ClearCurrentMatch()

	GetCurrentMatchEvents() []match.Event
	AddMatchEvent(e match.Event)
	ClearCurrentMatchEvents()

	GetMatchHistory() []match.HistoryEntry
	AddToHistory(m *match.Match) bool
	DeleteMatchFromHistory(historyID string) bool
	ClearAllMatchHistory()
	GetMatchHistoryStats() match.HistoryStats
	GetPlayerStats(name string) match.PlayerStats
}

// Storage is the API the rest of the application uses. It routes to
// whichever backend was selected at startup.
type Storage interface {
	Backend
	// WaitReady blocks until backend selection has finished.
	WaitReady(ctx context.Context) error
	BackendName() string
	Usage() Usage
}

var (
	_ Backend = (*cookie.Backend)(nil)
	_ Backend = (*sqlstore.Store)(nil)
	_ Storage = (*Adaptive)(nil)
	_ Storage = (*Mock)(nil)
)
