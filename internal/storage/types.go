package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/apa-scorekeeper/internal/cookie"
	"github.com/mauv0809/apa-scorekeeper/internal/sqlstore"
)

// ErrNotReady is returned by WaitReady when selection has not finished in time.
var ErrNotReady = errors.New("storage: backend selection not finished")

// Opener opens the structured store. A nil Opener means the environment has
// no structured store and cookie storage is used.
type Opener func(ctx context.Context) (*sqlstore.Store, error)

// Options configures an Adaptive store.
type Options struct {
	Cookie cookie.Options
	// ProbeTimeout bounds opening and loading the structured store.
	ProbeTimeout time.Duration
	Clock        clockwork.Clock
}

func DefaultOptions() Options {
	return Options{
		Cookie:       cookie.DefaultOptions(),
		ProbeTimeout: 5 * time.Second,
		Clock:        clockwork.NewRealClock(),
	}
}

// Usage describes the active backend.
type Usage struct {
	Backend string `json:"backend"`
	Bytes   int    `json:"bytes"`
	Ready   bool   `json:"ready"`
	// HistoryDeletion reports whether single history entries can be deleted.
	HistoryDeletion bool `json:"historyDeletion"`
}
