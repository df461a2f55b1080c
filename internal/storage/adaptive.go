package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/apa-scorekeeper/internal/cookie"
	"github.com/mauv0809/apa-scorekeeper/internal/eventlog"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
	"github.com/mauv0809/apa-scorekeeper/internal/sqlstore"
)

// Adaptive picks one backend per process lifetime and routes every call to
// it. Until selection finishes, calls are served by the cookie backend. When
// the structured store comes up, the cookie data is migrated into it under an
// exclusive lock before it becomes active.
type Adaptive struct {
	mu     sync.RWMutex
	active Backend
	cookie *cookie.Backend
	sql    *sqlstore.Store

	opener  Opener
	opts    Options
	clock   clockwork.Clock
	metrics metrics.Metrics
	dedup   *eventlog.Deduper

	initOnce sync.Once
	ready    chan struct{}
}

// New creates an Adaptive store. Selection starts with Init.
func New(jar cookie.Jar, opener Opener, opts Options, m metrics.Metrics) *Adaptive {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultOptions().ProbeTimeout
	}
	if m == nil {
		m = metrics.Noop{}
	}
	cb := cookie.NewBackend(jar, opts.Cookie, m, opts.Clock)
	return &Adaptive{
		active:  cb,
		cookie:  cb,
		opener:  opener,
		opts:    opts,
		clock:   opts.Clock,
		metrics: m,
		dedup:   eventlog.NewDeduper(),
		ready:   make(chan struct{}),
	}
}

// Init starts backend selection. Only the first call has any effect.
func (a *Adaptive) Init(ctx context.Context) {
	a.initOnce.Do(func() {
		go a.selectBackend(ctx)
	})
}

// WaitReady blocks until selection has finished or ctx is done.
func (a *Adaptive) WaitReady(ctx context.Context) error {
	select {
	case <-a.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
}

func (a *Adaptive) isReady() bool {
	select {
	case <-a.ready:
		return true
	default:
		return false
	}
}

func (a *Adaptive) selectBackend(ctx context.Context) {
	started := a.clock.Now()
	defer close(a.ready)

	name := a.choose(ctx)
	a.mu.RLock()
	a.dedup.Reset()
	a.dedup.Prime(a.active.GetCurrentMatchEvents())
	a.mu.RUnlock()

	a.metrics.SetActiveBackend(name)
	a.metrics.SetStartupTime(a.clock.Since(started).Seconds())
	log.Info("Storage backend selected", "backend", name, "duration", a.clock.Since(started))
}

func (a *Adaptive) choose(ctx context.Context) string {
	if a.opener == nil {
		log.Info("No structured store available, using cookie storage")
		return metrics.BackendCookie
	}

	store, err := a.probe(ctx)
	if err != nil {
		log.Warn("Structured store unavailable, falling back to cookie storage", "error", err)
		return metrics.BackendCookie
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.migrate(ctx, store)
	a.sql = store
	a.active = store
	return metrics.BackendSQL
}

// probe opens the structured store and waits for its initial load, bounded
// by the probe timeout.
func (a *Adaptive) probe(ctx context.Context) (*sqlstore.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ProbeTimeout)
	defer cancel()

	type result struct {
		store *sqlstore.Store
		err   error
	}
	opened := make(chan result, 1)
	go func() {
		s, err := a.opener(ctx)
		opened <- result{s, err}
	}()

	var store *sqlstore.Store
	select {
	case r := <-opened:
		if r.err != nil {
			return nil, fmt.Errorf("failed to open structured store: %w", r.err)
		}
		store = r.store
	case <-ctx.Done():
		go func() {
			if r := <-opened; r.store != nil {
				r.store.Close()
			}
		}()
		return nil, fmt.Errorf("timed out opening structured store: %w", ctx.Err())
	}

	select {
	case <-store.Ready():
		if err := store.Err(); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to load structured store: %w", err)
		}
		return store, nil
	case <-ctx.Done():
		go store.Close()
		return nil, fmt.Errorf("timed out loading structured store: %w", ctx.Err())
	}
}

// backend returns the routed backend. Caller holds a.mu.
func (a *Adaptive) backend() Backend {
	return a.active
}

func (a *Adaptive) BackendName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().Name()
}

func (a *Adaptive) Name() string { return a.BackendName() }

func (a *Adaptive) SupportsHistoryDeletion() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().SupportsHistoryDeletion()
}

func (a *Adaptive) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().Size()
}

// Usage reports the active backend and how much it stores.
func (a *Adaptive) Usage() Usage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b := a.backend()
	return Usage{
		Backend:         b.Name(),
		Bytes:           b.Size(),
		Ready:           a.isReady(),
		HistoryDeletion: b.SupportsHistoryDeletion(),
	}
}

// RecordUsage publishes the active backend's size as a metric.
func (a *Adaptive) RecordUsage() {
	u := a.Usage()
	a.metrics.SetStorageBytes(u.Backend, u.Bytes)
	log.Debug("Recorded storage usage", "backend", u.Backend, "bytes", u.Bytes)
}

func (a *Adaptive) GetCurrentMatch() *match.Match {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().GetCurrentMatch()
}

// CreateMatch starts a new match and forgets every event seen so far.
func (a *Adaptive) CreateMatch(in match.NewMatchInput) (*match.Match, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, err := a.backend().CreateMatch(in)
	if err != nil {
		return nil, err
	}
	a.dedup.Reset()
	return m, nil
}

func (a *Adaptive) UpdateMatch(id string, u match.Update) *match.Match {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().UpdateMatch(id, u)
}

func (a *Adaptive) UpdateBallStates(id string, balls []match.Ball) *match.Match {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().UpdateBallStates(id, balls)
}

func (a *Adaptive) ClearCurrentMatch() {
	a.mu.RLock()
	defer a.mu.RUnlock()
	a.backend().ClearCurrentMatch()
}

func (a *Adaptive) GetCurrentMatchEvents() []match.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().GetCurrentMatchEvents()
}

// AddMatchEvent records e unless an event with the same identity was already
// recorded for the current match.
func (a *Adaptive) AddMatchEvent(e match.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = a.clock.Now()
	}
	e.Timestamp = match.Timestamp(e.Timestamp)

	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.dedup.Observe(e) {
		log.Debug("Suppressed duplicate event", "key", eventlog.Key(e))
		return
	}
	a.backend().AddMatchEvent(e)
}

func (a *Adaptive) ClearCurrentMatchEvents() {
	a.mu.RLock()
	defer a.mu.RUnlock()
	a.backend().ClearCurrentMatchEvents()
	a.dedup.Reset()
}

func (a *Adaptive) GetMatchHistory() []match.HistoryEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().GetMatchHistory()
}

func (a *Adaptive) AddToHistory(m *match.Match) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().AddToHistory(m)
}

func (a *Adaptive) DeleteMatchFromHistory(historyID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().DeleteMatchFromHistory(historyID)
}

func (a *Adaptive) ClearAllMatchHistory() {
	a.mu.RLock()
	defer a.mu.RUnlock()
	a.backend().ClearAllMatchHistory()
}

func (a *Adaptive) GetMatchHistoryStats() match.HistoryStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().GetMatchHistoryStats()
}

func (a *Adaptive) GetPlayerStats(name string) match.PlayerStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend().GetPlayerStats(name)
}

// Close flushes and stops the structured store, if it is active.
func (a *Adaptive) Close(ctx context.Context) error {
	a.mu.RLock()
	s := a.sql
	a.mu.RUnlock()
	if s == nil {
		return nil
	}
	if err := s.Flush(ctx); err != nil {
		log.Warn("Failed to flush structured store before closing", "error", err)
	}
	return s.Close()
}
