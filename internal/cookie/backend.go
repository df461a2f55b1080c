package cookie

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/apa-scorekeeper/internal/codec"
	"github.com/mauv0809/apa-scorekeeper/internal/eventlog"
	"github.com/mauv0809/apa-scorekeeper/internal/history"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
)

// EvictionKeepHistory is how many history entries survive emergency eviction.
const EvictionKeepHistory = 3

// Backend persists the current match, its event log and the history inside a
// cookie jar. Every write is best effort: when the jar budget cannot be met the
// write is dropped and logged.
type Backend struct {
	mu      sync.Mutex
	store   *Store
	clock   clockwork.Clock
	metrics metrics.Metrics
}

// NewBackend creates a cookie backend over jar.
func NewBackend(jar Jar, opts Options, m metrics.Metrics, clock clockwork.Clock) *Backend {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	b := &Backend{
		store:   newStore(jar, opts, m),
		clock:   clock,
		metrics: m,
	}
	b.store.evict = b.evict
	return b
}

// evict frees room for a write to key. Retention priority is match, then
// history, then events: old history goes first, the event log second, and
// the current match is never touched. Caller holds b.mu.
func (b *Backend) evict(key string, need int) {
	if key != match.KeyMatchHistory {
		var entries []match.HistoryEntry
		if b.store.Read(match.KeyMatchHistory, &entries) && len(entries) > EvictionKeepHistory {
			history.Sort(entries)
			dropped := len(entries) - EvictionKeepHistory
			encoded, err := codec.Encode(entries[:EvictionKeepHistory])
			if err == nil && b.store.writeEncoded(match.KeyMatchHistory, encoded, false) {
				log.Warn("Evicted old history entries from cookies", "dropped", dropped, "kept", EvictionKeepHistory)
				b.metrics.IncEvictions("history")
			}
			if b.store.fits(key, need) {
				return
			}
		}
	}

	if key != match.KeyCurrentEvents && b.store.Has(match.KeyCurrentEvents) {
		b.store.Delete(match.KeyCurrentEvents)
		log.Warn("Evicted current match event log from cookies", "key", key)
		b.metrics.IncEvictions("events")
	}
}

func (b *Backend) Name() string { return metrics.BackendCookie }

// SupportsHistoryDeletion is false: history here is a single slot.
func (b *Backend) SupportsHistoryDeletion() bool { return false }

// Size returns the bytes the jar currently uses.
func (b *Backend) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Size()
}

func (b *Backend) GetCurrentMatch() *match.Match {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentMatch()
}

func (b *Backend) currentMatch() *match.Match {
	var m match.Match
	if !b.store.Read(match.KeyCurrentMatch, &m) {
		return nil
	}
	return &m
}

// CreateMatch starts a new match and discards the previous event log.
func (b *Backend) CreateMatch(in match.NewMatchInput) (*match.Match, error) {
	m, err := match.NewMatch(in, b.clock.Now())
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.store.Delete(match.KeyCurrentEvents)
	b.store.Write(match.KeyCurrentMatch, m)
	log.Info("Created match", "id", m.ID, "player1", m.Player1Name, "player2", m.Player2Name)
	return m.Clone(), nil
}

// UpdateMatch applies u to the current match. It returns nil when there is
// no current match, id does not match it, or u is invalid.
func (b *Backend) UpdateMatch(id string, u match.Update) *match.Match {
	if err := u.Validate(); err != nil {
		log.Warn("Rejecting invalid match update", "error", err, "id", id)
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.currentMatch()
	if m == nil || m.ID != id {
		log.Debug("Ignoring update for stale match", "id", id)
		return nil
	}
	m.Apply(u)
	b.store.Write(match.KeyCurrentMatch, m)
	return m
}

func (b *Backend) UpdateBallStates(id string, balls []match.Ball) *match.Match {
	if balls == nil {
		balls = []match.Ball{}
	}
	return b.UpdateMatch(id, match.Update{Balls: balls})
}

func (b *Backend) ClearCurrentMatch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store.Delete(match.KeyCurrentMatch)
}

func (b *Backend) GetCurrentMatchEvents() []match.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events()
}

func (b *Backend) events() []match.Event {
	var events []match.Event
	if !b.store.Read(match.KeyCurrentEvents, &events) {
		return []match.Event{}
	}
	return events
}

// AddMatchEvent appends e to the event log. The log is filtered down to the
// essential and recent events before it is written.
func (b *Backend) AddMatchEvent(e match.Event) {
	now := b.clock.Now()
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	e.Timestamp = match.Timestamp(e.Timestamp)

	b.mu.Lock()
	defer b.mu.Unlock()
	events := append(b.events(), e)
	filtered := eventlog.FilterForCookie(events, now)
	if shed := len(events) - len(filtered); shed > 0 {
		log.Debug("Filtered event log for cookie storage", "shed", shed, "kept", len(filtered))
	}
	b.store.Write(match.KeyCurrentEvents, filtered)
}

func (b *Backend) ClearCurrentMatchEvents() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store.Delete(match.KeyCurrentEvents)
}

func (b *Backend) GetMatchHistory() []match.HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history()
}

func (b *Backend) history() []match.HistoryEntry {
	var entries []match.HistoryEntry
	if !b.store.Read(match.KeyMatchHistory, &entries) {
		return []match.HistoryEntry{}
	}
	history.Sort(entries)
	return entries
}

// AddToHistory archives m with the current event log. Only completed
// matches are archived, and any earlier history is cleared first.
func (b *Backend) AddToHistory(m *match.Match) bool {
	if m == nil || !m.IsComplete {
		log.Warn("Refusing to archive a match that is not complete")
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	entry := history.NewEntry(m, b.events(), b.clock.Now())
	b.store.Delete(match.KeyMatchHistory)
	if !b.store.Write(match.KeyMatchHistory, []match.HistoryEntry{entry}) {
		return false
	}
	log.Info("Archived match", "id", m.ID, "history_id", entry.HistoryID)
	return true
}

// DeleteMatchFromHistory is not supported by cookie storage.
func (b *Backend) DeleteMatchFromHistory(historyID string) bool {
	log.Warn("Per-entry history deletion is not supported by cookie storage", "history_id", historyID)
	return false
}

func (b *Backend) ClearAllMatchHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store.Delete(match.KeyMatchHistory)
}

func (b *Backend) GetMatchHistoryStats() match.HistoryStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return history.Stats(b.history(), b.store.Size())
}

func (b *Backend) GetPlayerStats(name string) match.PlayerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return history.PlayerStats(b.history(), name)
}

// Keys lists the logical keys present in the jar.
func (b *Backend) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Keys()
}

// ReadKey decodes the raw value stored under key into v.
func (b *Backend) ReadKey(key string, v any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Read(key, v)
}

// WriteKey stores v under key, evicting if needed.
func (b *Backend) WriteKey(key string, v any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Write(key, v)
}

// DeleteKey removes key and all of its chunks.
func (b *Backend) DeleteKey(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store.Delete(key)
}
