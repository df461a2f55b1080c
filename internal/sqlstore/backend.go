package sqlstore

import (
	"github.com/charmbracelet/log"
	"github.com/mauv0809/apa-scorekeeper/internal/history"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
)

// The methods below are the match-level operations. Each one runs its
// read-modify-write under opMu so concurrent callers cannot interleave.

func (s *Store) Name() string { return metrics.BackendSQL }

// SupportsHistoryDeletion is true: entries are kept individually.
func (s *Store) SupportsHistoryDeletion() bool { return true }

// HistoryCap returns the number of archived matches retained.
func (s *Store) HistoryCap() int { return s.historyCap }

func (s *Store) GetCurrentMatch() *match.Match {
	var m match.Match
	if !s.Get(match.KeyCurrentMatch, &m) {
		return nil
	}
	return &m
}

// CreateMatch starts a new match and discards the previous event log.
func (s *Store) CreateMatch(in match.NewMatchInput) (*match.Match, error) {
	m, err := match.NewMatch(in, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.Delete(match.KeyCurrentEvents)
	s.set(match.KeyCurrentMatch, m)
	log.Info("Created match", "id", m.ID, "player1", m.Player1Name, "player2", m.Player2Name)
	return m.Clone(), nil
}

// UpdateMatch applies u to the current match. It returns nil when there is
// no current match, id does not match it, or u is invalid.
func (s *Store) UpdateMatch(id string, u match.Update) *match.Match {
	if err := u.Validate(); err != nil {
		log.Warn("Rejecting invalid match update", "error", err, "id", id)
		return nil
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	m := s.GetCurrentMatch()
	if m == nil || m.ID != id {
		log.Debug("Ignoring update for stale match", "id", id)
		return nil
	}
	m.Apply(u)
	s.set(match.KeyCurrentMatch, m)
	return m
}

func (s *Store) UpdateBallStates(id string, balls []match.Ball) *match.Match {
	if balls == nil {
		balls = []match.Ball{}
	}
	return s.UpdateMatch(id, match.Update{Balls: balls})
}

func (s *Store) ClearCurrentMatch() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.Delete(match.KeyCurrentMatch)
}

func (s *Store) GetCurrentMatchEvents() []match.Event {
	var events []match.Event
	if !s.Get(match.KeyCurrentEvents, &events) || events == nil {
		return []match.Event{}
	}
	return events
}

// AddMatchEvent appends e to the event log. The log is kept whole.
func (s *Store) AddMatchEvent(e match.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock.Now()
	}
	e.Timestamp = match.Timestamp(e.Timestamp)

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.set(match.KeyCurrentEvents, append(s.GetCurrentMatchEvents(), e))
}

func (s *Store) ClearCurrentMatchEvents() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.Delete(match.KeyCurrentEvents)
}

func (s *Store) GetMatchHistory() []match.HistoryEntry {
	var entries []match.HistoryEntry
	if !s.Get(match.KeyMatchHistory, &entries) || entries == nil {
		return []match.HistoryEntry{}
	}
	history.Sort(entries)
	return entries
}

// AddToHistory archives m with the current event log. Only completed
// matches are archived; the oldest entries beyond the cap are dropped.
func (s *Store) AddToHistory(m *match.Match) bool {
	if m == nil || !m.IsComplete {
		log.Warn("Refusing to archive a match that is not complete")
		return false
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	entry := history.NewEntry(m, s.GetCurrentMatchEvents(), s.clock.Now())
	before := s.GetMatchHistory()
	entries := history.Prepend(before, entry, s.historyCap)
	if dropped := len(before) + 1 - len(entries); dropped > 0 {
		log.Info("History cap reached, dropping oldest entries", "dropped", dropped, "cap", s.historyCap)
	}
	if err := s.Put(match.KeyMatchHistory, entries); err != nil {
		log.Error("Failed to archive match", "error", err, "id", m.ID)
		return false
	}
	log.Info("Archived match", "id", m.ID, "history_id", entry.HistoryID)
	return true
}

func (s *Store) DeleteMatchFromHistory(historyID string) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	entries, ok := history.Remove(s.GetMatchHistory(), historyID)
	if !ok {
		log.Debug("History entry not found", "history_id", historyID)
		return false
	}
	s.set(match.KeyMatchHistory, entries)
	return true
}

func (s *Store) ClearAllMatchHistory() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.Delete(match.KeyMatchHistory)
}

func (s *Store) GetMatchHistoryStats() match.HistoryStats {
	return history.Stats(s.GetMatchHistory(), s.Size())
}

func (s *Store) GetPlayerStats(name string) match.PlayerStats {
	return history.PlayerStats(s.GetMatchHistory(), name)
}
