// Package history builds and summarises archived matches. Every storage
// backend uses it so the archive behaves the same wherever it lives.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mauv0809/apa-scorekeeper/internal/eventlog"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
)

// NewEntry archives a completed match together with its event log.
func NewEntry(m *match.Match, events []match.Event, completedAt time.Time) match.HistoryEntry {
	return match.HistoryEntry{
		HistoryID:   uuid.New().String(),
		Match:       *m.Clone(),
		Events:      append([]match.Event(nil), events...),
		CompletedAt: match.Timestamp(completedAt),
	}
}

// Sort orders entries most recent first.
func Sort(entries []match.HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CompletedAt.After(entries[j].CompletedAt)
	})
}

// Prepend inserts e at the front and keeps at most limit entries. A limit of
// zero or less means no limit.
func Prepend(entries []match.HistoryEntry, e match.HistoryEntry, limit int) []match.HistoryEntry {
	out := make([]match.HistoryEntry, 0, len(entries)+1)
	out = append(out, e)
	out = append(out, entries...)
	Sort(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Remove drops the entry with the given id and reports whether it existed.
func Remove(entries []match.HistoryEntry, id string) ([]match.HistoryEntry, bool) {
	for i, e := range entries {
		if e.HistoryID == id {
			out := append([]match.HistoryEntry(nil), entries[:i]...)
			return append(out, entries[i+1:]...), true
		}
	}
	return entries, false
}

// FinalScores returns the scores of an archived match, rebuilt from its
// events when it has any.
func FinalScores(e match.HistoryEntry) eventlog.Scores {
	if len(e.Events) == 0 {
		return eventlog.Scores{Player1: e.Match.Player1Score, Player2: e.Match.Player2Score, Games: e.Match.CurrentGame}
	}
	s := eventlog.Replay(e.Events)
	s.Games = max(s.Games, e.Match.CurrentGame)
	return s
}

// Winner returns the winner recorded on the match, or derives it from the
// rebuilt scores.
func Winner(e match.HistoryEntry) match.PlayerNum {
	if e.Match.Winner != nil && e.Match.Winner.Valid() {
		return *e.Match.Winner
	}
	s := FinalScores(e)
	m := e.Match
	switch {
	case s.Player1 >= m.Target(match.Player1):
		return match.Player1
	case s.Player2 >= m.Target(match.Player2):
		return match.Player2
	case s.Player1 > s.Player2:
		return match.Player1
	case s.Player2 > s.Player1:
		return match.Player2
	}
	return 0
}

// Stats summarises the archive. storageSize is supplied by the backend.
func Stats(entries []match.HistoryEntry, storageSize int) match.HistoryStats {
	st := match.HistoryStats{TotalMatches: len(entries), StorageSize: storageSize}
	for _, e := range entries {
		st.TotalGames += FinalScores(e).Games
		at := e.CompletedAt
		if st.OldestMatch == nil || at.Before(*st.OldestMatch) {
			st.OldestMatch = &at
		}
		if st.NewestMatch == nil || at.After(*st.NewestMatch) {
			st.NewestMatch = &at
		}
	}
	return st
}

// PlayerStats aggregates every archived match the named player took part in.
// Names are compared case-insensitively.
func PlayerStats(entries []match.HistoryEntry, name string) match.PlayerStats {
	st := match.PlayerStats{Name: name}
	want := strings.TrimSpace(name)
	skillTotal := 0
	for _, e := range entries {
		var seat match.PlayerNum
		switch {
		case strings.EqualFold(e.Match.Player1Name, want):
			seat = match.Player1
		case strings.EqualFold(e.Match.Player2Name, want):
			seat = match.Player2
		default:
			continue
		}
		st.MatchesPlayed++
		st.GamesPlayed += FinalScores(e).Games
		if seat == match.Player1 {
			skillTotal += e.Match.Player1SkillLevel
		} else {
			skillTotal += e.Match.Player2SkillLevel
		}
		if Winner(e) == seat {
			st.MatchesWon++
		}
	}
	if st.MatchesPlayed > 0 {
		st.WinPercentage = float64(st.MatchesWon) / float64(st.MatchesPlayed) * 100
		st.AverageSkillLevel = float64(skillTotal) / float64(st.MatchesPlayed)
	}
	return st
}
