package storage

import (
	"context"
	"sync"

	"github.com/mauv0809/apa-scorekeeper/internal/match"
)

// Mock is a mock implementation of the Storage interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	WaitReadyFunc              func(ctx context.Context) error
	GetCurrentMatchFunc        func() *match.Match
	CreateMatchFunc            func(in match.NewMatchInput) (*match.Match, error)
	UpdateMatchFunc            func(id string, u match.Update) *match.Match
	UpdateBallStatesFunc       func(id string, balls []match.Ball) *match.Match
	GetCurrentMatchEventsFunc  func() []match.Event
	GetMatchHistoryFunc        func() []match.HistoryEntry
	AddToHistoryFunc           func(m *match.Match) bool
	DeleteMatchFromHistoryFunc func(historyID string) bool
	GetMatchHistoryStatsFunc   func() match.HistoryStats
	GetPlayerStatsFunc         func(name string) match.PlayerStats
	UsageFunc                  func() Usage

	// Call records
	CreateMatchCalls []match.NewMatchInput
	UpdateMatchCalls []struct {
		ID     string
		Update match.Update
	}
	UpdateBallStatesCalls []struct {
		ID    string
		Balls []match.Ball
	}
	AddMatchEventCalls           []match.Event
	AddToHistoryCalls            []*match.Match
	DeleteMatchFromHistoryCalls  []string
	GetPlayerStatsCalls          []string
	ClearCurrentMatchCalls       int
	ClearCurrentMatchEventsCalls int
	ClearAllMatchHistoryCalls    int
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) WaitReady(ctx context.Context) error {
	if m.WaitReadyFunc != nil {
		return m.WaitReadyFunc(ctx)
	}
	return nil
}

func (m *Mock) Name() string        { return "mock" }
func (m *Mock) BackendName() string { return m.Name() }

func (m *Mock) SupportsHistoryDeletion() bool {
	return m.Usage().HistoryDeletion
}

func (m *Mock) Size() int {
	return m.Usage().Bytes
}

func (m *Mock) Usage() Usage {
	if m.UsageFunc != nil {
		return m.UsageFunc()
	}
	return Usage{Backend: m.Name(), Ready: true}
}

func (m *Mock) GetCurrentMatch() *match.Match {
	if m.GetCurrentMatchFunc != nil {
		return m.GetCurrentMatchFunc()
	}
	return nil
}

func (m *Mock) CreateMatch(in match.NewMatchInput) (*match.Match, error) {
	m.mu.Lock()
	m.CreateMatchCalls = append(m.CreateMatchCalls, in)
	m.mu.Unlock()
	if m.CreateMatchFunc != nil {
		return m.CreateMatchFunc(in)
	}
	return nil, nil
}

func (m *Mock) UpdateMatch(id string, u match.Update) *match.Match {
	m.mu.Lock()
	m.UpdateMatchCalls = append(m.UpdateMatchCalls, struct {
		ID     string
		Update match.Update
	}{id, u})
	m.mu.Unlock()
	if m.UpdateMatchFunc != nil {
		return m.UpdateMatchFunc(id, u)
	}
	return nil
}

func (m *Mock) UpdateBallStates(id string, balls []match.Ball) *match.Match {
	m.mu.Lock()
	m.UpdateBallStatesCalls = append(m.UpdateBallStatesCalls, struct {
		ID    string
		Balls []match.Ball
	}{id, balls})
	m.mu.Unlock()
	if m.UpdateBallStatesFunc != nil {
		return m.UpdateBallStatesFunc(id, balls)
	}
	return nil
}

func (m *Mock) ClearCurrentMatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCurrentMatchCalls++
}

func (m *Mock) GetCurrentMatchEvents() []match.Event {
	if m.GetCurrentMatchEventsFunc != nil {
		return m.GetCurrentMatchEventsFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]match.Event{}, m.AddMatchEventCalls...)
}

func (m *Mock) AddMatchEvent(e match.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddMatchEventCalls = append(m.AddMatchEventCalls, e)
}

func (m *Mock) ClearCurrentMatchEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCurrentMatchEventsCalls++
}

func (m *Mock) GetMatchHistory() []match.HistoryEntry {
	if m.GetMatchHistoryFunc != nil {
		return m.GetMatchHistoryFunc()
	}
	return []match.HistoryEntry{}
}

func (m *Mock) AddToHistory(mt *match.Match) bool {
	m.mu.Lock()
	m.AddToHistoryCalls = append(m.AddToHistoryCalls, mt)
	m.mu.Unlock()
	if m.AddToHistoryFunc != nil {
		return m.AddToHistoryFunc(mt)
	}
	return mt != nil && mt.IsComplete
}

func (m *Mock) DeleteMatchFromHistory(historyID string) bool {
	m.mu.Lock()
	m.DeleteMatchFromHistoryCalls = append(m.DeleteMatchFromHistoryCalls, historyID)
	m.mu.Unlock()
	if m.DeleteMatchFromHistoryFunc != nil {
		return m.DeleteMatchFromHistoryFunc(historyID)
	}
	return false
}

func (m *Mock) ClearAllMatchHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearAllMatchHistoryCalls++
}

func (m *Mock) GetMatchHistoryStats() match.HistoryStats {
	if m.GetMatchHistoryStatsFunc != nil {
		return m.GetMatchHistoryStatsFunc()
	}
	return match.HistoryStats{}
}

func (m *Mock) GetPlayerStats(name string) match.PlayerStats {
	m.mu.Lock()
	m.GetPlayerStatsCalls = append(m.GetPlayerStatsCalls, name)
	m.mu.Unlock()
	if m.GetPlayerStatsFunc != nil {
		return m.GetPlayerStatsFunc(name)
	}
	return match.PlayerStats{Name: name}
}
