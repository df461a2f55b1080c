// Package eventlog holds the backend-independent rules for the match event
// log: duplicate suppression, score replay and the cookie size filter.
package eventlog

import (
	"fmt"
	"sync"

	"github.com/mauv0809/apa-scorekeeper/internal/match"
)

// Key identifies an event for duplicate suppression. Ball events are keyed by
// type, player, ball and game; everything else by type, player and time.
func Key(e match.Event) string {
	if e.IsBallEvent() {
		return fmt.Sprintf("%s|%d|ball:%d|game:%d", e.Type, e.Player, e.BallNumber, e.GameNumber)
	}
	return fmt.Sprintf("%s|%d|at:%d", e.Type, e.Player, e.Timestamp.UnixMilli())
}

// Deduper remembers which events were already recorded for the current match.
// It is safe for concurrent use.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// Observe records e and reports whether it had not been seen before.
func (d *Deduper) Observe(e match.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.observe(e)
}

func (d *Deduper) observe(e match.Event) bool {
	k := Key(e)
	if _, ok := d.seen[k]; ok {
		return false
	}
	d.seen[k] = struct{}{}
	d.rearm(e)
	return true
}

// rearm forgets the opposite event for the same ball and game. A ball that is
// scored, killed and scored again records each step, while a repeat of the
// step just recorded is still dropped.
func (d *Deduper) rearm(e match.Event) {
	if !e.IsBallEvent() {
		return
	}
	opposite := match.EventBallDead
	if e.Type == match.EventBallDead {
		opposite = match.EventBallScored
	}
	for _, p := range []match.PlayerNum{match.Player1, match.Player2} {
		delete(d.seen, Key(match.Event{Type: opposite, Player: p, BallNumber: e.BallNumber, GameNumber: e.GameNumber}))
	}
}

// Prime marks events that are already persisted as seen, so a restarted
// process does not record them twice. Events must be in log order.
func (d *Deduper) Prime(events []match.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range events {
		d.observe(e)
	}
}

// Reset forgets every key. Called when a new match starts.
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]struct{})
}

// Len returns the number of remembered keys.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
