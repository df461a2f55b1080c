package eventlog

import (
	"time"

	"github.com/mauv0809/apa-scorekeeper/internal/match"
)

const (
	// MaxCookieEvents caps the event log kept in cookies.
	MaxCookieEvents = 50
	recentWindow    = time.Hour
	sampleEvery     = 5
)

var essential = map[match.EventType]bool{
	match.EventBallScored:     true,
	match.EventMatchCompleted: true,
	match.EventGameWon:        true,
	match.EventTimeoutUsed:    true,
}

// IsEssential reports whether e must survive the cookie size filter.
func IsEssential(e match.Event) bool {
	return essential[e.Type]
}

// FilterForCookie sheds low-value events before the log is written to
// cookies. Essential events and anything from the last hour are kept, older
// non-essential events are sampled one in five, and the result is capped to
// the most recent MaxCookieEvents. Order is preserved.
func FilterForCookie(events []match.Event, now time.Time) []match.Event {
	cutoff := now.Add(-recentWindow)
	out := make([]match.Event, 0, len(events))
	old := 0
	for _, e := range events {
		if IsEssential(e) || e.Timestamp.After(cutoff) {
			out = append(out, e)
			continue
		}
		if old%sampleEvery == 0 {
			out = append(out, e)
		}
		old++
	}
	return Tail(out, MaxCookieEvents)
}

// Tail returns the last n events.
func Tail(events []match.Event, n int) []match.Event {
	if n < 0 || len(events) <= n {
		return events
	}
	return append([]match.Event(nil), events[len(events)-n:]...)
}
