package eventlog_test

import (
	"testing"
	"time"

	"github.com/mauv0809/apa-scorekeeper/internal/eventlog"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

func scored(p match.PlayerNum, ball, game int, at time.Duration) match.Event {
	return match.Event{Type: match.EventBallScored, Player: p, BallNumber: ball, GameNumber: game, Timestamp: t0.Add(at)}
}

func dead(p match.PlayerNum, ball, game int, at time.Duration) match.Event {
	return match.Event{Type: match.EventBallDead, Player: p, BallNumber: ball, GameNumber: game, Timestamp: t0.Add(at)}
}

func TestDeduper(t *testing.T) {
	d := eventlog.NewDeduper()

	e := scored(match.Player1, 3, 1, 0)
	assert.True(t, d.Observe(e))

	again := e
	again.Timestamp = t0.Add(time.Second)
	assert.False(t, d.Observe(again), "ball events ignore the timestamp")

	otherGame := scored(match.Player1, 3, 2, 0)
	assert.True(t, d.Observe(otherGame))

	turn := match.Event{Type: match.EventTurnEnded, Player: match.Player1, Timestamp: t0}
	assert.True(t, d.Observe(turn))
	assert.False(t, d.Observe(turn))
	turn.Timestamp = t0.Add(time.Millisecond)
	assert.True(t, d.Observe(turn), "non-ball events are keyed by timestamp")

	d.Reset()
	assert.Zero(t, d.Len())
	assert.True(t, d.Observe(e))
}

func TestDeduper_Prime(t *testing.T) {
	d := eventlog.NewDeduper()
	d.Prime([]match.Event{scored(match.Player2, 7, 4, 0)})
	assert.False(t, d.Observe(scored(match.Player2, 7, 4, time.Minute)))
}

func TestDeduper_OppositeBallEventRearms(t *testing.T) {
	d := eventlog.NewDeduper()

	assert.True(t, d.Observe(scored(match.Player1, 5, 1, 0)))
	assert.True(t, d.Observe(dead(match.Player1, 5, 1, time.Second)))
	assert.False(t, d.Observe(dead(match.Player1, 5, 1, 2*time.Second)), "repeated kill is still a duplicate")
	assert.True(t, d.Observe(scored(match.Player1, 5, 1, 3*time.Second)), "rescore after a kill is recorded")
	assert.False(t, d.Observe(scored(match.Player1, 5, 1, 4*time.Second)))
	assert.True(t, d.Observe(dead(match.Player1, 5, 1, 5*time.Second)))
	assert.True(t, d.Observe(scored(match.Player2, 5, 1, 6*time.Second)))
	assert.True(t, d.Observe(dead(match.Player1, 5, 1, 7*time.Second)), "a rescore by either player rearms the kill")

	assert.True(t, d.Observe(scored(match.Player2, 5, 2, 0)), "other games are untouched")
}

func TestDeduper_PrimeFollowsLogOrder(t *testing.T) {
	d := eventlog.NewDeduper()
	d.Prime([]match.Event{
		scored(match.Player1, 4, 1, 0),
		dead(match.Player1, 4, 1, time.Second),
		scored(match.Player1, 4, 1, 2*time.Second),
	})

	assert.False(t, d.Observe(scored(match.Player1, 4, 1, time.Minute)))
	assert.True(t, d.Observe(dead(match.Player1, 4, 1, time.Minute)), "the earlier kill was reversed by the rescore")
}

func TestReplay(t *testing.T) {
	t.Run("dead ball reverses an earlier credit", func(t *testing.T) {
		s := eventlog.Replay([]match.Event{
			scored(match.Player1, 5, 1, 1*time.Second),
			scored(match.Player1, 9, 1, 2*time.Second),
			dead(match.Player1, 5, 1, 3*time.Second),
		})
		assert.Equal(t, 2, s.Player1)
		assert.Equal(t, 0, s.Player2)
	})

	t.Run("events are replayed in chronological order", func(t *testing.T) {
		s := eventlog.Replay([]match.Event{
			dead(match.Player1, 5, 1, 3*time.Second),
			scored(match.Player1, 5, 1, 1*time.Second),
		})
		assert.Equal(t, 0, s.Player1)
	})

	t.Run("dead ball without prior score credits nothing", func(t *testing.T) {
		s := eventlog.Replay([]match.Event{
			dead(match.Player2, 4, 1, 0),
			scored(match.Player2, 1, 1, time.Second),
		})
		assert.Equal(t, 1, s.Player2)
	})

	t.Run("the same ball in different games counts twice", func(t *testing.T) {
		s := eventlog.Replay([]match.Event{
			scored(match.Player2, 9, 1, 0),
			scored(match.Player2, 9, 2, time.Second),
		})
		assert.Equal(t, 4, s.Player2)
		assert.Equal(t, 2, s.Games)
	})

	t.Run("reversal is charged to the original scorer", func(t *testing.T) {
		s := eventlog.Replay([]match.Event{
			scored(match.Player1, 2, 1, 0),
			dead(match.Player2, 2, 1, time.Second),
		})
		assert.Equal(t, 0, s.Player1)
		assert.Equal(t, 0, s.Player2)
	})
}

func TestFilterForCookie(t *testing.T) {
	now := t0.Add(3 * time.Hour)

	var events []match.Event
	for i := 0; i < 10; i++ {
		events = append(events, match.Event{Type: match.EventTurnEnded, Player: match.Player1, Timestamp: t0.Add(time.Duration(i) * time.Minute)})
	}
	events = append(events, scored(match.Player1, 1, 1, 20*time.Minute))
	events = append(events, match.Event{Type: match.EventSafetyTaken, Player: match.Player2, Timestamp: now.Add(-10 * time.Minute)})

	out := eventlog.FilterForCookie(events, now)

	// 10 old turn_ended events sampled one in five -> 2, plus the essential
	// ball_scored and the recent safety.
	require.Len(t, out, 4)
	assert.Equal(t, events[0], out[0])
	assert.Equal(t, events[5], out[1])
	assert.Equal(t, match.EventBallScored, out[2].Type)
	assert.Equal(t, match.EventSafetyTaken, out[3].Type)
}

func TestFilterForCookie_Caps(t *testing.T) {
	now := t0.Add(time.Hour)
	var events []match.Event
	for i := 0; i < 80; i++ {
		events = append(events, scored(match.Player1, i%9+1, i/9+1, time.Duration(i)*time.Second))
	}

	out := eventlog.FilterForCookie(events, now)
	require.Len(t, out, eventlog.MaxCookieEvents)
	assert.Equal(t, events[30], out[0])
	assert.Equal(t, events[79], out[49])
}
