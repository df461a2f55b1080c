package codec_test

import (
	"strings"
	"testing"
	"time"

	"github.com/mauv0809/apa-scorekeeper/internal/codec"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 3, 9, 20, 15, 42, 417000000, time.UTC)

func sampleMatch() match.Match {
	winner := match.Player2
	balls := match.NewRack()
	balls[3] = match.Ball{Number: 4, State: match.BallScored, ScoredBy: match.Player1, Inning: 2, TurnCompleted: true}
	return match.Match{
		ID:                "c8a4f0d2-7a3e-4f7a-9c57-2b3d0b1f9e11",
		Player1Name:       "Alice",
		Player2Name:       "Bob",
		Player1SkillLevel: 4,
		Player2SkillLevel: 6,
		Player1Score:      12,
		Player2Score:      46,
		Player1Color:      "#1d4ed8",
		Player2Color:      "#b91c1c",
		Player1Timeouts:   1,
		Player2Safeties:   3,
		CurrentPlayer:     match.Player2,
		CurrentGame:       7,
		Balls:             balls,
		IsComplete:        true,
		Winner:            &winner,
		CreatedAt:         created,
	}
}

func sampleEvents() []match.Event {
	return []match.Event{
		{Type: match.EventBallScored, Timestamp: created.Add(time.Minute), Player: match.Player1, PlayerName: "Alice", GameNumber: 1, BallNumber: 4, Points: 1, NewScore: 1},
		{Type: match.EventTimeoutTaken, Timestamp: created.Add(2 * time.Minute), Player: match.Player2, PlayerName: "Bob", TimeoutDuration: 60, Details: "first timeout"},
	}
}

func TestRoundTrip_Match(t *testing.T) {
	in := sampleMatch()

	s, err := codec.Encode(in)
	require.NoError(t, err)

	var out match.Match
	require.NoError(t, codec.Decode(s, &out))
	assert.Equal(t, in, out)
}

func TestRoundTrip_EventsAndHistory(t *testing.T) {
	entry := match.HistoryEntry{
		HistoryID:   "h-1",
		Match:       sampleMatch(),
		Events:      sampleEvents(),
		CompletedAt: created.Add(time.Hour),
	}
	in := []match.HistoryEntry{entry}

	s, err := codec.Encode(in)
	require.NoError(t, err)

	var out []match.HistoryEntry
	require.NoError(t, codec.Decode(s, &out))
	assert.Equal(t, in, out)
}

func TestRoundTrip_ZeroTime(t *testing.T) {
	in := match.Event{Type: match.EventTurnEnded, Player: match.Player1}

	s, err := codec.Encode(in)
	require.NoError(t, err)

	var out match.Event
	require.NoError(t, codec.Decode(s, &out))
	assert.True(t, out.Timestamp.IsZero())
	assert.Equal(t, in, out)
}

func TestRoundTrip_UnixEpoch(t *testing.T) {
	in := match.Event{Type: match.EventTurnEnded, Player: match.Player1, Timestamp: time.UnixMilli(0).UTC()}

	s, err := codec.Encode(in)
	require.NoError(t, err)

	var out match.Event
	require.NoError(t, codec.Decode(s, &out))
	assert.False(t, out.Timestamp.IsZero(), "the epoch is a real time, not an unset one")
	assert.Equal(t, in, out)
}

func TestRoundTrip_TimestampShapedStrings(t *testing.T) {
	in := sampleMatch()
	in.Player1Name = "2024-03-09T20:15:42.417Z"
	in.Player2Color = "2001-01-01T00:00:00Z"

	s, err := codec.Encode(in)
	require.NoError(t, err)

	var out match.Match
	require.NoError(t, codec.Decode(s, &out))
	assert.Equal(t, "2024-03-09T20:15:42.417Z", out.Player1Name, "strings that look like timestamps stay strings")
	assert.Equal(t, "2001-01-01T00:00:00Z", out.Player2Color)
}

// Field names never appear on the wire, so values that equal a field name
// or a would-be short alias cannot be confused with structure.
func TestRoundTrip_ValuesMatchingFieldNames(t *testing.T) {
	in := sampleMatch()
	in.Player1Name = "player1Name"
	in.Player2Name = "p1n"
	in.Player1Color = `"currentPlayer":`

	s, err := codec.Encode(in)
	require.NoError(t, err)

	var out match.Match
	require.NoError(t, codec.Decode(s, &out))
	assert.Equal(t, in, out)
}

func TestEncode_IsCookieSafeAndDeterministic(t *testing.T) {
	a, err := codec.Encode(sampleMatch())
	require.NoError(t, err)
	b, err := codec.Encode(sampleMatch())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.False(t, strings.ContainsAny(a, ";, \"\\="), "value must be usable as a cookie value")
}

func TestEncode_CompressesLargeValues(t *testing.T) {
	events := make([]match.Event, 0, 200)
	for i := 0; i < 200; i++ {
		events = append(events, match.Event{
			Type: match.EventTurnEnded, Timestamp: created.Add(time.Duration(i) * time.Second),
			Player: match.Player1, PlayerName: "Alice", Details: "turn ended without a pocketed ball",
		})
	}

	s, err := codec.Encode(events)
	require.NoError(t, err)
	assert.Equal(t, byte('z'), s[0])

	var out []match.Event
	require.NoError(t, codec.Decode(s, &out))
	assert.Equal(t, events, out)
}

func TestDecode_Malformed(t *testing.T) {
	valid, err := codec.Encode(sampleMatch())
	require.NoError(t, err)

	cases := map[string]string{
		"empty":           "",
		"unknown format":  "x1" + valid[2:],
		"unknown version": valid[:1] + "9" + valid[2:],
		"bad base64":      valid[:2] + "!!!",
		"truncated":       valid[:len(valid)/2],
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			var out match.Match
			err := codec.Decode(s, &out)
			assert.ErrorIs(t, err, codec.ErrMalformed)
		})
	}
}
