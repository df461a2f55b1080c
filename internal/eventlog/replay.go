package eventlog

import (
	"sort"

	"github.com/mauv0809/apa-scorekeeper/internal/match"
)

// Scores is the outcome of replaying an event log.
type Scores struct {
	Player1 int
	Player2 int
	// Games is the highest game number seen in the log.
	Games int
}

// Of returns the score of player p.
func (s Scores) Of(p match.PlayerNum) int {
	if p == match.Player2 {
		return s.Player2
	}
	return s.Player1
}

type ballRecord struct {
	state  match.BallState
	scorer match.PlayerNum
}

// Replay rebuilds the running score from events, independent of any stored
// score fields. A ball_dead event reverses the credit only for a ball that was
// scored in the same game. Scores never go below zero.
func Replay(events []match.Event) Scores {
	ordered := append([]match.Event(nil), events...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var s Scores
	games := make(map[int]map[int]ballRecord)
	credit := func(p match.PlayerNum, pts int) {
		switch p {
		case match.Player1:
			s.Player1 += pts
		case match.Player2:
			s.Player2 += pts
		}
	}

	for _, e := range ordered {
		if e.GameNumber > s.Games {
			s.Games = e.GameNumber
		}
		if !e.IsBallEvent() {
			continue
		}
		rack, ok := games[e.GameNumber]
		if !ok {
			rack = make(map[int]ballRecord)
			games[e.GameNumber] = rack
		}
		prev := rack[e.BallNumber]

		switch e.Type {
		case match.EventBallScored:
			if prev.state == match.BallScored {
				continue
			}
			rack[e.BallNumber] = ballRecord{state: match.BallScored, scorer: e.Player}
			credit(e.Player, match.BallPoints(e.BallNumber))
		case match.EventBallDead:
			if prev.state == match.BallScored {
				credit(prev.scorer, -match.BallPoints(e.BallNumber))
			}
			rack[e.BallNumber] = ballRecord{state: match.BallDead, scorer: e.Player}
		}
	}

	s.Player1 = max(s.Player1, 0)
	s.Player2 = max(s.Player2, 0)
	return s
}
