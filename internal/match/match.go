package match

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	DefaultPlayer1Color = "#1d4ed8"
	DefaultPlayer2Color = "#b91c1c"
)

// APA 9-ball points required to win, indexed by skill level.
var handicapTargets = [10]int{0, 14, 19, 25, 31, 38, 46, 55, 65, 75}

var validate = validator.New(validator.WithRequiredStructEnabled())

// TargetPoints returns the points a player of the given skill level needs to
// win. Out-of-range levels are clamped into 1..9.
func TargetPoints(skill int) int {
	if skill < 1 {
		skill = 1
	}
	if skill > 9 {
		skill = 9
	}
	return handicapTargets[skill]
}

// Timestamp normalises t to UTC with millisecond precision, which is what the
// persistence layer round-trips.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NewMatch validates the setup form and builds a fresh match.
func NewMatch(in NewMatchInput, now time.Time) (*Match, error) {
	in.Player1Name = strings.TrimSpace(in.Player1Name)
	in.Player2Name = strings.TrimSpace(in.Player2Name)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid match setup: %w", err)
	}
	if in.Player1Color == "" {
		in.Player1Color = DefaultPlayer1Color
	}
	if in.Player2Color == "" {
		in.Player2Color = DefaultPlayer2Color
	}

	return &Match{
		ID:                uuid.New().String(),
		Player1Name:       in.Player1Name,
		Player2Name:       in.Player2Name,
		Player1SkillLevel: in.Player1SkillLevel,
		Player2SkillLevel: in.Player2SkillLevel,
		Player1Color:      in.Player1Color,
		Player2Color:      in.Player2Color,
		CurrentPlayer:     Player1,
		CurrentGame:       1,
		Balls:             NewRack(),
		CreatedAt:         Timestamp(now),
	}, nil
}

// Target returns the points player p needs to win this match.
func (m *Match) Target(p PlayerNum) int {
	if p == Player2 {
		return TargetPoints(m.Player2SkillLevel)
	}
	return TargetPoints(m.Player1SkillLevel)
}

// Name returns the display name of player p.
func (m *Match) Name(p PlayerNum) string {
	if p == Player2 {
		return m.Player2Name
	}
	return m.Player1Name
}

// Score returns the current score of player p.
func (m *Match) Score(p PlayerNum) int {
	if p == Player2 {
		return m.Player2Score
	}
	return m.Player1Score
}

// Clone returns a deep copy of m.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.Balls = append([]Ball(nil), m.Balls...)
	if m.Winner != nil {
		w := *m.Winner
		c.Winner = &w
	}
	return &c
}

// Validate reports whether u can be applied. Only a replacement rack can
// make an update invalid; out-of-range numbers are clamped by Apply.
func (u Update) Validate() error {
	if u.Balls != nil {
		return ValidateRack(u.Balls)
	}
	return nil
}

// Apply merges u into m. Scores are kept within [0, target]; a player
// reaching the target completes the match. An invalid rack is ignored.
func (m *Match) Apply(u Update) {
	if u.Player1Score != nil {
		m.Player1Score = clamp(*u.Player1Score, 0, m.Target(Player1))
	}
	if u.Player2Score != nil {
		m.Player2Score = clamp(*u.Player2Score, 0, m.Target(Player2))
	}
	if u.Player1Color != nil {
		m.Player1Color = *u.Player1Color
	}
	if u.Player2Color != nil {
		m.Player2Color = *u.Player2Color
	}
	if u.Player1Timeouts != nil {
		m.Player1Timeouts = max(*u.Player1Timeouts, 0)
	}
	if u.Player2Timeouts != nil {
		m.Player2Timeouts = max(*u.Player2Timeouts, 0)
	}
	if u.Player1Safeties != nil {
		m.Player1Safeties = max(*u.Player1Safeties, 0)
	}
	if u.Player2Safeties != nil {
		m.Player2Safeties = max(*u.Player2Safeties, 0)
	}
	if u.CurrentPlayer != nil && u.CurrentPlayer.Valid() {
		m.CurrentPlayer = *u.CurrentPlayer
	}
	if u.CurrentGame != nil && *u.CurrentGame > 0 {
		m.CurrentGame = *u.CurrentGame
	}
	if u.Balls != nil && ValidateRack(u.Balls) == nil {
		m.Balls = append([]Ball(nil), u.Balls...)
	}
	if u.IsComplete != nil {
		m.IsComplete = *u.IsComplete
		if !m.IsComplete {
			m.Winner = nil
		}
	}
	if u.Winner != nil && u.Winner.Valid() {
		w := *u.Winner
		m.Winner = &w
	}

	if !m.IsComplete {
		for _, p := range []PlayerNum{Player1, Player2} {
			if m.Score(p) >= m.Target(p) {
				w := p
				m.IsComplete = true
				m.Winner = &w
				break
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
