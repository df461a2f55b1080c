package match

import (
	"errors"
	"fmt"
)

// GameBall is the ball that wins the rack. It is worth two points and can
// never be marked dead.
const GameBall = 9

// NewRack returns nine active balls.
func NewRack() []Ball {
	balls := make([]Ball, 9)
	for i := range balls {
		balls[i] = Ball{Number: i + 1, State: BallActive}
	}
	return balls
}

// ErrInvalidRack is returned for a ball array that cannot be a rack.
var ErrInvalidRack = errors.New("invalid rack")

// ValidateRack checks that balls holds each of the nine balls exactly once in
// a known state, and that the 9-ball is not dead.
func ValidateRack(balls []Ball) error {
	if len(balls) != GameBall {
		return fmt.Errorf("%w: want %d balls, got %d", ErrInvalidRack, GameBall, len(balls))
	}
	var seen [GameBall + 1]bool
	for _, b := range balls {
		if b.Number < 1 || b.Number > GameBall {
			return fmt.Errorf("%w: ball number %d", ErrInvalidRack, b.Number)
		}
		if seen[b.Number] {
			return fmt.Errorf("%w: ball %d appears twice", ErrInvalidRack, b.Number)
		}
		seen[b.Number] = true
		switch b.State {
		case BallActive, BallScored, BallDead:
		default:
			return fmt.Errorf("%w: ball %d has state %q", ErrInvalidRack, b.Number, b.State)
		}
		if b.Number == GameBall && b.State == BallDead {
			return fmt.Errorf("%w: the 9-ball cannot be dead", ErrInvalidRack)
		}
		if b.ScoredBy != 0 && !b.ScoredBy.Valid() {
			return fmt.Errorf("%w: ball %d scored by player %d", ErrInvalidRack, b.Number, b.ScoredBy)
		}
	}
	return nil
}

// BallPoints returns the points awarded for pocketing ball n.
func BallPoints(n int) int {
	if n == GameBall {
		return 2
	}
	return 1
}

// IsLocked reports whether actor is barred from editing b: the ball was
// scored or killed by the other player in a turn that has since ended.
func IsLocked(b Ball, actor PlayerNum) bool {
	return b.TurnCompleted && b.ScoredBy.Valid() && b.ScoredBy != actor
}

// TapBall advances ball number through active -> scored -> dead -> active on
// behalf of actor. The 9-ball goes from scored straight back to active. The
// returned slice is a copy; ok is false when the tap was refused.
func TapBall(balls []Ball, number int, actor PlayerNum, inning int) ([]Ball, bool) {
	out := append([]Ball(nil), balls...)
	idx := -1
	for i := range out {
		if out[i].Number == number {
			idx = i
			break
		}
	}
	if idx < 0 || !actor.Valid() {
		return out, false
	}

	b := out[idx]
	if IsLocked(b, actor) {
		return out, false
	}

	switch b.State {
	case BallActive:
		b = Ball{Number: b.Number, State: BallScored, ScoredBy: actor, Inning: inning}
	case BallScored:
		if b.Number == GameBall {
			b = Ball{Number: b.Number, State: BallActive}
		} else {
			b.State = BallDead
			b.Inning = inning
		}
	default:
		b = Ball{Number: b.Number, State: BallActive}
	}
	out[idx] = b
	return out, true
}

// CompleteTurn locks every ball the given player scored or killed.
func CompleteTurn(balls []Ball, player PlayerNum) []Ball {
	out := append([]Ball(nil), balls...)
	for i := range out {
		if out[i].ScoredBy == player && out[i].State != BallActive {
			out[i].TurnCompleted = true
		}
	}
	return out
}
