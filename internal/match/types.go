package match

import "time"

// PlayerNum identifies one of the two players in a match.
type PlayerNum int

const (
	Player1 PlayerNum = 1
	Player2 PlayerNum = 2
)

// Valid reports whether p is 1 or 2.
func (p PlayerNum) Valid() bool {
	return p == Player1 || p == Player2
}

// Other returns the opponent of p.
func (p PlayerNum) Other() PlayerNum {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// BallState is the state of a single ball on the rack.
type BallState string

const (
	BallActive BallState = "active"
	BallScored BallState = "scored"
	BallDead   BallState = "dead"
)

// Ball is one of the nine balls of a rack.
type Ball struct {
	Number        int       `json:"number"`
	State         BallState `json:"state"`
	ScoredBy      PlayerNum `json:"scoredBy,omitempty"`
	Inning        int       `json:"inning,omitempty"`
	TurnCompleted bool      `json:"turnCompleted,omitempty"`
}

// Match is the single in-progress contest.
type Match struct {
	ID                string     `json:"id"`
	Player1Name       string     `json:"player1Name"`
	Player2Name       string     `json:"player2Name"`
	Player1SkillLevel int        `json:"player1SkillLevel"`
	Player2SkillLevel int        `json:"player2SkillLevel"`
	Player1Score      int        `json:"player1Score"`
	Player2Score      int        `json:"player2Score"`
	Player1Color      string     `json:"player1Color"`
	Player2Color      string     `json:"player2Color"`
	Player1Timeouts   int        `json:"player1TimeoutsUsed"`
	Player2Timeouts   int        `json:"player2TimeoutsUsed"`
	Player1Safeties   int        `json:"player1SafetiesUsed"`
	Player2Safeties   int        `json:"player2SafetiesUsed"`
	CurrentPlayer     PlayerNum  `json:"currentPlayer"`
	CurrentGame       int        `json:"currentGame"`
	Balls             []Ball     `json:"balls"`
	IsComplete        bool       `json:"isComplete"`
	Winner            *PlayerNum `json:"winner"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// EventType names a fact recorded in the match event log.
type EventType string

const (
	EventBallScored     EventType = "ball_scored"
	EventBallDead       EventType = "ball_dead"
	EventTurnEnded      EventType = "turn_ended"
	EventMatchCompleted EventType = "match_completed"
	EventTimeoutTaken   EventType = "timeout_taken"
	EventSafetyTaken    EventType = "safety_taken"

	// Names written by older clients. They are still honoured when the
	// cookie backend decides which events are essential.
	EventGameWon     EventType = "game_won"
	EventTimeoutUsed EventType = "timeout_used"
)

// Event is an immutable entry of the current match's event log.
type Event struct {
	Type            EventType `json:"type"`
	Timestamp       time.Time `json:"timestamp"`
	Player          PlayerNum `json:"player"`
	PlayerName      string    `json:"playerName"`
	GameNumber      int       `json:"gameNumber,omitempty"`
	BallNumber      int       `json:"ballNumber,omitempty"`
	Points          int       `json:"points,omitempty"`
	NewScore        int       `json:"newScore"`
	TimeoutDuration int       `json:"timeoutDuration,omitempty"`
	Details         string    `json:"details,omitempty"`
}

// IsBallEvent reports whether the event refers to a specific ball.
func (e Event) IsBallEvent() bool {
	return (e.Type == EventBallScored || e.Type == EventBallDead) && e.BallNumber > 0
}

// HistoryEntry is a completed match archived with its full event log.
type HistoryEntry struct {
	HistoryID   string    `json:"historyId"`
	Match       Match     `json:"match"`
	Events      []Event   `json:"events"`
	CompletedAt time.Time `json:"completedAt"`
}

// HistoryStats summarises the archived matches.
type HistoryStats struct {
	TotalMatches int        `json:"totalMatches"`
	TotalGames   int        `json:"totalGames"`
	OldestMatch  *time.Time `json:"oldestMatch"`
	NewestMatch  *time.Time `json:"newestMatch"`
	StorageSize  int        `json:"storageSize"`
}

// PlayerStats aggregates one player's archived matches.
type PlayerStats struct {
	Name              string  `json:"name"`
	MatchesPlayed     int     `json:"matchesPlayed"`
	MatchesWon        int     `json:"matchesWon"`
	GamesPlayed       int     `json:"gamesPlayed"`
	WinPercentage     float64 `json:"winPercentage"`
	AverageSkillLevel float64 `json:"averageSkillLevel"`
}

// NewMatchInput carries the player-setup form.
type NewMatchInput struct {
	Player1Name       string `json:"player1Name" validate:"required,max=30"`
	Player2Name       string `json:"player2Name" validate:"required,max=30"`
	Player1SkillLevel int    `json:"player1SkillLevel" validate:"min=1,max=9"`
	Player2SkillLevel int    `json:"player2SkillLevel" validate:"min=1,max=9"`
	Player1Color      string `json:"player1Color,omitempty" validate:"omitempty,max=32"`
	Player2Color      string `json:"player2Color,omitempty" validate:"omitempty,max=32"`
}

// Update is a partial set of match fields. Nil fields are left untouched.
type Update struct {
	Player1Score    *int       `json:"player1Score,omitempty"`
	Player2Score    *int       `json:"player2Score,omitempty"`
	Player1Color    *string    `json:"player1Color,omitempty"`
	Player2Color    *string    `json:"player2Color,omitempty"`
	Player1Timeouts *int       `json:"player1TimeoutsUsed,omitempty"`
	Player2Timeouts *int       `json:"player2TimeoutsUsed,omitempty"`
	Player1Safeties *int       `json:"player1SafetiesUsed,omitempty"`
	Player2Safeties *int       `json:"player2SafetiesUsed,omitempty"`
	CurrentPlayer   *PlayerNum `json:"currentPlayer,omitempty"`
	CurrentGame     *int       `json:"currentGame,omitempty"`
	Balls           []Ball     `json:"balls,omitempty"`
	IsComplete      *bool      `json:"isComplete,omitempty"`
	Winner          *PlayerNum `json:"winner,omitempty"`
}
