package models

import "time"

type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeDraw    Outcome = "draw"
	OutcomeAborted Outcome = "aborted"
	OutcomeReset   Outcome = "reset"
)

// GameResult is emitted once by every session when it ends.
type GameResult struct {
	GameID    string
	Player1   string
	Player2   string
	Winner    Slot
	Outcome   Outcome
	Rounds    int
	StartedAt time.Time
	EndedAt   time.Time
}
