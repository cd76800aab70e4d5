package client

import (
	"time"

	"quarto/internal/quarto/models"
)

type Mode int

const (
	Local Mode = iota
	Online
)

func (m Mode) String() string {
	if m == Online {
		return "online"
	}
	return "local"
}

type EventKind int

const (
	PieceChosen EventKind = iota
	LocationChosen
	ModeSelected
	Closed
)

// Event is an input from the presentation layer.
type Event struct {
	Kind  EventKind
	Piece models.Piece
	Row   int
	Col   int
	Mode  Mode
}

// Outcome describes a finished game. Self is NoSlot in local games.
type Outcome struct {
	Winner models.Slot
	Self   models.Slot
	Draw   bool
}

func (o Outcome) Won() bool {
	return !o.Draw && o.Self.Valid() && o.Winner == o.Self
}

// Presenter is implemented by the presentation layer.
type Presenter interface {
	Board(snapshot models.Snapshot)
	Prompt(text string)
	GameOver(outcome Outcome)
	OpponentLost()
	ConnectionFailed(err error, retryIn time.Duration)
}
