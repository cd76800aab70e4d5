package models

import (
	"fmt"
	"math/rand"
)

// Slot identifies one of the two players of a game.
type Slot int

const (
	NoSlot  Slot = 0
	Player1 Slot = 1
	Player2 Slot = 2
)

func (s Slot) Other() Slot {
	if s == Player1 {
		return Player2
	}
	return Player1
}

func (s Slot) Valid() bool {
	return s == Player1 || s == Player2
}

type Phase int

const (
	Choosing Phase = iota
	Placing
)

func (p Phase) String() string {
	if p == Placing {
		return "placing"
	}
	return "choosing"
}

// Turn is the active player and what it is doing.
type Turn struct {
	Player Slot
	Phase  Phase
}

// NewTurn starts a game with a random first chooser.
func NewTurn(rng *rand.Rand) Turn {
	return Turn{Player: Slot(rng.Intn(2) + 1), Phase: Choosing}
}

// Next applies the single transition rule: a chooser hands over to the other
// player who places, and a placer becomes the next chooser.
func (t Turn) Next() Turn {
	if t.Phase == Choosing {
		return Turn{Player: t.Player.Other(), Phase: Placing}
	}
	return Turn{Player: t.Player, Phase: Choosing}
}

func (t Turn) String() string {
	return fmt.Sprintf("player %d %s", t.Player, t.Phase)
}
