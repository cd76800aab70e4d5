package models

import (
	"fmt"
	"strings"
)

// PieceCount is the number of distinct pieces in a game.
const PieceCount = 16

// Piece is one of the 16 game tokens. Each of the 4 bits selects one label
// of an attribute pair; the most significant bit is tall/short.
type Piece uint8

// Attribute pairs, ordered from the most significant bit.
var attributePairs = [4][2]string{
	{"tall", "short"},
	{"black", "white"},
	{"round", "square"},
	{"hollow", "full"},
}

// Has reports whether the piece carries the first label of attribute pair i.
func (p Piece) Has(i int) bool {
	return p&(1<<(3-i)) != 0
}

// Attributes returns the four labels of the piece, one per attribute pair.
func (p Piece) Attributes() []string {
	attrs := make([]string, 0, len(attributePairs))
	for i, pair := range attributePairs {
		if p.Has(i) {
			attrs = append(attrs, pair[0])
		} else {
			attrs = append(attrs, pair[1])
		}
	}
	return attrs
}

func (p Piece) Valid() bool {
	return p < PieceCount
}

// Bits renders the piece as the 4 character binary string used on the wire.
func (p Piece) Bits() string {
	return fmt.Sprintf("%04b", uint8(p))
}

func (p Piece) String() string {
	return p.Bits() + " (" + strings.Join(p.Attributes(), " ") + ")"
}
