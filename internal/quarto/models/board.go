package models

import (
	"errors"
	"fmt"
	"sort"
)

const Size = 4

var ErrInvalidMove = errors.New("invalid move")

type Cell struct {
	Piece    Piece
	Occupied bool
}

// Board is the 4x4 grid plus the set of pieces not yet played.
type Board struct {
	cells    [Size][Size]Cell
	unplayed map[Piece]struct{}
}

// Snapshot is a copy of the board handed to the presentation layer.
type Snapshot struct {
	Cells    [Size][Size]Cell
	Unplayed []Piece
}

func NewBoard() *Board {
	b := &Board{}
	b.Reset()
	return b
}

func (b *Board) Reset() {
	b.cells = [Size][Size]Cell{}
	b.unplayed = make(map[Piece]struct{}, PieceCount)
	for p := Piece(0); p < PieceCount; p++ {
		b.unplayed[p] = struct{}{}
	}
}

// Place puts an unplayed piece on an empty cell.
func (b *Board) Place(row, col int, p Piece) error {
	if row < 0 || row >= Size || col < 0 || col >= Size {
		return fmt.Errorf("%w: cell (%d, %d) out of bounds", ErrInvalidMove, row, col)
	}
	if b.cells[row][col].Occupied {
		return fmt.Errorf("%w: cell (%d, %d) already occupied", ErrInvalidMove, row, col)
	}
	if !b.IsUnplayed(p) {
		return fmt.Errorf("%w: piece %s already played", ErrInvalidMove, p.Bits())
	}

	b.cells[row][col] = Cell{Piece: p, Occupied: true}
	delete(b.unplayed, p)
	return nil
}

func (b *Board) At(row, col int) (Piece, bool) {
	c := b.cells[row][col]
	return c.Piece, c.Occupied
}

func (b *Board) IsUnplayed(p Piece) bool {
	_, ok := b.unplayed[p]
	return ok
}

// Unplayed returns the pieces still available, in ascending order.
func (b *Board) Unplayed() []Piece {
	pieces := make([]Piece, 0, len(b.unplayed))
	for p := range b.unplayed {
		pieces = append(pieces, p)
	}
	sort.Slice(pieces, func(i, j int) bool { return pieces[i] < pieces[j] })
	return pieces
}

func (b *Board) Placed() int {
	return PieceCount - len(b.unplayed)
}

// Full reports whether every piece has been played.
func (b *Board) Full() bool {
	return len(b.unplayed) == 0
}

func (b *Board) Snapshot() Snapshot {
	return Snapshot{Cells: b.cells, Unplayed: b.Unplayed()}
}

// lines holds the 4 rows, 4 columns and 2 diagonals.
var lines = func() [][Size][2]int {
	var ls [][Size][2]int
	for i := 0; i < Size; i++ {
		var row, col [Size][2]int
		for j := 0; j < Size; j++ {
			row[j] = [2]int{i, j}
			col[j] = [2]int{j, i}
		}
		ls = append(ls, row, col)
	}
	var diag, anti [Size][2]int
	for i := 0; i < Size; i++ {
		diag[i] = [2]int{i, i}
		anti[i] = [2]int{i, Size - 1 - i}
	}
	return append(ls, diag, anti)
}()

// CheckWin reports whether any line holds 4 pieces sharing a label.
// Presence and absence of each attribute get separate counters, so one pass
// covers both polarities.
func (b *Board) CheckWin() bool {
	for _, line := range lines {
		var counts [2 * len(attributePairs)]int
		for _, pos := range line {
			cell := b.cells[pos[0]][pos[1]]
			if !cell.Occupied {
				continue
			}
			for i := range attributePairs {
				if cell.Piece.Has(i) {
					counts[2*i]++
				} else {
					counts[2*i+1]++
				}
			}
		}
		for _, n := range counts {
			if n >= Size {
				return true
			}
		}
	}
	return false
}
