// Package protocol defines the text values exchanged between the quarto
// server and its clients. Framing is left to the transport; every function
// here works on one logical message.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"quarto/internal/quarto/models"
)

const (
	// RolePlayer is the handshake a client sends to join matchmaking.
	RolePlayer = "player"
	// AdminStop makes the server stop accepting connections and shut down.
	AdminStop = "testing"
	// AdminReset ends every active game and clears the waiting slot.
	AdminReset = "testing2"

	// Placeholder is sent by the inactive player each exchange to prove it
	// is still connected.
	Placeholder = "wait"
	// Ready acknowledges a session start.
	Ready = "ready"
)

var ErrMalformed = errors.New("malformed message")

// FormatStart builds the session start message "<slot>,<first>".
func FormatStart(slot, first models.Slot) string {
	return fmt.Sprintf("%d,%d", slot, first)
}

func ParseStart(msg string) (slot, first models.Slot, err error) {
	parts := strings.Split(msg, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: start %q", ErrMalformed, msg)
	}
	s, err1 := strconv.Atoi(parts[0])
	f, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || !models.Slot(s).Valid() || !models.Slot(f).Valid() {
		return 0, 0, fmt.Errorf("%w: start %q", ErrMalformed, msg)
	}
	return models.Slot(s), models.Slot(f), nil
}

// IsStart reports whether msg is a session start message.
func IsStart(msg string) bool {
	_, _, err := ParseStart(msg)
	return err == nil
}

func FormatPiece(p models.Piece) string {
	return p.Bits()
}

// ParsePiece reads a 4 character string of '0' and '1'.
func ParsePiece(msg string) (models.Piece, error) {
	if len(msg) != 4 {
		return 0, fmt.Errorf("%w: piece %q", ErrMalformed, msg)
	}
	var p models.Piece
	for _, c := range msg {
		switch c {
		case '0':
			p <<= 1
		case '1':
			p = p<<1 | 1
		default:
			return 0, fmt.Errorf("%w: piece %q", ErrMalformed, msg)
		}
	}
	return p, nil
}

// RenderLocation renders a cell as a tuple, e.g. "(2, 3)".
func RenderLocation(row, col int) string {
	return fmt.Sprintf("(%d, %d)", row, col)
}

func ParseLocation(msg string) (row, col int, err error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(msg, "("), ")")
	parts := strings.Split(inner, ", ")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: location %q", ErrMalformed, msg)
	}
	row, err1 := strconv.Atoi(parts[0])
	col, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("%w: location %q", ErrMalformed, msg)
	}
	return row, col, nil
}
