package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"quarto/internal/quarto/client"
	"quarto/internal/quarto/models"
	"quarto/internal/quarto/protocol"
)

var errUnknownCommand = errors.New("unknown command")

const help = `commands:
  local | online     start a game
  p <bits>           pick a piece, e.g. p 1010
  m <row> <col>      place the piece, rows and columns 0-3
  quit`

// terminal is a line based client.Presenter.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func (t *terminal) printf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) Board(s models.Snapshot) {
	var b strings.Builder
	b.WriteString("   0    1    2    3\n")
	for r, row := range s.Cells {
		fmt.Fprintf(&b, "%d ", r)
		for _, cell := range row {
			if cell.Occupied {
				fmt.Fprintf(&b, " %s", cell.Piece.Bits())
			} else {
				b.WriteString(" ....")
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("unplayed:")
	for _, p := range s.Unplayed {
		b.WriteString(" " + p.Bits())
	}
	t.printf("%s\n", b.String())
}

func (t *terminal) Prompt(text string) {
	t.printf("> %s\n", text)
}

func (t *terminal) GameOver(o client.Outcome) {
	switch {
	case o.Draw:
		t.printf("Draw, the board is full.\n")
	case !o.Self.Valid():
		t.printf("Player %d wins!\n", o.Winner)
	case o.Won():
		t.printf("You win!\n")
	default:
		t.printf("You lose.\n")
	}
}

func (t *terminal) OpponentLost() {
	t.printf("Your opponent disconnected, starting a new game.\n")
}

func (t *terminal) ConnectionFailed(err error, retryIn time.Duration) {
	t.printf("Cannot reach the server (%v), retrying in %s.\n", err, retryIn)
}

// parseCommand turns one input line into an event.
func parseCommand(line string) (client.Event, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return client.Event{}, errUnknownCommand
	}

	switch fields[0] {
	case "local", "l":
		return client.Event{Kind: client.ModeSelected, Mode: client.Local}, nil
	case "online", "o":
		return client.Event{Kind: client.ModeSelected, Mode: client.Online}, nil
	case "quit", "q", "exit":
		return client.Event{Kind: client.Closed}, nil
	case "p", "pick":
		if len(fields) != 2 {
			return client.Event{}, fmt.Errorf("usage: p <bits>")
		}
		piece, err := protocol.ParsePiece(fields[1])
		if err != nil {
			return client.Event{}, err
		}
		return client.Event{Kind: client.PieceChosen, Piece: piece}, nil
	case "m", "move":
		if len(fields) != 3 {
			return client.Event{}, fmt.Errorf("usage: m <row> <col>")
		}
		row, err := strconv.Atoi(fields[1])
		if err != nil {
			return client.Event{}, fmt.Errorf("invalid row %q", fields[1])
		}
		col, err := strconv.Atoi(fields[2])
		if err != nil {
			return client.Event{}, fmt.Errorf("invalid column %q", fields[2])
		}
		return client.Event{Kind: client.LocationChosen, Row: row, Col: col}, nil
	}
	return client.Event{}, errUnknownCommand
}

// readInput feeds parsed lines into events until r is exhausted.
func (t *terminal) readInput(r io.Reader, events chan<- client.Event) {
	defer close(events)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		ev, err := parseCommand(scanner.Text())
		if err != nil {
			if errors.Is(err, errUnknownCommand) {
				t.printf("%s\n", help)
			} else {
				t.printf("%v\n", err)
			}
			continue
		}
		events <- ev
		if ev.Kind == client.Closed {
			return
		}
	}
}
