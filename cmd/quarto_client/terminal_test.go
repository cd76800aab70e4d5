package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quarto/internal/quarto/client"
	"quarto/internal/quarto/models"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want client.Event
	}{
		{"local", client.Event{Kind: client.ModeSelected, Mode: client.Local}},
		{"  Online ", client.Event{Kind: client.ModeSelected, Mode: client.Online}},
		{"q", client.Event{Kind: client.Closed}},
		{"p 1010", client.Event{Kind: client.PieceChosen, Piece: models.Piece(0b1010)}},
		{"m 2 3", client.Event{Kind: client.LocationChosen, Row: 2, Col: 3}},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	for _, line := range []string{"", "jump", "p", "p 2", "p 10101", "m 1", "m a 1", "m 1 b"} {
		_, err := parseCommand(line)
		assert.Error(t, err, line)
	}
}

func TestReadInput(t *testing.T) {
	var out strings.Builder
	term := &terminal{out: &out}
	events := make(chan client.Event, 8)

	term.readInput(strings.NewReader("local\nbogus\np 0001\nquit\nm 0 0\n"), events)

	var got []client.Event
	for ev := range events {
		got = append(got, ev)
	}
	assert.Equal(t, []client.Event{
		{Kind: client.ModeSelected, Mode: client.Local},
		{Kind: client.PieceChosen, Piece: models.Piece(0b0001)},
		{Kind: client.Closed},
	}, got)
	assert.Contains(t, out.String(), "commands:")
}

func TestTerminalOutput(t *testing.T) {
	var out strings.Builder
	term := &terminal{out: &out}

	board := models.NewBoard()
	require.NoError(t, board.Place(1, 2, models.Piece(0b1111)))
	term.Board(board.Snapshot())
	term.GameOver(client.Outcome{Winner: models.Player2})
	term.GameOver(client.Outcome{Winner: models.Player1, Self: models.Player1})
	term.GameOver(client.Outcome{Self: models.Player1, Draw: true})
	term.ConnectionFailed(assert.AnError, 3*time.Second)

	text := out.String()
	assert.Contains(t, text, "1  .... .... 1111 ....\n")
	// 1111 is on the board
	assert.Contains(t, text, "unplayed: 0000 0001")
	assert.Contains(t, text, " 1101 1110\n")
	assert.Contains(t, text, "Player 2 wins!")
	assert.Contains(t, text, "You win!")
	assert.Contains(t, text, "Draw")
	assert.Contains(t, text, "retrying in 3s")
}
