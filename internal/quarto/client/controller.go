// Package client drives one player's view of a quarto game, either with both
// players at the same keyboard or against a remote opponent through the
// server.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"quarto/internal/quarto/models"
	"quarto/internal/quarto/network"
)

// ErrClosed is returned once the presentation layer has gone away.
var ErrClosed = errors.New("controller closed")

// restartError reports a session start from the server. Received mid-game
// it means the opponent disconnected and we were paired again.
type restartError struct {
	slot  models.Slot
	first models.Slot
}

func (e *restartError) Error() string {
	return fmt.Sprintf("new game as player %d", e.slot)
}

type Controller struct {
	board     *models.Board
	events    <-chan Event
	presenter Presenter
	dial      network.Dialer
	retry     time.Duration
	rng       *rand.Rand
	logger    *zap.Logger

	// server delivers messages from the server during online play and is
	// nil otherwise.
	server     <-chan inbound
	prevWinner models.Slot
}

func NewController(events <-chan Event, presenter Presenter, dial network.Dialer, retry time.Duration, logger *zap.Logger) *Controller {
	return &Controller{
		board:     models.NewBoard(),
		events:    events,
		presenter: presenter,
		dial:      dial,
		retry:     retry,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:    logger,
	}
}

// Run waits for a mode, plays one game in it and repeats until ctx is done
// or the presentation layer closes.
func (c *Controller) Run(ctx context.Context) error {
	for {
		c.presenter.Prompt("Choose local or online play")
		ev, err := c.next(ctx)
		if err != nil {
			return c.exit(err)
		}
		if ev.Kind != ModeSelected {
			continue
		}

		c.logger.Info("starting game", zap.Stringer("mode", ev.Mode))
		if ev.Mode == Online {
			err = c.playOnline(ctx)
		} else {
			err = c.playLocal(ctx)
		}
		if errors.Is(err, ErrClosed) || ctx.Err() != nil {
			return c.exit(err)
		}
		if err != nil {
			c.logger.Error("game failed", zap.Error(err))
			c.presenter.Prompt("Game failed: " + err.Error())
		}
	}
}

func (c *Controller) exit(err error) error {
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// next returns the next input event. During online play the server is
// watched too: a lost connection or a new session start ends the wait.
func (c *Controller) next(ctx context.Context) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case in := <-c.server:
			if _, err := in.result(); err != nil {
				return Event{}, err
			}
			c.logger.Warn("unexpected message from server", zap.String("msg", in.msg))
		case ev, ok := <-c.events:
			if !ok || ev.Kind == Closed {
				return Event{}, ErrClosed
			}
			return ev, nil
		}
	}
}

// awaitPiece waits for an unplayed piece to be picked; other input is ignored.
func (c *Controller) awaitPiece(ctx context.Context) (models.Piece, error) {
	for {
		ev, err := c.next(ctx)
		if err != nil {
			return 0, err
		}
		if ev.Kind == PieceChosen && c.board.IsUnplayed(ev.Piece) {
			return ev.Piece, nil
		}
		c.logger.Debug("ignoring input while choosing", zap.Int("kind", int(ev.Kind)))
	}
}

// awaitLocation waits for an empty cell to be picked.
func (c *Controller) awaitLocation(ctx context.Context) (int, int, error) {
	for {
		ev, err := c.next(ctx)
		if err != nil {
			return 0, 0, err
		}
		if ev.Kind == LocationChosen && ev.Row >= 0 && ev.Row < models.Size && ev.Col >= 0 && ev.Col < models.Size {
			if _, occupied := c.board.At(ev.Row, ev.Col); !occupied {
				return ev.Row, ev.Col, nil
			}
		}
		c.logger.Debug("ignoring input while placing", zap.Int("kind", int(ev.Kind)))
	}
}

// finished reports the game result once the last placement won or filled
// the board, and clears the board for the next game.
func (c *Controller) finished(placer, self models.Slot) (Outcome, bool) {
	var outcome Outcome
	switch {
	case c.board.CheckWin():
		outcome = Outcome{Winner: placer, Self: self}
	case c.board.Full():
		outcome = Outcome{Self: self, Draw: true}
	default:
		return outcome, false
	}

	c.logger.Info("game over", zap.Int("winner", int(outcome.Winner)), zap.Bool("draw", outcome.Draw))
	c.presenter.GameOver(outcome)
	c.board.Reset()
	return outcome, true
}

func (c *Controller) playLocal(ctx context.Context) error {
	c.board.Reset()
	turn := models.Turn{Player: c.prevWinner, Phase: models.Choosing}
	if !turn.Player.Valid() {
		turn = models.NewTurn(c.rng)
	}
	c.presenter.Board(c.board.Snapshot())

	for {
		c.presenter.Prompt(fmt.Sprintf("Player %d picks a piece for Player %d to play", turn.Player, turn.Player.Other()))
		piece, err := c.awaitPiece(ctx)
		if err != nil {
			return err
		}
		turn = turn.Next()

		c.presenter.Prompt(fmt.Sprintf("Player %d select where piece %s goes", turn.Player, piece.Bits()))
		row, col, err := c.awaitLocation(ctx)
		if err != nil {
			return err
		}
		if err := c.board.Place(row, col, piece); err != nil {
			return err
		}
		turn = turn.Next()
		c.presenter.Board(c.board.Snapshot())

		if outcome, over := c.finished(turn.Player, models.NoSlot); over {
			// the winner opens the next local game
			c.prevWinner = outcome.Winner
			return nil
		}
	}
}
