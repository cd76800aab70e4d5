package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quarto/internal/quarto/models"
	"quarto/internal/quarto/network"
	"quarto/internal/quarto/protocol"
)

// inbound is one read from the server connection.
type inbound struct {
	msg string
	err error
}

// result returns the message, turning a session start into a restartError.
func (in inbound) result() (string, error) {
	if in.err != nil {
		return "", in.err
	}
	if slot, first, err := protocol.ParseStart(in.msg); err == nil {
		return "", &restartError{slot: slot, first: first}
	}
	return in.msg, nil
}

// readServer pumps messages from peer until a read fails or ctx is done.
func readServer(ctx context.Context, peer *network.Peer) <-chan inbound {
	ch := make(chan inbound)
	go func() {
		for {
			msg, err := peer.Receive(ctx)
			select {
			case ch <- inbound{msg: msg, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// playOnline connects to the server, retrying until it answers, and plays
// one game. A connection lost mid-game reconnects and joins a new game.
func (c *Controller) playOnline(ctx context.Context) error {
	for {
		c.presenter.Prompt("Connecting to the server...")
		t, err := network.DialWithRetry(ctx, c.dial, c.retry, func(err error, wait time.Duration) {
			c.logger.Warn("connecting to server failed", zap.Error(err), zap.Duration("retry_in", wait))
			c.presenter.ConnectionFailed(err, wait)
		})
		if err != nil {
			return err
		}

		peer := network.NewPeer(t, c.logger)
		err = c.playConnected(ctx, peer)
		peer.Close()
		if !errors.Is(err, network.ErrConnectionLost) || ctx.Err() != nil {
			return err
		}

		c.logger.Warn("lost connection to server", zap.Error(err))
		c.presenter.ConnectionFailed(err, c.retry)
	}
}

// playConnected joins matchmaking on an open connection and plays until a
// game ends. Being paired again after the opponent dropped starts over on
// the same connection.
func (c *Controller) playConnected(ctx context.Context, peer *network.Peer) error {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.server = readServer(cctx, peer)
	defer func() { c.server = nil }()

	if err := peer.Send(protocol.RolePlayer); err != nil {
		return err
	}
	c.presenter.Prompt("Waiting for an opponent...")

	msg, err := c.receive(ctx)
	var start *restartError
	if !errors.As(err, &start) {
		if err == nil {
			err = fmt.Errorf("%w: expected a session start, got %q", protocol.ErrMalformed, msg)
		}
		return err
	}

	for {
		err := c.playGame(ctx, peer, start.slot, start.first)
		if !errors.As(err, &start) {
			return err
		}
		c.logger.Info("opponent disconnected, starting a new game", zap.Int("slot", int(start.slot)))
		c.presenter.OpponentLost()
	}
}

// receive waits for the next server message. Local input arriving meanwhile
// is ignored, except for Closed.
func (c *Controller) receive(ctx context.Context) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case in := <-c.server:
			return in.result()
		case ev, ok := <-c.events:
			if !ok || ev.Kind == Closed {
				return "", ErrClosed
			}
			c.logger.Debug("ignoring input while waiting for the server", zap.Int("kind", int(ev.Kind)))
		}
	}
}

// confirm sends a locally chosen value and returns the server's echo, which
// is what the game continues with.
func (c *Controller) confirm(ctx context.Context, peer *network.Peer, value string) (string, error) {
	if err := peer.Send(value); err != nil {
		return "", err
	}
	echo, err := c.receive(ctx)
	if err != nil {
		return "", err
	}
	if echo != value {
		c.logger.Warn("server echoed a different value", zap.String("sent", value), zap.String("echo", echo))
	}
	return echo, nil
}

// follow tells the server we are still here and returns the opponent's value.
func (c *Controller) follow(ctx context.Context, peer *network.Peer) (string, error) {
	if err := peer.Send(protocol.Placeholder); err != nil {
		return "", err
	}
	return c.receive(ctx)
}

func (c *Controller) playGame(ctx context.Context, peer *network.Peer, slot, first models.Slot) error {
	c.board.Reset()
	if err := peer.Send(protocol.Ready); err != nil {
		return err
	}
	c.presenter.Board(c.board.Snapshot())
	turn := models.Turn{Player: first, Phase: models.Choosing}

	for {
		var pieceMsg string
		var err error
		if turn.Player == slot {
			c.presenter.Prompt("Pick a piece for your opponent to play")
			var piece models.Piece
			piece, err = c.awaitPiece(ctx)
			if err != nil {
				return err
			}
			pieceMsg, err = c.confirm(ctx, peer, protocol.FormatPiece(piece))
		} else {
			c.presenter.Prompt("Your opponent is picking a piece for you")
			pieceMsg, err = c.follow(ctx, peer)
		}
		if err != nil {
			return err
		}
		piece, err := protocol.ParsePiece(pieceMsg)
		if err != nil {
			return err
		}
		turn = turn.Next()

		var locMsg string
		if turn.Player == slot {
			c.presenter.Prompt(fmt.Sprintf("Select where piece %s goes", piece.Bits()))
			var row, col int
			row, col, err = c.awaitLocation(ctx)
			if err != nil {
				return err
			}
			locMsg, err = c.confirm(ctx, peer, protocol.RenderLocation(row, col))
		} else {
			c.presenter.Prompt(fmt.Sprintf("Your opponent is placing piece %s", piece.Bits()))
			locMsg, err = c.follow(ctx, peer)
		}
		if err != nil {
			return err
		}
		row, col, err := protocol.ParseLocation(locMsg)
		if err != nil {
			return err
		}
		if err := c.board.Place(row, col, piece); err != nil {
			return err
		}
		turn = turn.Next()
		c.presenter.Board(c.board.Snapshot())

		if _, over := c.finished(turn.Player, slot); over {
			return nil
		}
	}
}
