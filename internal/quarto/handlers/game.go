package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quarto/internal/quarto/models"
	"quarto/internal/quarto/network"
	"quarto/internal/quarto/protocol"
)

// Session arbitrates one game between two peers. Peer i plays slot i+1.
type Session struct {
	ID string

	peers        [2]*network.Peer
	board        *models.Board
	turn         models.Turn
	rounds       int
	startedAt    time.Time
	readyTimeout time.Duration

	requeue func(*network.Peer)
	logger  *zap.Logger
}

func NewSession(first, second *network.Peer, starter models.Slot, readyTimeout time.Duration, requeue func(*network.Peer), logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		ID:           id,
		peers:        [2]*network.Peer{first, second},
		board:        models.NewBoard(),
		turn:         models.Turn{Player: starter, Phase: models.Choosing},
		readyTimeout: readyTimeout,
		requeue:      requeue,
		logger:       logger.With(zap.String("game_id", id)),
	}
}

func (s *Session) peer(slot models.Slot) *network.Peer {
	return s.peers[slot-1]
}

// Run plays until the game is won or drawn, a player is lost, or ctx is
// cancelled, and reports how it ended.
func (s *Session) Run(ctx context.Context) models.GameResult {
	s.startedAt = time.Now()
	s.logger.Info("game started",
		zap.String("player1", s.peers[0].RemoteAddr()),
		zap.String("player2", s.peers[1].RemoteAddr()),
		zap.Int("first", int(s.turn.Player)))

	for i, p := range s.peers {
		if err := p.Send(protocol.FormatStart(models.Slot(i+1), s.turn.Player)); err != nil {
			return s.abort(ctx, err)
		}
	}
	if err := s.awaitReady(ctx); err != nil {
		return s.abort(ctx, err)
	}

	for {
		over, err := s.playRound(ctx)
		if err != nil {
			return s.abort(ctx, err)
		}
		if over {
			return s.endGame()
		}
	}
}

// collect awaits one message from each peer concurrently. Messages for
// which accept returns false are discarded. Messages already collected are
// returned even when err is set.
func (s *Session) collect(ctx context.Context, accept func(string) bool) (map[models.Slot]string, error) {
	var mu sync.Mutex
	inbox := make(map[models.Slot]string, len(s.peers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.peers {
		slot := models.Slot(i + 1)
		g.Go(func() error {
			for {
				msg, err := p.Receive(gctx)
				if err != nil {
					return err
				}
				if accept != nil && !accept(msg) {
					s.logger.Debug("discarding message", zap.Int("player", int(slot)), zap.String("msg", msg))
					continue
				}
				mu.Lock()
				inbox[slot] = msg
				mu.Unlock()
				return nil
			}
		})
	}
	err := g.Wait()

	mu.Lock()
	defer mu.Unlock()
	return inbox, err
}

// awaitReady waits for both players to acknowledge the start. Anything a
// player sent for a game it was in before is dropped. A player that stays
// silent past the timeout is disconnected.
func (s *Session) awaitReady(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, s.readyTimeout)
	defer cancel()

	inbox, err := s.collect(rctx, func(msg string) bool { return msg == protocol.Ready })
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		for i, p := range s.peers {
			if _, ok := inbox[models.Slot(i+1)]; !ok {
				s.logger.Warn("player did not acknowledge the game", zap.Int("player", i+1))
				p.Close()
			}
		}
		return fmt.Errorf("%w: start not acknowledged", network.ErrConnectionLost)
	}
	return err
}

// exchange runs one two-phase handshake: collect from both, keep the active
// player's value, echo it to both.
func (s *Session) exchange(ctx context.Context, validate func(string) error) (string, error) {
	inbox, err := s.collect(ctx, nil)
	if err != nil {
		return "", err
	}

	active := s.turn.Player
	value := inbox[active]
	if other := inbox[active.Other()]; other != protocol.Placeholder && other != value {
		s.logger.Warn("players out of sync",
			zap.String("turn", s.turn.String()),
			zap.String("active", value),
			zap.String("other", other))
	}

	if err := validate(value); err != nil {
		return "", s.reject(active, err)
	}
	if err := s.broadcast(value); err != nil {
		return "", err
	}
	return value, nil
}

func (s *Session) playRound(ctx context.Context) (bool, error) {
	var piece models.Piece
	_, err := s.exchange(ctx, func(msg string) error {
		p, err := protocol.ParsePiece(msg)
		if err != nil {
			return err
		}
		if !s.board.IsUnplayed(p) {
			return fmt.Errorf("%w: piece %s already played", models.ErrInvalidMove, msg)
		}
		piece = p
		return nil
	})
	if err != nil {
		return false, err
	}
	s.turn = s.turn.Next()

	_, err = s.exchange(ctx, func(msg string) error {
		row, col, err := protocol.ParseLocation(msg)
		if err != nil {
			return err
		}
		return s.board.Place(row, col, piece)
	})
	if err != nil {
		return false, err
	}
	s.turn = s.turn.Next()
	s.rounds++

	return s.board.CheckWin() || s.board.Full(), nil
}

func (s *Session) broadcast(msg string) error {
	for _, p := range s.peers {
		if err := p.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// reject disconnects a player that sent something the game cannot accept.
func (s *Session) reject(slot models.Slot, err error) error {
	s.logger.Warn("rejecting move", zap.Int("player", int(slot)), zap.Error(err))
	s.peer(slot).Close()
	return fmt.Errorf("player %d: %w", slot, err)
}

func (s *Session) result(outcome models.Outcome, winner models.Slot) models.GameResult {
	return models.GameResult{
		GameID:    s.ID,
		Player1:   s.peers[0].RemoteAddr(),
		Player2:   s.peers[1].RemoteAddr(),
		Winner:    winner,
		Outcome:   outcome,
		Rounds:    s.rounds,
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
	}
}

func (s *Session) endGame() models.GameResult {
	for _, p := range s.peers {
		p.Close()
	}

	if s.board.CheckWin() {
		// the placer of the last round is the next chooser
		winner := s.turn.Player
		s.logger.Info("game won", zap.Int("winner", int(winner)), zap.Int("rounds", s.rounds))
		return s.result(models.OutcomeWin, winner)
	}
	s.logger.Info("game drawn", zap.Int("rounds", s.rounds))
	return s.result(models.OutcomeDraw, models.NoSlot)
}

// abort ends the game early. When the server is shutting the game down both
// players are disconnected; otherwise every player still connected goes back
// to matchmaking.
func (s *Session) abort(ctx context.Context, err error) models.GameResult {
	if ctx.Err() != nil {
		s.logger.Info("game cancelled", zap.Error(ctx.Err()))
		for _, p := range s.peers {
			p.Close()
		}
		return s.result(models.OutcomeReset, models.NoSlot)
	}

	s.logger.Warn("a player disconnected, finding the other player a new game", zap.Error(err))
	for _, p := range s.peers {
		if p.Alive() {
			s.requeue(p)
		} else {
			p.Close()
		}
	}
	return s.result(models.OutcomeAborted, models.NoSlot)
}
