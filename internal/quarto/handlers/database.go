package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quarto/internal/quarto/models"
)

const recordTimeout = 5 * time.Second

// Recorder stores finished games. db.ResultStore is the Postgres one.
type Recorder interface {
	Record(ctx context.Context, r models.GameResult) error
}

// recordResults drains the results channel until it is closed.
func (s *Server) recordResults() {
	defer close(s.recorded)

	for r := range s.results {
		s.logger.Info("game finished",
			zap.String("game_id", r.GameID),
			zap.String("outcome", string(r.Outcome)),
			zap.Int("winner", int(r.Winner)),
			zap.Int("rounds", r.Rounds),
			zap.Duration("duration", r.EndedAt.Sub(r.StartedAt)))

		if s.recorder == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := s.recorder.Record(ctx, r); err != nil {
			s.logger.Error("error recording game result", zap.String("game_id", r.GameID), zap.Error(err))
		}
		cancel()
	}
}
