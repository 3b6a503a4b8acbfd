package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hocuspocus07/freechess/internal/chesscore"
	"github.com/hocuspocus07/freechess/internal/obslog"
	"github.com/hocuspocus07/freechess/internal/uci"
)

// Engine is the one-shot evaluation surface the service drives.
type Engine interface {
	Evaluate(ctx context.Context, fen string, lim uci.Limits) (uci.Result, error)
	Stop() error
}

// EngineFactory spawns an engine configured for a target strength.
type EngineFactory func(ctx context.Context, opt uci.Options) (Engine, error)

// Move is a committed bot move in every notation callers need.
type Move struct {
	UCI  string
	SAN  string
	FEN  string
	Turn string
}

// Service produces a single best move at a strength level. Each request owns
// its engine process exclusively and stops it before returning.
type Service struct {
	factory EngineFactory
}

func NewService(factory EngineFactory) *Service {
	return &Service{factory: factory}
}

// depthForRating maps a target rating to a coarse search depth tier.
func depthForRating(rating int) int {
	switch {
	case rating < 800:
		return 2
	case rating < 1200:
		return 4
	case rating < 1600:
		return 8
	case rating < 2000:
		return 12
	default:
		return 16
	}
}

// BestMove evaluates the position and converts the engine's coordinate move
// into the application representation by applying it through the position
// adapter. An engine move that does not apply to the position is an error;
// a corrupt history must never silently produce an illegal persisted move.
func (s *Service) BestMove(ctx context.Context, fen string, rating int) (Move, error) {
	board, err := chesscore.FromFEN(fen)
	if err != nil {
		return Move{}, fmt.Errorf("bot position: %w", err)
	}

	opt := uci.Options{
		Threads:       1,
		HashMB:        64,
		Elo:           rating,
		LimitStrength: rating > 0,
	}
	eng, err := s.factory(ctx, opt)
	if err != nil {
		return Move{}, fmt.Errorf("start bot engine: %w", err)
	}
	defer func() {
		_ = eng.Stop()
	}()

	res, err := eng.Evaluate(ctx, board.FEN(), uci.Limits{Depth: depthForRating(rating)})
	if err != nil {
		return Move{}, fmt.Errorf("bot evaluation: %w", err)
	}
	best := strings.ToLower(strings.TrimSpace(res.BestMove))
	if best == "" {
		return Move{}, uci.ErrNoBestMove
	}

	detail, err := board.ApplyMove(best)
	if err != nil {
		return Move{}, fmt.Errorf("engine move %q does not apply: %w", best, err)
	}

	obslog.L().Info("bot_move",
		zap.String("move", detail.SAN),
		zap.Int("rating", rating),
		zap.Int("depth", depthForRating(rating)),
		zap.Int("score_cp", res.ScoreCP),
	)
	return Move{UCI: detail.UCI, SAN: detail.SAN, FEN: detail.FEN, Turn: board.Turn()}, nil
}
