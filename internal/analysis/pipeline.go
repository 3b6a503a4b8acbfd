package analysis

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hocuspocus07/freechess/internal/chesscore"
	"github.com/hocuspocus07/freechess/internal/domain"
	"github.com/hocuspocus07/freechess/internal/obslog"
	"github.com/hocuspocus07/freechess/internal/uci"
)

// Engine is the evaluation surface the pipeline drives. One engine instance
// is exclusively owned by one pipeline run and stopped when the run ends.
type Engine interface {
	Evaluate(ctx context.Context, fen string, lim uci.Limits) (uci.Result, error)
	Stop() error
}

// EngineFactory spawns a fresh engine for a run.
type EngineFactory func(ctx context.Context) (Engine, error)

// GameSource loads the persisted move sequence of a game.
type GameSource interface {
	ListMoves(ctx context.Context, gameID string) ([]domain.MoveRecord, error)
}

// ResultSink stores per-move analysis records. Re-analysis overwrites.
type ResultSink interface {
	UpsertAnalysis(ctx context.Context, records []domain.AnalysisRecord) error
}

// MoveAnalysis is the per-move outcome. Either Category is set or Err carries
// why this move could not be analyzed.
type MoveAnalysis struct {
	MoveNumber int      `json:"moveNumber"`
	Move       string   `json:"move"`
	BestMove   string   `json:"bestMove,omitempty"`
	Evaluation float64  `json:"evaluation"`
	Category   Category `json:"category,omitempty"`
	Err        string   `json:"error,omitempty"`
}

// Report aggregates a full run: best effort over all moves, never aborted by
// a single failing one.
type Report struct {
	GameID   string         `json:"gameId"`
	Total    int            `json:"total"`
	Analyzed int            `json:"analyzed"`
	Moves    []MoveAnalysis `json:"moves"`
}

// Config bounds the per-position search.
type Config struct {
	Depth          int
	MoveTimeMillis int
}

// maxEngineRestarts caps how many replacement engines one run may spawn after
// terminal engine failures.
const maxEngineRestarts = 2

// engineHandle owns the run's current engine and replaces it when a timeout
// or premature exit leaves the process dead.
type engineHandle struct {
	factory  EngineFactory
	eng      Engine
	restarts int
}

func (h *engineHandle) respawn(ctx context.Context) error {
	if h.restarts >= maxEngineRestarts {
		return fmt.Errorf("engine restart budget exhausted (%d)", maxEngineRestarts)
	}
	_ = h.eng.Stop()
	eng, err := h.factory(ctx)
	if err != nil {
		return fmt.Errorf("restart analysis engine: %w", err)
	}
	h.eng = eng
	h.restarts++
	return nil
}

func (h *engineHandle) stop() {
	_ = h.eng.Stop()
}

// Pipeline replays a stored game move by move, evaluates every reached
// position once, and classifies each played move by the evaluation delta.
type Pipeline struct {
	source  GameSource
	sink    ResultSink
	factory EngineFactory
	cfg     Config
}

func NewPipeline(source GameSource, sink ResultSink, factory EngineFactory, cfg Config) *Pipeline {
	if cfg.Depth <= 0 && cfg.MoveTimeMillis <= 0 {
		cfg.Depth = 12
	}
	return &Pipeline{source: source, sink: sink, factory: factory, cfg: cfg}
}

// AnalyzeGame loads the game's move sequence and runs the engine over it.
// Per-move failures (engine timeout, corrupt history entry) become failure
// entries; the remaining moves are still analyzed. The engine is stopped on
// every exit path.
func (p *Pipeline) AnalyzeGame(ctx context.Context, gameID string) (*Report, error) {
	records, err := p.source.ListMoves(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load moves for game %s: %w", gameID, err)
	}

	eng, err := p.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("start analysis engine: %w", err)
	}
	h := &engineHandle{factory: p.factory, eng: eng}
	defer h.stop()

	report := p.run(ctx, h, gameID, records)

	if p.sink != nil {
		if err := p.sink.UpsertAnalysis(ctx, report.toRecords(gameID)); err != nil {
			obslog.L().Error("analysis_persist_error",
				zap.String("game_id", gameID),
				zap.Error(err),
			)
		}
	}

	obslog.L().Info("analysis_done",
		zap.String("game_id", gameID),
		zap.Int("total", report.Total),
		zap.Int("analyzed", report.Analyzed),
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, h *engineHandle, gameID string, records []domain.MoveRecord) *Report {
	report := &Report{GameID: gameID, Total: len(records)}
	limits := uci.Limits{Depth: p.cfg.Depth, MoveTimeMillis: p.cfg.MoveTimeMillis}

	board := chesscore.NewBoard()

	// Evaluation of the position before the next move; its best move is the
	// one the mover should have played. A failed seed evaluation only costs
	// the bestMove comparison for that move.
	pending, pendingOK := p.evaluate(ctx, h, board.FEN(), limits, gameID, 0)

	for _, rec := range records {
		entry := MoveAnalysis{MoveNumber: rec.MoveNumber, Move: rec.Move}

		detail, err := board.ApplyMove(rec.Move)
		if err != nil {
			// Corrupt history entry: record and keep going against the
			// last good position so later moves get a chance.
			entry.Err = fmt.Sprintf("stored move does not apply: %v", err)
			report.Moves = append(report.Moves, entry)
			obslog.L().Warn("analysis_invalid_history",
				zap.String("game_id", gameID),
				zap.Int("move_number", rec.MoveNumber),
				zap.String("move", rec.Move),
			)
			continue
		}

		if detail.Terminal == chesscore.StatusCheckmate {
			entry.Category = CategoryCheckmate
			report.Moves = append(report.Moves, entry)
			report.Analyzed++
			pendingOK = false
			continue
		}

		after, ok := p.evaluate(ctx, h, detail.FEN, limits, gameID, rec.MoveNumber)
		if !ok {
			entry.Err = "engine evaluation failed"
			report.Moves = append(report.Moves, entry)
			pendingOK = false
			continue
		}

		// UCI scores are relative to the side to move, which after the
		// played move is the opponent. Flip to the mover's perspective.
		entry.Evaluation = -float64(after.ScoreCP) / 100
		if pendingOK {
			entry.BestMove = pending.BestMove
		}
		entry.Category = Classify(detail.UCI, entry.BestMove, entry.Evaluation)
		report.Moves = append(report.Moves, entry)
		report.Analyzed++

		// The post-move evaluation doubles as the pre-move evaluation of
		// the next ply; one engine call per position.
		pending, pendingOK = after, true
	}
	return report
}

// evaluate runs one search. A timeout or premature exit leaves the engine
// process dead, so those errors cost the current step only: the handle spawns
// a replacement for the moves still to come.
func (p *Pipeline) evaluate(ctx context.Context, h *engineHandle, fen string, lim uci.Limits, gameID string, moveNumber int) (uci.Result, bool) {
	res, err := h.eng.Evaluate(ctx, fen, lim)
	if err == nil {
		return res, true
	}
	obslog.L().Warn("analysis_eval_error",
		zap.String("game_id", gameID),
		zap.Int("move_number", moveNumber),
		zap.Error(err),
	)
	if errors.Is(err, uci.ErrEvalTimeout) || errors.Is(err, uci.ErrEngineClosed) {
		if rerr := h.respawn(ctx); rerr != nil {
			obslog.L().Error("analysis_engine_restart_error",
				zap.String("game_id", gameID),
				zap.Error(rerr),
			)
		}
	}
	return uci.Result{}, false
}

func (r *Report) toRecords(gameID string) []domain.AnalysisRecord {
	out := make([]domain.AnalysisRecord, 0, len(r.Moves))
	for _, m := range r.Moves {
		if m.Err != "" {
			continue
		}
		out = append(out, domain.AnalysisRecord{
			GameID:     gameID,
			MoveNumber: m.MoveNumber,
			BestMove:   m.BestMove,
			Evaluation: m.Evaluation,
			Category:   string(m.Category),
		})
	}
	return out
}
