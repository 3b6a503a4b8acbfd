package store

import (
	"context"
	"fmt"

	"github.com/hocuspocus07/freechess/internal/domain"
)

// UpsertAnalysis writes per-move analysis records. Re-analysis overwrites.
func (s *Store) UpsertAnalysis(ctx context.Context, records []domain.AnalysisRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := `INSERT INTO move_analysis (game_id, move_number, best_move, evaluation, category)
	      VALUES ($1,$2,$3,$4,$5)
	      ON CONFLICT (game_id, move_number) DO UPDATE SET
	        best_move = EXCLUDED.best_move,
	        evaluation = EXCLUDED.evaluation,
	        category = EXCLUDED.category`
	for _, rec := range records {
		if _, err := s.db.ExecContext(ctx, q,
			rec.GameID, rec.MoveNumber, rec.BestMove, rec.Evaluation, rec.Category,
		); err != nil {
			return fmt.Errorf("upsert analysis %s/%d: %w", rec.GameID, rec.MoveNumber, err)
		}
	}
	return nil
}

func (s *Store) ListAnalysis(ctx context.Context, gameID string) ([]domain.AnalysisRecord, error) {
	q := `SELECT game_id, move_number, best_move, evaluation, category
	      FROM move_analysis WHERE game_id = $1 ORDER BY move_number`
	rows, err := s.db.QueryContext(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("list analysis: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalysisRecord
	for rows.Next() {
		var r domain.AnalysisRecord
		if err := rows.Scan(&r.GameID, &r.MoveNumber, &r.BestMove, &r.Evaluation, &r.Category); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
