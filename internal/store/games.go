package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/hocuspocus07/freechess/internal/domain"
)

func (s *Store) CreateGame(ctx context.Context, g domain.Game) error {
	q := `INSERT INTO games (id, player1_id, player2_id, winner_id, status, time_control, start_time)
	      VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7)`
	_, err := s.db.ExecContext(ctx, q,
		g.ID, g.Player1ID, g.Player2ID, g.WinnerID, string(g.Status), g.TimeControl, g.StartTime,
	)
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, id string) (domain.Game, error) {
	q := `SELECT id, player1_id, COALESCE(player2_id,''), COALESCE(winner_id,''),
	             status, time_control, start_time, COALESCE(end_time, 'epoch'::timestamptz), pgn
	      FROM games WHERE id = $1`
	var g domain.Game
	var status string
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&g.ID, &g.Player1ID, &g.Player2ID, &g.WinnerID,
		&status, &g.TimeControl, &g.StartTime, &g.EndTime, &g.PGN,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Game{}, ErrNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("get game: %w", err)
	}
	g.Status = domain.GameStatus(status)
	return g, nil
}

// GameFilter narrows ListGames. Zero values mean "any".
type GameFilter struct {
	PlayerID string
	Status   domain.GameStatus
	Limit    uint64
	Offset   uint64
}

func (s *Store) ListGames(ctx context.Context, filter GameFilter) ([]domain.Game, error) {
	query := sqlBuilder.Select(
		"id", "player1_id", "COALESCE(player2_id,'')", "COALESCE(winner_id,'')",
		"status", "time_control", "start_time", "COALESCE(end_time, 'epoch'::timestamptz)", "pgn",
	).From("games")

	if filter.PlayerID != "" {
		query = query.Where(sq.Or{
			sq.Eq{"player1_id": filter.PlayerID},
			sq.Eq{"player2_id": filter.PlayerID},
		})
	}
	if filter.Status != "" {
		query = query.Where(sq.Eq{"status": string(filter.Status)})
	}
	query = query.OrderBy("start_time DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	sqlText, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build games query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []domain.Game
	for rows.Next() {
		var g domain.Game
		var status string
		if err := rows.Scan(
			&g.ID, &g.Player1ID, &g.Player2ID, &g.WinnerID,
			&status, &g.TimeControl, &g.StartTime, &g.EndTime, &g.PGN,
		); err != nil {
			return nil, err
		}
		g.Status = domain.GameStatus(status)
		out = append(out, g)
	}
	return out, rows.Err()
}

// SetOutcome finalizes a game: winner, terminal status, end time, and the PGN
// text rebuilt from the persisted SAN sequence.
func (s *Store) SetOutcome(ctx context.Context, gameID, winnerID string, status domain.GameStatus, endTime time.Time) error {
	pgn := ""
	if records, err := s.ListMoves(ctx, gameID); err == nil {
		pgn = buildPGN(gameID, records, winnerID, status)
	}
	q := `UPDATE games SET winner_id = NULLIF($2,''), status = $3, end_time = $4, pgn = $5 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, gameID, winnerID, string(status), endTime, pgn)
	if err != nil {
		return fmt.Errorf("set outcome: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) InsertMove(ctx context.Context, rec domain.MoveRecord) error {
	q := `INSERT INTO moves (game_id, player_id, move_number, move, remaining_time)
	      VALUES ($1,$2,$3,$4,$5)`
	_, err := s.db.ExecContext(ctx, q,
		rec.GameID, rec.PlayerID, rec.MoveNumber, rec.Move, rec.RemainingTime,
	)
	if err != nil {
		return fmt.Errorf("insert move: %w", err)
	}
	return nil
}

func (s *Store) ListMoves(ctx context.Context, gameID string) ([]domain.MoveRecord, error) {
	q := `SELECT game_id, player_id, move_number, move, remaining_time, created_at
	      FROM moves WHERE game_id = $1 ORDER BY move_number`
	rows, err := s.db.QueryContext(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("list moves: %w", err)
	}
	defer rows.Close()

	var out []domain.MoveRecord
	for rows.Next() {
		var r domain.MoveRecord
		if err := rows.Scan(&r.GameID, &r.PlayerID, &r.MoveNumber, &r.Move, &r.RemainingTime, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CleanupAbandoned removes waiting games with no moves older than the
// retention window and returns the number reclaimed.
func (s *Store) CleanupAbandoned(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	q := `DELETE FROM games
	      WHERE status = 'waiting'
	        AND start_time < $1
	        AND NOT EXISTS (SELECT 1 FROM moves WHERE moves.game_id = games.id)`
	res, err := s.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup abandoned games: %w", err)
	}
	return res.RowsAffected()
}
