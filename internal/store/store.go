package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

var sqlBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is the persistence gateway over the relational database. All access
// is through parameterized queries.
type Store struct {
	db *sql.DB
}

func Open(databaseURL string) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle (tests).
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id          TEXT PRIMARY KEY,
    username    TEXT NOT NULL UNIQUE,
    email       TEXT NOT NULL UNIQUE,
    avatar_url  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS friends (
    requester_id TEXT NOT NULL,
    recipient_id TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'pending',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (requester_id, recipient_id)
);

CREATE TABLE IF NOT EXISTS games (
    id           TEXT PRIMARY KEY,
    player1_id   TEXT NOT NULL,
    player2_id   TEXT,
    winner_id    TEXT,
    status       TEXT NOT NULL,
    time_control INTEGER NOT NULL DEFAULT 600,
    start_time   TIMESTAMPTZ NOT NULL,
    end_time     TIMESTAMPTZ,
    pgn          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS moves (
    game_id        TEXT NOT NULL REFERENCES games(id),
    player_id      TEXT NOT NULL,
    move_number    INTEGER NOT NULL,
    move           TEXT NOT NULL,
    remaining_time INTEGER NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (game_id, move_number)
);

CREATE TABLE IF NOT EXISTS move_analysis (
    game_id     TEXT NOT NULL REFERENCES games(id),
    move_number INTEGER NOT NULL,
    best_move   TEXT NOT NULL DEFAULT '',
    evaluation  DOUBLE PRECISION NOT NULL DEFAULT 0,
    category    TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (game_id, move_number)
);
`

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
