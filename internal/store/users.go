package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hocuspocus07/freechess/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	q := `INSERT INTO users (id, username, email, avatar_url) VALUES ($1,$2,$3,$4)`
	if _, err := s.db.ExecContext(ctx, q, u.ID, u.Username, u.Email, u.AvatarURL); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	q := `SELECT id, username, email, avatar_url, created_at FROM users WHERE id = $1`
	var u domain.User
	err := s.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Username, &u.Email, &u.AvatarURL, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// RequestFriend records a pending request, directional requester -> recipient.
func (s *Store) RequestFriend(ctx context.Context, requesterID, recipientID string) error {
	q := `INSERT INTO friends (requester_id, recipient_id, status)
	      VALUES ($1,$2,'pending') ON CONFLICT (requester_id, recipient_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, q, requesterID, recipientID); err != nil {
		return fmt.Errorf("request friend: %w", err)
	}
	return nil
}

// AcceptFriend flips a pending request to accepted. Only the recipient may
// accept.
func (s *Store) AcceptFriend(ctx context.Context, requesterID, recipientID string) error {
	q := `UPDATE friends SET status = 'accepted'
	      WHERE requester_id = $1 AND recipient_id = $2 AND status = 'pending'`
	res, err := s.db.ExecContext(ctx, q, requesterID, recipientID)
	if err != nil {
		return fmt.Errorf("accept friend: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFriends returns all relationships the user participates in, in either
// direction.
func (s *Store) ListFriends(ctx context.Context, userID string) ([]domain.Friendship, error) {
	q := `SELECT requester_id, recipient_id, status, created_at
	      FROM friends WHERE requester_id = $1 OR recipient_id = $1
	      ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var out []domain.Friendship
	for rows.Next() {
		var f domain.Friendship
		var status string
		if err := rows.Scan(&f.RequesterID, &f.RecipientID, &status, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Status = domain.FriendStatus(status)
		out = append(out, f)
	}
	return out, rows.Err()
}
