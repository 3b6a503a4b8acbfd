package domain

import "time"

// BotPlayerID is the sentinel opponent id for games played against the engine.
const BotPlayerID = "bot"

type GameStatus string

const (
	GameWaiting   GameStatus = "waiting"
	GameActive    GameStatus = "active"
	GameCompleted GameStatus = "completed"
	GameDraw      GameStatus = "draw"
)

// Terminal reports whether the status admits no further moves.
func (s GameStatus) Terminal() bool {
	return s == GameCompleted || s == GameDraw
}

type Game struct {
	ID          string     `json:"id"`
	Player1ID   string     `json:"player1Id"`
	Player2ID   string     `json:"player2Id,omitempty"`
	WinnerID    string     `json:"winnerId,omitempty"`
	Status      GameStatus `json:"status"`
	TimeControl int        `json:"timeControl"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime,omitempty"`
	PGN         string     `json:"pgn,omitempty"`
}

// MoveRecord is immutable once written. The ordered sequence of move records
// for a game is the sole source of truth for reconstructing any position.
type MoveRecord struct {
	GameID        string    `json:"gameId"`
	PlayerID      string    `json:"playerId"`
	MoveNumber    int       `json:"moveNumber"`
	Move          string    `json:"move"`
	RemainingTime int       `json:"remainingTime"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AnalysisRecord struct {
	GameID     string  `json:"gameId"`
	MoveNumber int     `json:"moveNumber"`
	BestMove   string  `json:"bestMove,omitempty"`
	Evaluation float64 `json:"evaluation"`
	Category   string  `json:"category"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
)

// Friendship is directional while pending (requester -> recipient) and
// symmetric once accepted.
type Friendship struct {
	RequesterID string       `json:"requesterId"`
	RecipientID string       `json:"recipientId"`
	Status      FriendStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
}
