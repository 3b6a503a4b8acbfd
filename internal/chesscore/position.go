package chesscore

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	// ErrIllegalMove marks a move that does not apply to the current
	// position. Recoverable, reported to the caller, state unchanged.
	ErrIllegalMove = errors.New("illegal move")

	// ErrInvalidHistory marks a persisted move sequence that no longer
	// replays. Indicates data corruption and is surfaced, never skipped.
	ErrInvalidHistory = errors.New("invalid move history")
)

// Status is the terminal condition of a position.
type Status string

const (
	StatusNone                 Status = "none"
	StatusCheckmate            Status = "checkmate"
	StatusStalemate            Status = "stalemate"
	StatusDraw                 Status = "draw"
	StatusInsufficientMaterial Status = "insufficient_material"
	StatusThreefoldRepetition  Status = "threefold_repetition"
)

// MoveDetail describes an accepted move in every notation the rest of the
// system needs: SAN for persistence, UCI for the engine, FEN for clients.
type MoveDetail struct {
	SAN      string
	UCI      string
	FEN      string
	Terminal Status
}

// Board wraps the rules library behind the small surface the session manager,
// analysis pipeline, and bot service consume.
type Board struct {
	game *nchess.Game
}

func NewBoard() *Board {
	return &Board{game: nchess.NewGame()}
}

// FromFEN builds a board from an arbitrary position.
func FromFEN(fen string) (*Board, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return NewBoard(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Board{game: nchess.NewGame(opt)}, nil
}

// ApplyMove accepts SAN or UCI notation, applies the move, and returns its
// detail. On rejection the board is unchanged and ErrIllegalMove is returned.
func (b *Board) ApplyMove(notation string) (MoveDetail, error) {
	text := strings.TrimSpace(notation)
	if text == "" {
		return MoveDetail{}, ErrIllegalMove
	}

	pos := b.game.Position()
	notationSAN := nchess.AlgebraicNotation{}
	notationUCI := nchess.UCINotation{}

	move, err := notationSAN.Decode(pos, text)
	if err != nil {
		move, err = notationUCI.Decode(pos, strings.ToLower(text))
		if err != nil {
			return MoveDetail{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
		}
	}
	if err := b.game.Move(move, nil); err != nil {
		return MoveDetail{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}

	return MoveDetail{
		SAN:      notationSAN.Encode(pos, move),
		UCI:      strings.ToLower(notationUCI.Encode(pos, move)),
		FEN:      b.game.FEN(),
		Terminal: b.Terminal(),
	}, nil
}

func (b *Board) FEN() string {
	return b.game.FEN()
}

// Turn returns "white" or "black" for the side to move.
func (b *Board) Turn() string {
	if b.game.Position().Turn() == nchess.White {
		return "white"
	}
	return "black"
}

// MoveCount returns the number of plies applied so far.
func (b *Board) MoveCount() int {
	return len(b.game.Moves())
}

// Terminal reports the terminal condition of the current position.
func (b *Board) Terminal() Status {
	if b.game.Outcome() == nchess.NoOutcome {
		return StatusNone
	}
	switch b.game.Method() {
	case nchess.Checkmate:
		return StatusCheckmate
	case nchess.Stalemate:
		return StatusStalemate
	case nchess.InsufficientMaterial:
		return StatusInsufficientMaterial
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return StatusThreefoldRepetition
	default:
		return StatusDraw
	}
}

// Reconstruct folds ApplyMove over an ordered move sequence starting from the
// initial position. A stored move that no longer applies yields
// ErrInvalidHistory wrapping the offending one-based move number.
func Reconstruct(moves []string) (*Board, error) {
	b := NewBoard()
	for i, mv := range moves {
		if _, err := b.ApplyMove(mv); err != nil {
			return nil, fmt.Errorf("%w: move %d (%s)", ErrInvalidHistory, i+1, mv)
		}
	}
	return b, nil
}
