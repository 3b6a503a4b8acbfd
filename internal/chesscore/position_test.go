package chesscore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hocuspocus07/freechess/internal/chesscore"
)

func TestApplyMove_SANAndUCI(t *testing.T) {
	b := chesscore.NewBoard()
	require.Equal(t, "white", b.Turn())

	detail, err := b.ApplyMove("e2e4")
	require.NoError(t, err)
	assert.Equal(t, "e4", detail.SAN)
	assert.Equal(t, "e2e4", detail.UCI)
	assert.Equal(t, chesscore.StatusNone, detail.Terminal)
	assert.Equal(t, "black", b.Turn())

	detail, err = b.ApplyMove("Nc6")
	require.NoError(t, err)
	assert.Equal(t, "Nc6", detail.SAN)
	assert.Equal(t, "b8c6", detail.UCI)
	assert.Equal(t, "white", b.Turn())
	assert.Equal(t, 2, b.MoveCount())
}

func TestApplyMove_IllegalLeavesBoardUnchanged(t *testing.T) {
	b := chesscore.NewBoard()
	before := b.FEN()

	_, err := b.ApplyMove("e2e5")
	require.ErrorIs(t, err, chesscore.ErrIllegalMove)
	assert.Equal(t, before, b.FEN())
	assert.Equal(t, "white", b.Turn())
	assert.Equal(t, 0, b.MoveCount())

	_, err = b.ApplyMove("")
	assert.ErrorIs(t, err, chesscore.ErrIllegalMove)
	_, err = b.ApplyMove("not-a-move")
	assert.ErrorIs(t, err, chesscore.ErrIllegalMove)
}

func TestApplyMove_Checkmate(t *testing.T) {
	b := chesscore.NewBoard()
	var last chesscore.MoveDetail
	for _, mv := range []string{"f3", "e5", "g4", "Qh4#"} {
		detail, err := b.ApplyMove(mv)
		require.NoError(t, err, "move %s", mv)
		last = detail
	}
	assert.Equal(t, chesscore.StatusCheckmate, last.Terminal)
	assert.Equal(t, chesscore.StatusCheckmate, b.Terminal())
}

func TestFromFEN(t *testing.T) {
	start := chesscore.NewBoard().FEN()

	b, err := chesscore.FromFEN("")
	require.NoError(t, err)
	assert.Equal(t, start, b.FEN())

	b, err = chesscore.FromFEN("startpos")
	require.NoError(t, err)
	assert.Equal(t, start, b.FEN())

	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	b, err = chesscore.FromFEN(fen)
	require.NoError(t, err)
	assert.Equal(t, "black", b.Turn())

	_, err = chesscore.FromFEN("garbage")
	assert.Error(t, err)
}

func TestReconstruct(t *testing.T) {
	b, err := chesscore.Reconstruct([]string{"e4", "e5", "Nf3", "Nc6"})
	require.NoError(t, err)
	assert.Equal(t, 4, b.MoveCount())
	assert.Equal(t, "white", b.Turn())

	_, err = chesscore.Reconstruct([]string{"e4", "e4"})
	require.ErrorIs(t, err, chesscore.ErrInvalidHistory)
	assert.Contains(t, err.Error(), "move 2")
}
