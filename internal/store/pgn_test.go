package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hocuspocus07/freechess/internal/domain"
)

func sanMoves(players []string, moves ...string) []domain.MoveRecord {
	out := make([]domain.MoveRecord, 0, len(moves))
	for i, mv := range moves {
		out = append(out, domain.MoveRecord{
			PlayerID:   players[i%2],
			MoveNumber: i + 1,
			Move:       mv,
		})
	}
	return out
}

func TestBuildPGN(t *testing.T) {
	players := []string{"alice", "bob"}
	records := sanMoves(players, "e4", "e5", "Nf3", "Nc6", "Bb5")

	pgn := buildPGN("g1", records, "alice", domain.GameCompleted)
	assert.Contains(t, pgn, "[Event \"FreeChess\"]")
	assert.Contains(t, pgn, "[GameId \"g1\"]")
	assert.Contains(t, pgn, "[Result \"1-0\"]")
	assert.Contains(t, pgn, "1. e4 e5 2. Nf3 Nc6 3. Bb5 1-0")
}

func TestBuildPGN_Results(t *testing.T) {
	players := []string{"alice", "bob"}
	records := sanMoves(players, "e4", "e5")

	assert.Contains(t, buildPGN("g1", records, "bob", domain.GameCompleted), "[Result \"0-1\"]")
	assert.Contains(t, buildPGN("g1", records, "", domain.GameDraw), "[Result \"1/2-1/2\"]")
	assert.Contains(t, buildPGN("g1", records, "", domain.GameCompleted), "[Result \"*\"]")
}

func TestBuildPGN_Empty(t *testing.T) {
	assert.Empty(t, buildPGN("g1", nil, "", domain.GameCompleted))
}

func TestSanitizePGN(t *testing.T) {
	assert.Equal(t, "it's 'quoted'", sanitizePGN(`it's "quoted"`))
	assert.Equal(t, "a b", sanitizePGN(`a\b`))
}
