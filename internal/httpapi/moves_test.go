package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hocuspocus07/freechess/internal/domain"
)

func TestExpectedMover(t *testing.T) {
	game := domain.Game{ID: "g1", Player1ID: "alice", Player2ID: "bob"}

	// No moves yet: the creator opens as white.
	assert.Equal(t, "alice", expectedMover(game, nil, "white"))

	records := []domain.MoveRecord{
		{GameID: "g1", PlayerID: "alice", MoveNumber: 1, Move: "e4"},
	}
	assert.Equal(t, "bob", expectedMover(game, records, "black"))

	records = append(records, domain.MoveRecord{
		GameID: "g1", PlayerID: "bob", MoveNumber: 2, Move: "e5",
	})
	assert.Equal(t, "alice", expectedMover(game, records, "white"))
}

func TestExpectedMover_CreatorPlaysBlack(t *testing.T) {
	// Color follows the recorded first mover, not the creator: bob opened,
	// so alice answers as black.
	game := domain.Game{ID: "g1", Player1ID: "alice", Player2ID: "bob"}
	records := []domain.MoveRecord{
		{GameID: "g1", PlayerID: "bob", MoveNumber: 1, Move: "d4"},
	}
	assert.Equal(t, "alice", expectedMover(game, records, "black"))
	assert.Equal(t, "bob", expectedMover(game, records, "white"))
}

func TestExpectedMover_BotGames(t *testing.T) {
	game := domain.Game{ID: "g1", Player1ID: "alice", Player2ID: domain.BotPlayerID}
	records := []domain.MoveRecord{
		{GameID: "g1", PlayerID: "alice", MoveNumber: 1, Move: "e4"},
	}
	assert.Equal(t, domain.BotPlayerID, expectedMover(game, records, "black"))
}
