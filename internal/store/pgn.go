package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/hocuspocus07/freechess/internal/domain"
)

// buildPGN renders the persisted SAN sequence as PGN text. The mover of move
// number 1 is white by construction of the move history.
func buildPGN(gameID string, records []domain.MoveRecord, winnerID string, status domain.GameStatus) string {
	if len(records) == 0 {
		return ""
	}

	whiteID := records[0].PlayerID
	result := "*"
	switch {
	case status == domain.GameDraw:
		result = "1/2-1/2"
	case winnerID == "":
	case winnerID == whiteID:
		result = "1-0"
	default:
		result = "0-1"
	}

	date := records[len(records)-1].CreatedAt
	if date.IsZero() {
		date = time.Now()
	}

	var b strings.Builder
	b.WriteString("[Event \"FreeChess\"]\n")
	fmt.Fprintf(&b, "[Site \"freechess\"]\n")
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	fmt.Fprintf(&b, "[GameId \"%s\"]\n", sanitizePGN(gameID))
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", result)

	for i, rec := range records {
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d. ", i/2+1)
		}
		b.WriteString(strings.TrimSpace(rec.Move))
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
