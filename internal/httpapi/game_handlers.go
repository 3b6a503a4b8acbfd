package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hocuspocus07/freechess/internal/chesscore"
	"github.com/hocuspocus07/freechess/internal/domain"
	"github.com/hocuspocus07/freechess/internal/obslog"
	"github.com/hocuspocus07/freechess/internal/store"
)

type createGameRequest struct {
	OpponentID  string `json:"opponentId"`
	TimeControl int    `json:"timeControl"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "identity required")
		return
	}
	var req createGameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.TimeControl <= 0 {
		req.TimeControl = 600
	}

	status := domain.GameWaiting
	if req.OpponentID != "" {
		status = domain.GameActive
	}
	game := domain.Game{
		ID:          uuid.NewString(),
		Player1ID:   userID,
		Player2ID:   req.OpponentID,
		Status:      status,
		TimeControl: req.TimeControl,
		StartTime:   time.Now(),
	}
	if err := s.Store.CreateGame(r.Context(), game); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}
	if s.Cache != nil && game.Status == domain.GameActive {
		for _, uid := range []string{game.Player1ID, game.Player2ID} {
			if err := s.Cache.IndexActiveGame(r.Context(), uid, game.ID); err != nil {
				obslog.L().Warn("game_index_error", zap.String("game_id", game.ID), zap.Error(err))
			}
		}
	}
	writeJSON(w, http.StatusCreated, game)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.Store.GetGame(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load game")
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	filter := store.GameFilter{
		PlayerID: r.URL.Query().Get("playerId"),
		Status:   domain.GameStatus(r.URL.Query().Get("status")),
		Limit:    50,
	}
	games, err := s.Store.ListGames(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list games")
		return
	}
	writeJSON(w, http.StatusOK, games)
}

type postMoveRequest struct {
	Move          string `json:"move"`
	RemainingTime int    `json:"remainingTime"`
}

// handlePostMove is the boundary write path for moves arriving outside the
// live channel. The move is still validated against the replayed position so
// an illegal move can never enter the history.
func (s *Server) handlePostMove(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "identity required")
		return
	}
	gameID := chi.URLParam(r, "id")

	var req postMoveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	game, err := s.Store.GetGame(r.Context(), gameID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load game")
		return
	}
	if game.Status.Terminal() {
		writeError(w, http.StatusConflict, "game already ended")
		return
	}
	if userID != game.Player1ID && userID != game.Player2ID {
		writeError(w, http.StatusForbidden, "not a participant of this game")
		return
	}

	records, err := s.Store.ListMoves(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load moves")
		return
	}
	moves := make([]string, len(records))
	for i, rec := range records {
		moves[i] = rec.Move
	}
	board, err := chesscore.Reconstruct(moves)
	if err != nil {
		obslog.L().Error("game_history_corrupt", zap.String("game_id", gameID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "game history is corrupt")
		return
	}
	if userID != expectedMover(game, records, board.Turn()) {
		writeError(w, http.StatusConflict, "not your turn")
		return
	}
	detail, err := board.ApplyMove(req.Move)
	if err != nil {
		writeError(w, http.StatusBadRequest, "illegal move")
		return
	}

	rec := domain.MoveRecord{
		GameID:        gameID,
		PlayerID:      userID,
		MoveNumber:    len(records) + 1,
		Move:          detail.SAN,
		RemainingTime: req.RemainingTime,
	}
	if err := s.Store.InsertMove(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist move")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"move":        detail.SAN,
		"fen":         detail.FEN,
		"currentTurn": board.Turn(),
		"moveNumber":  rec.MoveNumber,
	})
}

// expectedMover returns the participant whose turn it is. The mover of move
// number 1 is white; before any move is recorded the game creator moves
// first.
func expectedMover(game domain.Game, records []domain.MoveRecord, turn string) string {
	whiteID := game.Player1ID
	if len(records) > 0 {
		whiteID = records[0].PlayerID
	}
	blackID := game.Player2ID
	if whiteID != game.Player1ID {
		blackID = game.Player1ID
	}
	if turn == "black" {
		return blackID
	}
	return whiteID
}

func (s *Server) handleListMoves(w http.ResponseWriter, r *http.Request) {
	records, err := s.Store.ListMoves(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load moves")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type endGameRequest struct {
	WinnerID string `json:"winnerId"`
}

func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "identity required")
		return
	}
	gameID := chi.URLParam(r, "id")

	var req endGameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	game, err := s.Store.GetGame(r.Context(), gameID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load game")
		return
	}
	if userID != game.Player1ID && userID != game.Player2ID {
		writeError(w, http.StatusForbidden, "not a participant of this game")
		return
	}

	status := domain.GameCompleted
	if req.WinnerID == "" {
		status = domain.GameDraw
	}
	if err := s.Store.SetOutcome(r.Context(), gameID, req.WinnerID, status, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to end game")
		return
	}
	if s.Cache != nil {
		for _, uid := range []string{game.Player1ID, game.Player2ID} {
			if uid == "" {
				continue
			}
			_ = s.Cache.DropActiveGame(r.Context(), uid, gameID)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}
