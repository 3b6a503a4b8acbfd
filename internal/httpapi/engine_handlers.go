package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hocuspocus07/freechess/internal/analysis"
	"github.com/hocuspocus07/freechess/internal/chesscore"
	"github.com/hocuspocus07/freechess/internal/domain"
	"github.com/hocuspocus07/freechess/internal/obslog"
)

type botMoveRequest struct {
	FEN       string `json:"fen"`
	BotRating int    `json:"botRating"`
	GameID    string `json:"gameId"`
	PlayerID  string `json:"playerId"`
}

// handleBotMove produces and commits a single engine move. When the request
// carries a game id the position is reconstructed from the persisted history;
// the caller-supplied FEN is only trusted for detached positions.
func (s *Server) handleBotMove(w http.ResponseWriter, r *http.Request) {
	var req botMoveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	fen := req.FEN
	moveNumber := 0
	if req.GameID != "" {
		records, err := s.Store.ListMoves(r.Context(), req.GameID)
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
			obslog.L().Error("game_history_corrupt", zap.String("game_id", req.GameID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "game history is corrupt")
			return
		}
		fen = board.FEN()
		moveNumber = len(records) + 1
	}
	if fen == "" {
		writeError(w, http.StatusBadRequest, "fen or gameId required")
		return
	}

	move, err := s.Bot.BestMove(r.Context(), fen, req.BotRating)
	if err != nil {
		obslog.L().Error("bot_move_error", zap.String("game_id", req.GameID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "engine move failed")
		return
	}

	if req.GameID != "" {
		rec := domain.MoveRecord{
			GameID:     req.GameID,
			PlayerID:   domain.BotPlayerID,
			MoveNumber: moveNumber,
			Move:       move.SAN,
		}
		if err := s.Store.InsertMove(r.Context(), rec); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist move")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"move":        move.SAN,
		"uci":         move.UCI,
		"fen":         move.FEN,
		"currentTurn": move.Turn,
	})
}

// handleGetAnalysis serves a stored analysis, preferring the cached report.
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")

	if s.Cache != nil {
		var report analysis.Report
		if ok, err := s.Cache.GetAnalysisReport(r.Context(), gameID, &report); err == nil && ok {
			writeJSON(w, http.StatusOK, report)
			return
		}
	}

	records, err := s.Store.ListAnalysis(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "game has not been analyzed")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleAnalyzeGame runs the pipeline and caches the resulting report.
func (s *Server) handleAnalyzeGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")

	report, err := s.Analysis.AnalyzeGame(r.Context(), gameID)
	if err != nil {
		obslog.L().Error("analysis_error", zap.String("game_id", gameID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "analysis failed")
		return
	}

	if s.Cache != nil {
		if err := s.Cache.SetAnalysisReport(r.Context(), gameID, report); err != nil {
			obslog.L().Warn("analysis_cache_error", zap.String("game_id", gameID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, report)
}
