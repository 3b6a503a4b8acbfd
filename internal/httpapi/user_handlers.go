package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hocuspocus07/freechess/internal/domain"
	"github.com/hocuspocus07/freechess/internal/store"
)

type createUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Username == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "username and email required")
		return
	}
	u := domain.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
	}
	if err := s.Store.CreateUser(r.Context(), u); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.Store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type friendRequest struct {
	RecipientID string `json:"recipientId"`
}

func (s *Server) handleRequestFriend(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "identity required")
		return
	}
	var req friendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.RecipientID == "" || req.RecipientID == userID {
		writeError(w, http.StatusBadRequest, "valid recipientId required")
		return
	}
	if err := s.Store.RequestFriend(r.Context(), userID, req.RecipientID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create friend request")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": string(domain.FriendPending)})
}

func (s *Server) handleAcceptFriend(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "identity required")
		return
	}
	requesterID := chi.URLParam(r, "requesterId")
	err := s.Store.AcceptFriend(r.Context(), requesterID, userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no pending request from that user")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to accept friend request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.FriendAccepted)})
}

// handleActiveGames answers from the Redis index when available and falls
// back to the database otherwise. The index is advisory; the database is the
// source of truth.
func (s *Server) handleActiveGames(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if s.Cache != nil {
		if ids, err := s.Cache.ActiveGames(r.Context(), userID); err == nil && len(ids) > 0 {
			writeJSON(w, http.StatusOK, map[string]any{"gameIds": ids})
			return
		}
	}

	games, err := s.Store.ListGames(r.Context(), store.GameFilter{
		PlayerID: userID,
		Status:   domain.GameActive,
		Limit:    50,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list games")
		return
	}
	ids := make([]string, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"gameIds": ids})
}

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "identity required")
		return
	}
	friends, err := s.Store.ListFriends(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list friends")
		return
	}
	writeJSON(w, http.StatusOK, friends)
}
