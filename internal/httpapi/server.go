package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hocuspocus07/freechess/internal/analysis"
	"github.com/hocuspocus07/freechess/internal/bot"
	"github.com/hocuspocus07/freechess/internal/cache"
	"github.com/hocuspocus07/freechess/internal/live"
	"github.com/hocuspocus07/freechess/internal/obslog"
	"github.com/hocuspocus07/freechess/internal/store"
)

// Server bundles the handlers' dependencies. Cache may be nil when Redis is
// not configured.
type Server struct {
	Store    *store.Store
	Cache    *cache.Cache
	Bot      *bot.Service
	Analysis *analysis.Pipeline
	Live     *live.Manager
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/games", func(r chi.Router) {
		r.Post("/", s.handleCreateGame)
		r.Get("/", s.handleListGames)
		r.Post("/bot-move", s.handleBotMove)
		r.Get("/{id}", s.handleGetGame)
		r.Post("/{id}/moves", s.handlePostMove)
		r.Get("/{id}/moves", s.handleListMoves)
		r.Post("/{id}/end", s.handleEndGame)
		r.Get("/{id}/analysis", s.handleGetAnalysis)
		r.Post("/{id}/analyze", s.handleAnalyzeGame)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.handleCreateUser)
		r.Get("/{id}", s.handleGetUser)
		r.Get("/{id}/active-games", s.handleActiveGames)
	})

	r.Route("/friends", func(r chi.Router) {
		r.Get("/", s.handleListFriends)
		r.Post("/", s.handleRequestFriend)
		r.Post("/{requesterId}/accept", s.handleAcceptFriend)
	})

	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		userID := identity(r)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "identity required")
			return
		}
		live.ServeWS(s.Live, w, r, userID)
	})

	return r
}

// identity returns the verified identity attached to the request. Token
// verification happens upstream; only the resolved id arrives here.
func identity(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				obslog.L().Error("http_panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		obslog.L().Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}
