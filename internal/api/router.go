package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yolosopher/rps-live/internal/api/handler"
	"github.com/yolosopher/rps-live/internal/api/middleware"
	"github.com/yolosopher/rps-live/internal/services/account"
	"github.com/yolosopher/rps-live/internal/services/match"
	"github.com/yolosopher/rps-live/internal/services/token"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AccountService  account.ServiceInterface
	TokenService    token.ServiceInterface
	MatchController match.ControllerInterface

	// Gateway is the websocket upgrade handler mounted at /ws
	Gateway http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AccountService)
	matchHandler := handler.NewMatchHandler(cfg.MatchController)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.TokenService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.TokenService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Credential routes (no auth required)
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	// Protected account routes
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(authMiddleware)
	authProtected.HandleFunc("/me", authHandler.GetMe).Methods(http.MethodGet)
	authProtected.HandleFunc("/me", authHandler.DeleteMe).Methods(http.MethodDelete)

	// Spectator match view; auth is optional and only affects masking
	matches := api.PathPrefix("/matches").Subrouter()
	matches.Use(optionalAuthMiddleware)
	matches.HandleFunc("/{id}", matchHandler.Get).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Websocket gateway; authentication happens per-frame inside
	if cfg.Gateway != nil {
		r.Handle("/ws", cfg.Gateway)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
