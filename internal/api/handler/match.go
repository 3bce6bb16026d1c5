package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yolosopher/rps-live/internal/api/middleware"
	"github.com/yolosopher/rps-live/internal/api/response"
	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/services/match"
)

// MatchHandler handles read-only match endpoints. All match mutations go
// through the websocket gateway.
type MatchHandler struct {
	matches match.ControllerInterface
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matches match.ControllerInterface) *MatchHandler {
	return &MatchHandler{
		matches: matches,
	}
}

// Get handles GET /api/v1/matches/{id}. Anonymous spectators are allowed;
// they get the fully masked view.
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	var viewer model.UserID
	if identity := middleware.GetIdentity(r.Context()); identity != nil {
		viewer = identity.UserID
	}

	view, err := h.matches.InfoByID(r.Context(), viewer, id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MatchResponse{Match: view})
}
