package handler

import (
	"encoding/json"
	"net/http"

	"github.com/yolosopher/rps-live/internal/api/middleware"
	"github.com/yolosopher/rps-live/internal/api/request"
	"github.com/yolosopher/rps-live/internal/api/response"
	"github.com/yolosopher/rps-live/internal/services/account"
)

// AuthHandler handles account and credential endpoints
type AuthHandler struct {
	accounts account.ServiceInterface
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts account.ServiceInterface) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	user, pair, err := h.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	middleware.SetRefreshCookie(w, pair.RefreshToken)
	response.JSON(w, http.StatusCreated, response.AuthResponseFrom(user, pair))
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	user, pair, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	middleware.SetRefreshCookie(w, pair.RefreshToken)
	response.JSON(w, http.StatusOK, response.AuthResponseFrom(user, pair))
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshTokenFrom(r)
	if refreshToken == "" {
		WriteError(w, NewInvalidRequestError("refresh token is required"))
		return
	}

	user, pair, err := h.accounts.Refresh(r.Context(), refreshToken)
	if err != nil {
		WriteError(w, err)
		return
	}

	middleware.SetRefreshCookie(w, pair.RefreshToken)
	response.JSON(w, http.StatusOK, response.AuthResponseFrom(user, pair))
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshTokenFrom(r)
	if refreshToken != "" {
		if err := h.accounts.Logout(r.Context(), refreshToken); err != nil {
			WriteError(w, err)
			return
		}
	}

	middleware.ClearRefreshCookie(w)
	response.NoContent(w)
}

// GetMe handles GET /api/v1/auth/me
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	user, err := h.accounts.GetUser(r.Context(), identity.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}

// DeleteMe handles DELETE /api/v1/auth/me. The account is soft-deleted and
// comes back on the next login.
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	if err := h.accounts.Deactivate(r.Context(), identity.UserID, h.refreshTokenFrom(r)); err != nil {
		WriteError(w, err)
		return
	}

	middleware.ClearRefreshCookie(w)
	response.NoContent(w)
}

// refreshTokenFrom pulls the refresh token from the request body, falling
// back to the refresh cookie.
func (h *AuthHandler) refreshTokenFrom(r *http.Request) string {
	var req request.RefreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}

	cookie, err := r.Cookie(middleware.RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
