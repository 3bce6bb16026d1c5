package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yolosopher/rps-live/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeRefreshRequired    = "TOKEN_REFRESH_REQUIRED"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidUsername    = "INVALID_USERNAME"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeMatchNotFound      = "MATCH_NOT_FOUND"
	CodeAlreadyInMatch     = "ALREADY_IN_MATCH"
	CodeNotInMatch         = "NOT_IN_MATCH"
	CodeNotCreator         = "NOT_CREATOR"
	CodeBanned             = "BANNED"
	CodeNotBanned          = "NOT_BANNED"
	CodeSelfBan            = "SELF_BAN"
	CodeMatchNotInLobby    = "MATCH_NOT_IN_LOBBY"
	CodeMatchNotStarted    = "MATCH_NOT_STARTED"
	CodeMatchNotInProgress = "MATCH_NOT_IN_PROGRESS"
	CodeMatchFinished      = "MATCH_FINISHED"
	CodeNotEnoughPlayers   = "NOT_ENOUGH_PLAYERS"
	CodeNotInRound         = "NOT_IN_ROUND"
	CodeAlreadyMoved       = "ALREADY_MOVED"
	CodeInvalidMove        = "INVALID_MOVE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// ToAPIError maps an error to its wire representation, without the HTTP
// status. Used by transports that are not HTTP responses.
func ToAPIError(err error) APIError {
	return toHTTPError(err).apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrUserExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, model.ErrInvalidUsername):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidUsername, model.ErrInvalidUsername.Error()}}
	case errors.Is(err, model.ErrInvalidPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPassword, model.ErrInvalidPassword.Error()}}
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}
	case errors.Is(err, model.ErrAlreadyInMatch):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInMatch, "Already in a match"}}
	case errors.Is(err, model.ErrNotInMatch):
		return &httpError{http.StatusNotFound, APIError{CodeNotInMatch, "Not in a match"}}
	case errors.Is(err, model.ErrNotCreator):
		return &httpError{http.StatusForbidden, APIError{CodeNotCreator, "Only the match creator can perform this action"}}
	case errors.Is(err, model.ErrBanned):
		return &httpError{http.StatusForbidden, APIError{CodeBanned, "Banned from this match"}}
	case errors.Is(err, model.ErrNotBanned):
		return &httpError{http.StatusConflict, APIError{CodeNotBanned, "Player is not banned"}}
	case errors.Is(err, model.ErrSelfBan):
		return &httpError{http.StatusConflict, APIError{CodeSelfBan, "The creator cannot ban themselves"}}
	case errors.Is(err, model.ErrMatchNotInLobby):
		return &httpError{http.StatusConflict, APIError{CodeMatchNotInLobby, "Match has already started"}}
	case errors.Is(err, model.ErrMatchNotStarted):
		return &httpError{http.StatusConflict, APIError{CodeMatchNotStarted, "Match has not started"}}
	case errors.Is(err, model.ErrMatchNotInProgress):
		return &httpError{http.StatusConflict, APIError{CodeMatchNotInProgress, "Match is not in progress"}}
	case errors.Is(err, model.ErrMatchFinished):
		return &httpError{http.StatusConflict, APIError{CodeMatchFinished, "Match is finished"}}
	case errors.Is(err, model.ErrNotEnoughPlayers),
		errors.Is(err, model.ErrNotEnoughOnlinePlayers):
		return &httpError{http.StatusConflict, APIError{CodeNotEnoughPlayers, "Not enough players to start"}}
	case errors.Is(err, model.ErrNotInRound):
		return &httpError{http.StatusConflict, APIError{CodeNotInRound, "Not in the current round"}}
	case errors.Is(err, model.ErrAlreadyMoved):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyMoved, "Already moved this round"}}
	case errors.Is(err, model.ErrInvalidMove):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidMove, "Move must be rock, paper or scissors"}}

	// Map token errors
	case errors.Is(err, model.ErrRefreshRequired):
		return &httpError{http.StatusUnauthorized, APIError{CodeRefreshRequired, "Access token expired, refresh required"}}
	case errors.Is(err, model.ErrTokenRevoked):
		return &httpError{http.StatusUnauthorized, APIError{CodeTokenRevoked, "Token has been revoked"}}
	case errors.Is(err, model.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid token"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
