package response

import (
	"time"

	"github.com/yolosopher/rps-live/internal/model"
)

// User represents an account in API responses
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      int       `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:        string(u.ID),
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Role:      int(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// AuthResponse is the response for authentication endpoints. The refresh
// token is additionally set as an http-only cookie for browser clients.
type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponseFrom builds an AuthResponse from an account and its credentials
func AuthResponseFrom(u *model.User, pair model.TokenPair) AuthResponse {
	return AuthResponse{
		User:         UserFromModel(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

// MatchResponse wraps a per-viewer match view
type MatchResponse struct {
	Match *model.Match `json:"match"`
}
