package request

// RegisterRequest is the request body for registering an account
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for rotating a credential pair.
// The token may instead arrive via the refresh cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// LogoutRequest is the request body for revoking a refresh token.
// The token may instead arrive via the refresh cookie.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}
