package model

import "time"

// UserID uniquely identifies a user account
type UserID string

// Role is the user's privilege tier
type Role int

const (
	RolePlayer Role = 0
	RoleAdmin  Role = 1
)

// User is an account record owned by the account store. The coordinator
// itself only ever sees the id/username pair (PlayerRef).
type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatarUrl"`
	Role         Role      `json:"role"`
	Deleted      bool      `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Ref returns the denormalized reference shape for this user
func (u *User) Ref() PlayerRef {
	return PlayerRef{ID: u.ID, Username: u.Username}
}

// Identity is the payload carried by an access credential
type Identity struct {
	UserID   UserID `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// TokenPair is an access/refresh credential pair. Whenever verification
// mints a new pair the caller must persist it; the old refresh credential
// may already be revoked.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
