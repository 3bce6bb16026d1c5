package redis

import (
	"fmt"

	"github.com/yolosopher/rps-live/internal/model"
)

// Key prefix for all coordinator data
const keyPrefix = "rpslive"

// sessionsKey returns the Redis key for the SET of a user's live session ids
func sessionsKey(user model.UserID) string {
	return fmt.Sprintf("%s:user:%s:sessions", keyPrefix, user)
}

// currentMatchKey returns the Redis key for a user's current-match pointer
func currentMatchKey(user model.UserID) string {
	return fmt.Sprintf("%s:user:%s:current_match", keyPrefix, user)
}

// refreshTokenKey returns the Redis key for one allow-listed refresh token.
// The key existing is what makes the token valid; expiry and revocation both
// reduce to the key going away.
func refreshTokenKey(user model.UserID, token string) string {
	return fmt.Sprintf("%s:user:%s:refresh:%s", keyPrefix, user, token)
}

// presencePatterns matches session and current-match keys for the boot-time
// wipe. Refresh tokens are deliberately excluded: credentials survive a
// restart, presence does not.
func presencePatterns() []string {
	return []string{
		fmt.Sprintf("%s:user:*:sessions", keyPrefix),
		fmt.Sprintf("%s:user:*:current_match", keyPrefix),
	}
}
