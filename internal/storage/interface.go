package storage

import (
	"context"
	"time"

	"github.com/yolosopher/rps-live/internal/model"
)

// MatchStore persists match aggregates. Mutating operations are expressed as
// targeted updates rather than whole-document saves so concurrent actions on
// the same match do not clobber each other.
type MatchStore interface {
	// CreateMatch persists a new match. The caller is responsible for
	// seeding the creator into the roster before calling.
	CreateMatch(ctx context.Context, match *model.Match) error

	// GetMatch returns the match with player references resolved to their
	// current usernames. Returns model.ErrMatchNotFound when absent.
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)

	// SetState transitions the match lifecycle state and optionally replaces
	// the open round. A nil round leaves CurrentRound untouched; a non-nil
	// (possibly empty) round replaces it and resets Revealed to revealed.
	SetState(ctx context.Context, id model.MatchID, state model.MatchState, round []model.RoundEntry, revealed bool) error

	// AddRosterEntry appends a player to the roster if not already present
	AddRosterEntry(ctx context.Context, id model.MatchID, entry model.RosterEntry) error

	// SetOnline adds or removes a player from the in-match set
	SetOnline(ctx context.Context, id model.MatchID, player model.UserID, online bool) error

	// SetMove records a move on the player's open-round entry
	SetMove(ctx context.Context, id model.MatchID, player model.UserID, move model.Move) error

	// SetRevealed updates the revealed flag
	SetRevealed(ctx context.Context, id model.MatchID, revealed bool) error

	// AddBan puts a player on the blacklist and removes them from the
	// in-match set in the same write.
	AddBan(ctx context.Context, id model.MatchID, player model.UserID) error

	// RemoveBan takes a player off the blacklist
	RemoveBan(ctx context.Context, id model.MatchID, player model.UserID) error

	// CommitRound atomically appends a resolved round to history, increments
	// the winners' scores, opens the next round and clears the revealed
	// flag. The write applies only if the match is still revealed; it
	// returns (false, nil) when another resolver got there first.
	CommitRound(ctx context.Context, id model.MatchID, round model.HistoryRound, winners []model.UserID, nextRound []model.RoundEntry) (bool, error)
}

// UserStore persists user accounts
type UserStore interface {
	// CreateUser persists a new account. Returns model.ErrUserExists when
	// the username is already taken by a non-deleted account.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUserByID returns the account regardless of deleted state, so login
	// can undelete. Returns model.ErrUserNotFound when absent.
	GetUserByID(ctx context.Context, id model.UserID) (*model.User, error)

	// GetUserByUsername returns the account with the given username,
	// including soft-deleted ones.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// SetDeleted flips the soft-delete flag
	SetDeleted(ctx context.Context, id model.UserID, deleted bool) error
}

// PresenceStore tracks live sessions and current-match pointers. All of this
// state is derived from connections and safe to wipe at boot.
type PresenceStore interface {
	// AddSession records a live session for a user
	AddSession(ctx context.Context, user model.UserID, session string) error

	// RemoveSession drops one session and reports how many remain
	RemoveSession(ctx context.Context, user model.UserID, session string) (remaining int64, err error)

	// SessionCount returns the number of live sessions for a user
	SessionCount(ctx context.Context, user model.UserID) (int64, error)

	// Sessions lists a user's live session ids
	Sessions(ctx context.Context, user model.UserID) ([]string, error)

	// SetCurrentMatch points the user at a match
	SetCurrentMatch(ctx context.Context, user model.UserID, match model.MatchID) error

	// GetCurrentMatch returns the user's current match, or "" when none
	GetCurrentMatch(ctx context.Context, user model.UserID) (model.MatchID, error)

	// ClearCurrentMatch removes the user's current-match pointer
	ClearCurrentMatch(ctx context.Context, user model.UserID) error

	// ClearAll wipes every session set and current-match pointer
	ClearAll(ctx context.Context) error
}

// TokenStore is the refresh-credential allow-list. A refresh token is valid
// only while its key exists; deleting the key revokes it.
type TokenStore interface {
	// PutRefreshToken registers a refresh token with the given lifetime
	PutRefreshToken(ctx context.Context, user model.UserID, token string, ttl time.Duration) error

	// HasRefreshToken reports whether the token is still on the allow-list
	HasRefreshToken(ctx context.Context, user model.UserID, token string) (bool, error)

	// DeleteRefreshToken revokes a single refresh token
	DeleteRefreshToken(ctx context.Context, user model.UserID, token string) error
}
