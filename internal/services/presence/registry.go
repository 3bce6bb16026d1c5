package presence

import (
	"context"

	"github.com/google/uuid"

	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/storage"
)

// Registry tracks which users have live connections and which match each
// user is currently in. All registry state is connection-derived and gets
// wiped by Reset on process start.
type Registry struct {
	store storage.PresenceStore
}

// NewRegistry creates a new presence registry
func NewRegistry(store storage.PresenceStore) *Registry {
	return &Registry{store: store}
}

// Connect registers a new live session for the user and returns its id.
// A user may hold any number of concurrent sessions (multiple tabs).
func (r *Registry) Connect(ctx context.Context, user model.UserID) (string, error) {
	session := uuid.NewString()
	if err := r.store.AddSession(ctx, user, session); err != nil {
		return "", err
	}
	return session, nil
}

// Disconnect drops one session and reports whether it was the user's last
func (r *Registry) Disconnect(ctx context.Context, user model.UserID, session string) (last bool, err error) {
	remaining, err := r.store.RemoveSession(ctx, user, session)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

// IsOnline reports whether the user has at least one live session
func (r *Registry) IsOnline(ctx context.Context, user model.UserID) (bool, error) {
	count, err := r.store.SessionCount(ctx, user)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CurrentMatch returns the user's current match id, or "" when none
func (r *Registry) CurrentMatch(ctx context.Context, user model.UserID) (model.MatchID, error) {
	return r.store.GetCurrentMatch(ctx, user)
}

// SetCurrentMatch points the user at a match
func (r *Registry) SetCurrentMatch(ctx context.Context, user model.UserID, match model.MatchID) error {
	return r.store.SetCurrentMatch(ctx, user, match)
}

// ClearCurrentMatch removes the user's current-match pointer
func (r *Registry) ClearCurrentMatch(ctx context.Context, user model.UserID) error {
	return r.store.ClearCurrentMatch(ctx, user)
}

// Reset wipes all presence state. Run once at boot: sessions recorded by a
// previous process have no connection behind them anymore.
func (r *Registry) Reset(ctx context.Context) error {
	return r.store.ClearAll(ctx)
}

// RegistryInterface is the consumer-facing surface of the registry
type RegistryInterface interface {
	Connect(ctx context.Context, user model.UserID) (string, error)
	Disconnect(ctx context.Context, user model.UserID, session string) (last bool, err error)
	IsOnline(ctx context.Context, user model.UserID) (bool, error)
	CurrentMatch(ctx context.Context, user model.UserID) (model.MatchID, error)
	SetCurrentMatch(ctx context.Context, user model.UserID, match model.MatchID) error
	ClearCurrentMatch(ctx context.Context, user model.UserID) error
	Reset(ctx context.Context) error
}

var _ RegistryInterface = (*Registry)(nil)
