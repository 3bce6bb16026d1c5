package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/storage"
)

// Storage is an in-memory implementation of all store interfaces, suitable
// for tests and single-process deployments.
type Storage struct {
	mu sync.RWMutex

	matches       map[model.MatchID]*model.Match
	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID

	sessions     map[model.UserID]map[string]struct{}
	currentMatch map[model.UserID]model.MatchID

	refreshTokens map[refreshKey]time.Time
}

type refreshKey struct {
	user  model.UserID
	token string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		matches:       make(map[model.MatchID]*model.Match),
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
		sessions:      make(map[model.UserID]map[string]struct{}),
		currentMatch:  make(map[model.UserID]model.MatchID),
		refreshTokens: make(map[refreshKey]time.Time),
	}
}

// Ensure Storage implements all store interfaces
var _ storage.MatchStore = (*Storage)(nil)
var _ storage.UserStore = (*Storage)(nil)
var _ storage.PresenceStore = (*Storage)(nil)
var _ storage.TokenStore = (*Storage)(nil)

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[match.ID] = cloneMatch(match)
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}

	out := cloneMatch(match)

	// Resolve references against the live account records so renames show up
	resolve := func(ref *model.PlayerRef) {
		if u, ok := s.users[ref.ID]; ok {
			ref.Username = u.Username
		}
	}
	resolve(&out.Creator)
	for i := range out.Players {
		resolve(&out.Players[i].Player)
	}
	for i := range out.CurrentRound {
		resolve(&out.CurrentRound[i].Player)
	}
	return out, nil
}

func (s *Storage) SetState(ctx context.Context, id model.MatchID, state model.MatchState, round []model.RoundEntry, revealed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	match.State = state
	if round != nil {
		match.CurrentRound = append([]model.RoundEntry(nil), round...)
		match.Revealed = revealed
	}
	match.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) AddRosterEntry(ctx context.Context, id model.MatchID, entry model.RosterEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	if match.RosterEntry(entry.Player.ID) != nil {
		return nil
	}
	match.Players = append(match.Players, entry)
	match.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) SetOnline(ctx context.Context, id model.MatchID, player model.UserID, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	if online {
		if !match.IsOnline(player) {
			match.InMatchPlayers = append(match.InMatchPlayers, player)
		}
	} else {
		match.InMatchPlayers = removeID(match.InMatchPlayers, player)
	}
	match.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) SetMove(ctx context.Context, id model.MatchID, player model.UserID, move model.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	entry := match.RoundEntry(player)
	if entry == nil {
		return model.ErrNotInRound
	}
	entry.Move = move
	match.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) SetRevealed(ctx context.Context, id model.MatchID, revealed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	match.Revealed = revealed
	match.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) AddBan(ctx context.Context, id model.MatchID, player model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	if !match.IsBanned(player) {
		match.Blacklist = append(match.Blacklist, player)
	}
	match.InMatchPlayers = removeID(match.InMatchPlayers, player)
	match.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) RemoveBan(ctx context.Context, id model.MatchID, player model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	match.Blacklist = removeID(match.Blacklist, player)
	match.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) CommitRound(ctx context.Context, id model.MatchID, round model.HistoryRound, winners []model.UserID, nextRound []model.RoundEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return false, model.ErrMatchNotFound
	}
	if !match.Revealed {
		return false, nil
	}
	match.HistoryRounds = append(match.HistoryRounds, round)
	for _, w := range winners {
		if entry := match.RosterEntry(w); entry != nil {
			entry.Score++
		}
	}
	match.CurrentRound = append([]model.RoundEntry(nil), nextRound...)
	match.Revealed = false
	match.UpdatedAt = time.Now()
	return true, nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Username)
	if existingID, ok := s.usernameIndex[key]; ok {
		if existing := s.users[existingID]; existing != nil && !existing.Deleted {
			return model.ErrUserExists
		}
	}
	u := *user
	s.users[u.ID] = &u
	s.usernameIndex[key] = u.ID
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[strings.ToLower(username)]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) SetDeleted(ctx context.Context, id model.UserID, deleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	user.Deleted = deleted
	return nil
}

// Presence operations

func (s *Storage) AddSession(ctx context.Context, user model.UserID, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sessions[user]
	if !ok {
		set = make(map[string]struct{})
		s.sessions[user] = set
	}
	set[session] = struct{}{}
	return nil
}

func (s *Storage) RemoveSession(ctx context.Context, user model.UserID, session string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sessions[user]
	if !ok {
		return 0, nil
	}
	delete(set, session)
	if len(set) == 0 {
		delete(s.sessions, user)
	}
	return int64(len(set)), nil
}

func (s *Storage) SessionCount(ctx context.Context, user model.UserID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sessions[user])), nil
}

func (s *Storage) Sessions(ctx context.Context, user model.UserID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.sessions[user]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out, nil
}

func (s *Storage) SetCurrentMatch(ctx context.Context, user model.UserID, match model.MatchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentMatch[user] = match
	return nil
}

func (s *Storage) GetCurrentMatch(ctx context.Context, user model.UserID) (model.MatchID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentMatch[user], nil
}

func (s *Storage) ClearCurrentMatch(ctx context.Context, user model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.currentMatch, user)
	return nil
}

func (s *Storage) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[model.UserID]map[string]struct{})
	s.currentMatch = make(map[model.UserID]model.MatchID)
	return nil
}

// Token operations

func (s *Storage) PutRefreshToken(ctx context.Context, user model.UserID, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[refreshKey{user: user, token: token}] = time.Now().Add(ttl)
	return nil
}

func (s *Storage) HasRefreshToken(ctx context.Context, user model.UserID, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expiry, ok := s.refreshTokens[refreshKey{user: user, token: token}]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiry), nil
}

func (s *Storage) DeleteRefreshToken(ctx context.Context, user model.UserID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refreshTokens, refreshKey{user: user, token: token})
	return nil
}

func removeID(ids []model.UserID, id model.UserID) []model.UserID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func cloneMatch(m *model.Match) *model.Match {
	out := *m
	out.Players = append([]model.RosterEntry(nil), m.Players...)
	out.CurrentRound = append([]model.RoundEntry(nil), m.CurrentRound...)
	out.HistoryRounds = make([]model.HistoryRound, len(m.HistoryRounds))
	for i, h := range m.HistoryRounds {
		out.HistoryRounds[i] = model.HistoryRound{
			Winners:     append([]model.PlayerRef(nil), h.Winners...),
			PlayerMoves: append([]model.PlayerMove(nil), h.PlayerMoves...),
		}
	}
	out.Blacklist = append([]model.UserID(nil), m.Blacklist...)
	out.InMatchPlayers = append([]model.UserID(nil), m.InMatchPlayers...)
	return &out
}
