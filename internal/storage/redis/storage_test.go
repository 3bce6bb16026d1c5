package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/yolosopher/rps-live/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.SessionTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Presence tests

func (s *StorageSuite) TestAddAndRemoveSession() {
	err := s.storage.AddSession(s.ctx, "user-1", "sess-a")
	s.Require().NoError(err)
	err = s.storage.AddSession(s.ctx, "user-1", "sess-b")
	s.Require().NoError(err)

	count, err := s.storage.SessionCount(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(int64(2), count)

	remaining, err := s.storage.RemoveSession(s.ctx, "user-1", "sess-a")
	s.Require().NoError(err)
	s.Equal(int64(1), remaining)

	remaining, err = s.storage.RemoveSession(s.ctx, "user-1", "sess-b")
	s.Require().NoError(err)
	s.Equal(int64(0), remaining)
}

func (s *StorageSuite) TestRemoveSessionUnknownUser() {
	remaining, err := s.storage.RemoveSession(s.ctx, "nonexistent", "sess-a")
	s.Require().NoError(err)
	s.Equal(int64(0), remaining)
}

func (s *StorageSuite) TestSessions() {
	_ = s.storage.AddSession(s.ctx, "user-1", "sess-a")
	_ = s.storage.AddSession(s.ctx, "user-1", "sess-b")

	sessions, err := s.storage.Sessions(s.ctx, "user-1")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"sess-a", "sess-b"}, sessions)
}

func (s *StorageSuite) TestSessionTTL() {
	_ = s.storage.AddSession(s.ctx, "user-1", "sess-a")

	ttl := s.mini.TTL(sessionsKey("user-1"))
	s.True(ttl > 0, "Session set should have TTL")
}

func (s *StorageSuite) TestCurrentMatch() {
	err := s.storage.SetCurrentMatch(s.ctx, "user-1", "m1")
	s.Require().NoError(err)

	match, err := s.storage.GetCurrentMatch(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(model.MatchID("m1"), match)

	err = s.storage.ClearCurrentMatch(s.ctx, "user-1")
	s.Require().NoError(err)

	match, err = s.storage.GetCurrentMatch(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(model.MatchID(""), match)
}

func (s *StorageSuite) TestGetCurrentMatchUnset() {
	match, err := s.storage.GetCurrentMatch(s.ctx, "nonexistent")
	s.Require().NoError(err)
	s.Equal(model.MatchID(""), match)
}

func (s *StorageSuite) TestClearAllWipesPresenceOnly() {
	_ = s.storage.AddSession(s.ctx, "user-1", "sess-a")
	_ = s.storage.SetCurrentMatch(s.ctx, "user-1", "m1")
	_ = s.storage.PutRefreshToken(s.ctx, "user-1", "tok-1", time.Hour)

	err := s.storage.ClearAll(s.ctx)
	s.Require().NoError(err)

	count, err := s.storage.SessionCount(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Zero(count)

	match, err := s.storage.GetCurrentMatch(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(model.MatchID(""), match)

	ok, err := s.storage.HasRefreshToken(s.ctx, "user-1", "tok-1")
	s.Require().NoError(err)
	s.True(ok, "Refresh tokens should survive the presence wipe")
}

// Token tests

func (s *StorageSuite) TestRefreshTokenLifecycle() {
	err := s.storage.PutRefreshToken(s.ctx, "user-1", "tok-1", time.Hour)
	s.Require().NoError(err)

	ok, err := s.storage.HasRefreshToken(s.ctx, "user-1", "tok-1")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.storage.HasRefreshToken(s.ctx, "user-1", "tok-2")
	s.Require().NoError(err)
	s.False(ok)

	err = s.storage.DeleteRefreshToken(s.ctx, "user-1", "tok-1")
	s.Require().NoError(err)

	ok, err = s.storage.HasRefreshToken(s.ctx, "user-1", "tok-1")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StorageSuite) TestRefreshTokenExpires() {
	err := s.storage.PutRefreshToken(s.ctx, "user-1", "tok-1", time.Minute)
	s.Require().NoError(err)

	s.mini.FastForward(2 * time.Minute)

	ok, err := s.storage.HasRefreshToken(s.ctx, "user-1", "tok-1")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StorageSuite) TestRefreshTokenScopedToUser() {
	_ = s.storage.PutRefreshToken(s.ctx, "user-1", "tok-1", time.Hour)

	ok, err := s.storage.HasRefreshToken(s.ctx, "user-2", "tok-1")
	s.Require().NoError(err)
	s.False(ok)
}
