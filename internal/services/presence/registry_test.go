package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/storage/memory"
)

type RegistrySuite struct {
	suite.Suite
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewRegistry(memory.New())
	s.ctx = context.Background()
}

func (s *RegistrySuite) TestConnectAndDisconnect() {
	sessA, err := s.registry.Connect(s.ctx, "user-1")
	s.Require().NoError(err)
	s.NotEmpty(sessA)

	sessB, err := s.registry.Connect(s.ctx, "user-1")
	s.Require().NoError(err)
	s.NotEqual(sessA, sessB)

	online, err := s.registry.IsOnline(s.ctx, "user-1")
	s.Require().NoError(err)
	s.True(online)

	last, err := s.registry.Disconnect(s.ctx, "user-1", sessA)
	s.Require().NoError(err)
	s.False(last)

	last, err = s.registry.Disconnect(s.ctx, "user-1", sessB)
	s.Require().NoError(err)
	s.True(last)

	online, err = s.registry.IsOnline(s.ctx, "user-1")
	s.Require().NoError(err)
	s.False(online)
}

func (s *RegistrySuite) TestCurrentMatch() {
	match, err := s.registry.CurrentMatch(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(model.MatchID(""), match)

	s.Require().NoError(s.registry.SetCurrentMatch(s.ctx, "user-1", "m1"))

	match, err = s.registry.CurrentMatch(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(model.MatchID("m1"), match)

	s.Require().NoError(s.registry.ClearCurrentMatch(s.ctx, "user-1"))

	match, err = s.registry.CurrentMatch(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(model.MatchID(""), match)
}

func (s *RegistrySuite) TestResetWipesEverything() {
	_, err := s.registry.Connect(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().NoError(s.registry.SetCurrentMatch(s.ctx, "user-1", "m1"))

	s.Require().NoError(s.registry.Reset(s.ctx))

	online, err := s.registry.IsOnline(s.ctx, "user-1")
	s.Require().NoError(err)
	s.False(online)

	match, err := s.registry.CurrentMatch(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(model.MatchID(""), match)
}
