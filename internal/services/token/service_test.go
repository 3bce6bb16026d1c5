package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/yolosopher/rps-live/internal/dependencies/mocks"
	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/storage/memory"
)

type ServiceSuite struct {
	suite.Suite
	service  *Service
	clock    *mocks.MockClock
	identity model.Identity
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(memory.New(), s.clock, Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	s.identity = model.Identity{UserID: "user-1", Username: "alice", Role: model.RolePlayer}
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestMintAndVerify() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)
	s.NotEmpty(pair.AccessToken)
	s.NotEmpty(pair.RefreshToken)

	identity, err := s.service.VerifyAccess(pair.AccessToken)
	s.Require().NoError(err)
	s.Equal(s.identity, identity)
}

func (s *ServiceSuite) TestVerifyGarbage() {
	_, err := s.service.VerifyAccess("not-a-token")
	s.ErrorIs(err, model.ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyWrongSecret() {
	other := New(memory.New(), s.clock, Config{
		AccessSecret:  "different-secret",
		RefreshSecret: "refresh-secret",
	})
	pair, err := other.Mint(s.ctx, s.identity)
	s.Require().NoError(err)

	_, err = s.service.VerifyAccess(pair.AccessToken)
	s.ErrorIs(err, model.ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyExpiredWantsRefresh() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Hour)

	_, err = s.service.VerifyAccess(pair.AccessToken)
	s.ErrorIs(err, model.ErrRefreshRequired)
}

func (s *ServiceSuite) TestRefreshRotatesPair() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)

	identity, next, err := s.service.Refresh(s.ctx, pair.RefreshToken)
	s.Require().NoError(err)
	s.Equal(s.identity, identity)
	s.NotEqual(pair.RefreshToken, next.RefreshToken)

	// The old refresh token must be single-use
	_, _, err = s.service.Refresh(s.ctx, pair.RefreshToken)
	s.ErrorIs(err, model.ErrTokenRevoked)

	// The new one still works
	_, _, err = s.service.Refresh(s.ctx, next.RefreshToken)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestRefreshWithAccessTokenFails() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)

	_, _, err = s.service.Refresh(s.ctx, pair.AccessToken)
	s.ErrorIs(err, model.ErrInvalidToken)
}

func (s *ServiceSuite) TestHandshakeFreshTokenPassesThrough() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)

	identity, rotated, err := s.service.Handshake(s.ctx, pair.AccessToken, pair.RefreshToken)
	s.Require().NoError(err)
	s.Equal(s.identity, identity)
	s.Nil(rotated)
}

func (s *ServiceSuite) TestHandshakeExpiredAccessKeepsYoungRefresh() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)

	// Access token expired, refresh token well inside its first half
	s.clock.Advance(2 * time.Hour)

	identity, renewed, err := s.service.Handshake(s.ctx, pair.AccessToken, pair.RefreshToken)
	s.Require().NoError(err)
	s.Equal(s.identity, identity)
	s.Require().NotNil(renewed)
	s.Equal(pair.RefreshToken, renewed.RefreshToken)
	s.NotEqual(pair.AccessToken, renewed.AccessToken)

	_, err = s.service.VerifyAccess(renewed.AccessToken)
	s.Require().NoError(err)

	// The refresh token was not rotated and still works
	_, _, err = s.service.Refresh(s.ctx, pair.RefreshToken)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestHandshakeRotatesAgedRefresh() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)

	// Both tokens past half-life; the refresh token ages out with the pair
	s.clock.Advance(13 * time.Hour)

	identity, rotated, err := s.service.Handshake(s.ctx, pair.AccessToken, pair.RefreshToken)
	s.Require().NoError(err)
	s.Equal(s.identity, identity)
	s.Require().NotNil(rotated)
	s.NotEqual(pair.RefreshToken, rotated.RefreshToken)

	// Old refresh token was consumed by the rotation
	_, _, err = s.service.Refresh(s.ctx, pair.RefreshToken)
	s.ErrorIs(err, model.ErrTokenRevoked)
}

func (s *ServiceSuite) TestHandshakeExpiredWithoutRefresh() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Hour)

	_, _, err = s.service.Handshake(s.ctx, pair.AccessToken, "")
	s.ErrorIs(err, model.ErrRefreshRequired)
}

func (s *ServiceSuite) TestHandshakeRevokedRefreshStillExpired() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Revoke(s.ctx, pair.RefreshToken))

	s.clock.Advance(2 * time.Hour)

	_, _, err = s.service.Handshake(s.ctx, pair.AccessToken, pair.RefreshToken)
	s.ErrorIs(err, model.ErrRefreshRequired)
}

func (s *ServiceSuite) TestHandshakeValidAccessIgnoresRefresh() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Revoke(s.ctx, pair.RefreshToken))

	// A valid access token authenticates on its own; the refresh token is
	// not even looked at, let alone rotated.
	identity, renewed, err := s.service.Handshake(s.ctx, pair.AccessToken, pair.RefreshToken)
	s.Require().NoError(err)
	s.Equal(s.identity, identity)
	s.Nil(renewed)
}

func (s *ServiceSuite) TestRevoke() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Revoke(s.ctx, pair.RefreshToken))

	_, _, err = s.service.Refresh(s.ctx, pair.RefreshToken)
	s.ErrorIs(err, model.ErrTokenRevoked)
}

func (s *ServiceSuite) TestRevokeExpiredToken() {
	pair, err := s.service.Mint(s.ctx, s.identity)
	s.Require().NoError(err)

	s.clock.Advance(48 * time.Hour)

	s.NoError(s.service.Revoke(s.ctx, pair.RefreshToken))
}
