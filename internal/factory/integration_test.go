package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/yolosopher/rps-live/internal/model"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

// registerAndConnect registers an account and opens one live session for it
func (s *IntegrationSuite) registerAndConnect(username string) (model.PlayerRef, string) {
	user, _, err := s.app.AccountService.Register(s.ctx, username, "secret123")
	s.Require().NoError(err)

	session, err := s.app.MatchController.Connect(s.ctx, user.ID)
	s.Require().NoError(err)
	return user.Ref(), session
}

// Test: two registered players play a full match through the wired services
func (s *IntegrationSuite) TestCompleteMatchFlow() {
	alice, _ := s.registerAndConnect("alice")
	bob, _ := s.registerAndConnect("bob")

	// Alice creates a match and Bob joins
	s.app.MockRandom.QueueString("abcd1234")
	created, err := s.app.MatchController.Create(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(model.MatchID("abcd1234"), created.ID)

	_, err = s.app.MatchController.Join(s.ctx, bob, created.ID)
	s.Require().NoError(err)

	err = s.app.MatchController.Start(s.ctx, alice.ID)
	s.Require().NoError(err)

	// Round 1: rock beats scissors
	s.Require().NoError(s.app.MatchController.Move(s.ctx, alice.ID, model.MoveRock))
	s.Require().NoError(s.app.MatchController.Move(s.ctx, bob.ID, model.MoveScissors))

	view, err := s.app.MatchController.OwnInfo(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().Len(view.HistoryRounds, 1)
	s.Equal([]model.UserID{alice.ID}, view.HistoryRounds[0].Winners)

	entry := view.RosterEntry(alice.ID)
	s.Require().NotNil(entry)
	s.Equal(1, entry.Score)

	// Round 2: tie, nobody scores
	s.Require().NoError(s.app.MatchController.Move(s.ctx, alice.ID, model.MovePaper))
	s.Require().NoError(s.app.MatchController.Move(s.ctx, bob.ID, model.MovePaper))

	view, err = s.app.MatchController.OwnInfo(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().Len(view.HistoryRounds, 2)
	s.Empty(view.HistoryRounds[1].Winners)

	// Creator ends the match, which releases both players
	err = s.app.MatchController.End(s.ctx, alice.ID)
	s.Require().NoError(err)

	after, err := s.app.MatchController.OwnInfo(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Nil(after)
}

// Test: credentials issued at register survive verification and rotate
func (s *IntegrationSuite) TestCredentialRotationFlow() {
	_, pair, err := s.app.AccountService.Register(s.ctx, "alice", "secret123")
	s.Require().NoError(err)

	identity, err := s.app.TokenService.VerifyAccess(pair.AccessToken)
	s.Require().NoError(err)
	s.Equal("alice", identity.Username)

	// Rotation replaces the pair and revokes the old refresh token
	_, rotated, err := s.app.AccountService.Refresh(s.ctx, pair.RefreshToken)
	s.Require().NoError(err)
	s.NotEqual(pair.RefreshToken, rotated.RefreshToken)

	_, _, err = s.app.TokenService.Refresh(s.ctx, pair.RefreshToken)
	s.ErrorIs(err, model.ErrTokenRevoked)

	// Expired access tokens ask for a refresh rather than a re-login
	s.app.MockClock.Advance(2 * time.Hour)
	_, err = s.app.TokenService.VerifyAccess(rotated.AccessToken)
	s.ErrorIs(err, model.ErrRefreshRequired)
}

// Test: login on a deactivated account brings it back
func (s *IntegrationSuite) TestDeactivateAndUndeleteOnLogin() {
	user, pair, err := s.app.AccountService.Register(s.ctx, "alice", "secret123")
	s.Require().NoError(err)

	err = s.app.AccountService.Deactivate(s.ctx, user.ID, pair.RefreshToken)
	s.Require().NoError(err)

	_, err = s.app.AccountService.GetUser(s.ctx, user.ID)
	s.ErrorIs(err, model.ErrUserNotFound)

	restored, _, err := s.app.AccountService.Login(s.ctx, "alice", "secret123")
	s.Require().NoError(err)
	s.Equal(user.ID, restored.ID)
	s.False(restored.Deleted)
}

// Test: boot-time presence reset clears sessions and match pointers but
// leaves refresh tokens alone
func (s *IntegrationSuite) TestPresenceResetKeepsCredentials() {
	alice, _ := s.registerAndConnect("alice")

	_, pair, err := s.app.AccountService.Login(s.ctx, "alice", "secret123")
	s.Require().NoError(err)

	s.app.MockRandom.QueueString("abcd1234")
	_, err = s.app.MatchController.Create(s.ctx, alice)
	s.Require().NoError(err)

	s.Require().NoError(s.app.ResetPresence(s.ctx))

	online, err := s.app.PresenceRegistry.IsOnline(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.False(online)

	current, err := s.app.PresenceRegistry.CurrentMatch(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Empty(current)

	// The refresh token still rotates after the wipe
	_, _, err = s.app.TokenService.Refresh(s.ctx, pair.RefreshToken)
	s.Require().NoError(err)
}

// Test: a reconnect lands the player back in their match
func (s *IntegrationSuite) TestReconnectRestoresMatch() {
	alice, session := s.registerAndConnect("alice")
	bob, _ := s.registerAndConnect("bob")

	s.app.MockRandom.QueueString("abcd1234")
	created, err := s.app.MatchController.Create(s.ctx, alice)
	s.Require().NoError(err)
	_, err = s.app.MatchController.Join(s.ctx, bob, created.ID)
	s.Require().NoError(err)

	// Alice drops her only session; she goes offline but stays a member
	s.Require().NoError(s.app.MatchController.Disconnect(s.ctx, alice.ID, session))

	view, err := s.app.MatchController.OwnInfo(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.False(view.IsOnline(alice.ID))

	// Reconnecting brings her back online in the same match
	_, err = s.app.MatchController.Connect(s.ctx, alice.ID)
	s.Require().NoError(err)

	view, err = s.app.MatchController.OwnInfo(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().NotNil(view)
	s.Equal(created.ID, view.ID)
	s.True(view.IsOnline(alice.ID))
}
