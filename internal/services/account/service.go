package account

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yolosopher/rps-live/internal/avatar"
	"github.com/yolosopher/rps-live/internal/dependencies/clock"
	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/services/token"
	"github.com/yolosopher/rps-live/internal/storage"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

const minPasswordLength = 6

// Service handles account registration, login and credential issuing
type Service struct {
	users   storage.UserStore
	tokens  token.ServiceInterface
	avatars avatar.Provisioner
	clock   clock.Clock
}

// New creates a new account service
func New(
	users storage.UserStore,
	tokens token.ServiceInterface,
	avatars avatar.Provisioner,
	clk clock.Clock,
) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		avatars: avatars,
		clock:   clk,
	}
}

// Register creates an account and signs the new user in
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, model.TokenPair, error) {
	username = normalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return nil, model.TokenPair{}, model.ErrInvalidUsername
	}
	if len(password) < minPasswordLength {
		return nil, model.TokenPair{}, model.ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, model.TokenPair{}, err
	}

	// Avatar provisioning is best effort; an account without an avatar is
	// better than no account.
	avatarURL, _ := s.avatars.Provision(ctx, username)

	user := &model.User{
		ID:           model.UserID(uuid.NewString()),
		Username:     username,
		PasswordHash: string(hash),
		AvatarURL:    avatarURL,
		Role:         model.RolePlayer,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, model.TokenPair{}, err
	}

	pair, err := s.tokens.Mint(ctx, identityOf(user))
	if err != nil {
		return nil, model.TokenPair{}, err
	}
	return user, pair, nil
}

// Login authenticates an account and signs it in. Logging into a
// soft-deleted account reactivates it.
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, model.TokenPair, error) {
	user, err := s.users.GetUserByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.TokenPair{}, model.ErrInvalidCredentials
		}
		return nil, model.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.TokenPair{}, model.ErrInvalidCredentials
	}

	if user.Deleted {
		if err := s.users.SetDeleted(ctx, user.ID, false); err != nil {
			return nil, model.TokenPair{}, err
		}
		user.Deleted = false
	}

	pair, err := s.tokens.Mint(ctx, identityOf(user))
	if err != nil {
		return nil, model.TokenPair{}, err
	}
	return user, pair, nil
}

// Logout revokes the presented refresh token. The access token is left to
// age out on its own.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

// Refresh rotates a credential pair, re-checking that the account behind it
// is still live.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.User, model.TokenPair, error) {
	identity, pair, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, model.TokenPair{}, err
	}

	user, err := s.users.GetUserByID(ctx, identity.UserID)
	if err != nil {
		return nil, model.TokenPair{}, err
	}
	if user.Deleted {
		return nil, model.TokenPair{}, model.ErrInvalidToken
	}
	return user, pair, nil
}

// GetUser returns a live account by id
func (s *Service) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Deleted {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

// Deactivate soft-deletes the account and revokes the presented refresh
// token. The account comes back on the next successful login.
func (s *Service) Deactivate(ctx context.Context, id model.UserID, refreshToken string) error {
	if err := s.users.SetDeleted(ctx, id, true); err != nil {
		return err
	}
	if refreshToken != "" {
		return s.tokens.Revoke(ctx, refreshToken)
	}
	return nil
}

func identityOf(user *model.User) model.Identity {
	return model.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ServiceInterface is the consumer-facing surface of the account service
type ServiceInterface interface {
	Register(ctx context.Context, username, password string) (*model.User, model.TokenPair, error)
	Login(ctx context.Context, username, password string) (*model.User, model.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*model.User, model.TokenPair, error)
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	Deactivate(ctx context.Context, id model.UserID, refreshToken string) error
}

var _ ServiceInterface = (*Service)(nil)
