package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yolosopher/rps-live/internal/dependencies/clock"
	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/storage"
)

// Claims is the JWT payload for both access and refresh tokens
type Claims struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Config holds signing and lifetime settings
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// DefaultConfig returns default token configuration. Secrets are empty and
// must be provided by the caller.
func DefaultConfig() Config {
	return Config{
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// Service mints, verifies and rotates credential pairs. Refresh tokens are
// allow-listed in the token store; a refresh token that is absent from the
// store is treated as revoked no matter what its signature says.
type Service struct {
	tokens storage.TokenStore
	clock  clock.Clock
	cfg    Config
}

// New creates a new token service
func New(tokens storage.TokenStore, clk clock.Clock, cfg Config) *Service {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultConfig().AccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultConfig().RefreshTTL
	}
	return &Service{
		tokens: tokens,
		clock:  clk,
		cfg:    cfg,
	}
}

// Mint signs a fresh access/refresh pair for the identity and allow-lists
// the refresh token.
func (s *Service) Mint(ctx context.Context, identity model.Identity) (model.TokenPair, error) {
	now := s.clock.Now()

	access, err := s.sign(identity, now, s.cfg.AccessTTL, s.cfg.AccessSecret)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := s.sign(identity, now, s.cfg.RefreshTTL, s.cfg.RefreshSecret)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.tokens.PutRefreshToken(ctx, identity.UserID, refresh, s.cfg.RefreshTTL); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess validates an access token and returns the identity it
// carries. An expired-but-otherwise-valid token maps to ErrRefreshRequired
// so transports can tell the client to rotate instead of re-login.
func (s *Service) VerifyAccess(tokenStr string) (model.Identity, error) {
	claims, err := s.parse(tokenStr, s.cfg.AccessSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, model.ErrRefreshRequired
		}
		return model.Identity{}, model.ErrInvalidToken
	}
	return claims.identity(), nil
}

// Refresh rotates a credential pair: the presented refresh token is checked
// against the allow-list, revoked, and replaced by a freshly minted pair.
func (s *Service) Refresh(ctx context.Context, refreshStr string) (model.Identity, model.TokenPair, error) {
	claims, err := s.parse(refreshStr, s.cfg.RefreshSecret)
	if err != nil {
		return model.Identity{}, model.TokenPair{}, model.ErrInvalidToken
	}

	identity := claims.identity()

	ok, err := s.tokens.HasRefreshToken(ctx, identity.UserID, refreshStr)
	if err != nil {
		return model.Identity{}, model.TokenPair{}, err
	}
	if !ok {
		return model.Identity{}, model.TokenPair{}, model.ErrTokenRevoked
	}

	if err := s.tokens.DeleteRefreshToken(ctx, identity.UserID, refreshStr); err != nil {
		return model.Identity{}, model.TokenPair{}, err
	}

	pair, err := s.Mint(ctx, identity)
	if err != nil {
		return model.Identity{}, model.TokenPair{}, err
	}
	return identity, pair, nil
}

// Handshake authenticates a request carrying both credentials. A valid
// access token passes through untouched. An expired one is renewed off the
// refresh token: a refresh token in the first half of its life stays as it
// is and only a new access token is minted, while one past its half-life is
// rotated along with the access token. The returned pair is non-nil exactly
// when the client must store new credentials.
func (s *Service) Handshake(ctx context.Context, accessStr, refreshStr string) (model.Identity, *model.TokenPair, error) {
	claims, err := s.parse(accessStr, s.cfg.AccessSecret)
	if err == nil {
		return claims.identity(), nil, nil
	}
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return model.Identity{}, nil, model.ErrInvalidToken
	}
	if refreshStr == "" {
		return model.Identity{}, nil, model.ErrRefreshRequired
	}

	refreshClaims, err := s.parse(refreshStr, s.cfg.RefreshSecret)
	if err != nil {
		return model.Identity{}, nil, model.ErrRefreshRequired
	}
	identity := refreshClaims.identity()

	ok, err := s.tokens.HasRefreshToken(ctx, identity.UserID, refreshStr)
	if err != nil {
		return model.Identity{}, nil, err
	}
	if !ok {
		return model.Identity{}, nil, model.ErrRefreshRequired
	}

	if s.pastHalfLife(refreshClaims) {
		rotated, pair, err := s.Refresh(ctx, refreshStr)
		if err != nil {
			return model.Identity{}, nil, model.ErrRefreshRequired
		}
		return rotated, &pair, nil
	}

	access, err := s.sign(identity, s.clock.Now(), s.cfg.AccessTTL, s.cfg.AccessSecret)
	if err != nil {
		return model.Identity{}, nil, err
	}
	return identity, &model.TokenPair{AccessToken: access, RefreshToken: refreshStr}, nil
}

// Revoke removes a refresh token from the allow-list. The signature is
// still required to be valid so the call cannot probe other users' tokens,
// but an expired token revokes cleanly.
func (s *Service) Revoke(ctx context.Context, refreshStr string) error {
	claims, err := s.parse(refreshStr, s.cfg.RefreshSecret)
	if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
		return model.ErrInvalidToken
	}
	return s.tokens.DeleteRefreshToken(ctx, claims.identity().UserID, refreshStr)
}

func (s *Service) sign(identity model.Identity, now time.Time, ttl time.Duration, secret string) (string, error) {
	claims := Claims{
		Username: identity.Username,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(identity.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *Service) parse(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return claims, err
	}
	return claims, nil
}

func (s *Service) pastHalfLife(claims *Claims) bool {
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return false
	}
	half := claims.IssuedAt.Time.Add(claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time) / 2)
	return s.clock.Now().After(half)
}

func (c *Claims) identity() model.Identity {
	return model.Identity{
		UserID:   model.UserID(c.Subject),
		Username: c.Username,
		Role:     c.Role,
	}
}

// ServiceInterface is the consumer-facing surface of the token service
type ServiceInterface interface {
	Mint(ctx context.Context, identity model.Identity) (model.TokenPair, error)
	VerifyAccess(tokenStr string) (model.Identity, error)
	Refresh(ctx context.Context, refreshStr string) (model.Identity, model.TokenPair, error)
	Handshake(ctx context.Context, accessStr, refreshStr string) (model.Identity, *model.TokenPair, error)
	Revoke(ctx context.Context, refreshStr string) error
}

var _ ServiceInterface = (*Service)(nil)
