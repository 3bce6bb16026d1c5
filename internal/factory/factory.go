package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/yolosopher/rps-live/internal/avatar"
	"github.com/yolosopher/rps-live/internal/dependencies/clock"
	"github.com/yolosopher/rps-live/internal/dependencies/random"
	"github.com/yolosopher/rps-live/internal/gateway"
	"github.com/yolosopher/rps-live/internal/services/account"
	"github.com/yolosopher/rps-live/internal/services/match"
	"github.com/yolosopher/rps-live/internal/services/presence"
	"github.com/yolosopher/rps-live/internal/services/token"
	"github.com/yolosopher/rps-live/internal/storage"
	"github.com/yolosopher/rps-live/internal/storage/memory"
	mongostorage "github.com/yolosopher/rps-live/internal/storage/mongo"
	redisstorage "github.com/yolosopher/rps-live/internal/storage/redis"
)

// Storage type constants
const (
	// StorageTypeMemory keeps everything in process, for tests and dev
	StorageTypeMemory = "memory"
	// StorageTypeExternal uses mongo for match/user records and redis for
	// presence and refresh tokens
	StorageTypeExternal = "external"
)

// App contains all wired application components
type App struct {
	// Storage
	Matches  storage.MatchStore
	Users    storage.UserStore
	Presence storage.PresenceStore
	Tokens   storage.TokenStore

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	TokenService     *token.Service
	AccountService   *account.Service
	PresenceRegistry *presence.Registry
	MatchController  *match.Controller
	Hub              *gateway.Hub
	Gateway          *gateway.Gateway

	closers []func(ctx context.Context) error
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "external")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required for "external")
	RedisConfig *redisstorage.Config
	// MongoConfig holds Mongo connection settings (required for "external")
	MongoConfig *mongostorage.Config
	// TokenConfig holds signing secrets and lifetimes
	TokenConfig token.Config
	// AvatarURL is the avatar microservice endpoint (optional)
	AvatarURL string
	// NextRoundDelay is how long a resolved round stays on screen before
	// the next one opens. Defaults to match.DefaultNextRoundDelay.
	NextRoundDelay time.Duration
	// GatewayConfig tunes the websocket gateway
	GatewayConfig gateway.Config
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	var (
		matches   storage.MatchStore
		users     storage.UserStore
		presences storage.PresenceStore
		tokens    storage.TokenStore
		closers   []func(ctx context.Context) error
	)

	switch storageType {
	case StorageTypeMemory:
		store := memory.New()
		matches, users, presences, tokens = store, store, store, store

	case StorageTypeExternal:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is external")
		}
		if cfg.MongoConfig == nil {
			return nil, errors.New("MongoConfig required when StorageType is external")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		mongoStore, err := mongostorage.New(ctx, *cfg.MongoConfig)
		if err != nil {
			_ = redisStore.Close()
			return nil, err
		}
		matches, users = mongoStore, mongoStore
		presences, tokens = redisStore, redisStore
		closers = append(closers,
			func(context.Context) error { return redisStore.Close() },
			mongoStore.Close,
		)

	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'external'")
	}

	clk := clock.New()
	rnd := random.New()

	nextRoundDelay := cfg.NextRoundDelay
	if nextRoundDelay == 0 {
		nextRoundDelay = match.DefaultNextRoundDelay
	}

	app := newWithDependencies(deps{
		matches:        matches,
		users:          users,
		presences:      presences,
		tokens:         tokens,
		clock:          clk,
		random:         rnd,
		logger:         logger,
		tokenConfig:    cfg.TokenConfig,
		avatarURL:      cfg.AvatarURL,
		nextRoundDelay: nextRoundDelay,
		gatewayConfig:  cfg.GatewayConfig,
	})
	app.closers = closers
	return app, nil
}

// deps bundles everything newWithDependencies needs; tests swap in mocks
type deps struct {
	matches   storage.MatchStore
	users     storage.UserStore
	presences storage.PresenceStore
	tokens    storage.TokenStore

	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	tokenConfig    token.Config
	avatarURL      string
	nextRoundDelay time.Duration
	gatewayConfig  gateway.Config
}

func newWithDependencies(d deps) *App {
	tokenService := token.New(d.tokens, d.clock, d.tokenConfig)

	var avatars avatar.Provisioner
	if d.avatarURL != "" {
		avatars = avatar.NewHTTPProvisioner(d.avatarURL)
	} else {
		avatars = avatar.NewNoopProvisioner("")
	}
	accountService := account.New(d.users, tokenService, avatars, d.clock)

	registry := presence.NewRegistry(d.presences)
	hub := gateway.NewHub()
	controller := match.NewController(d.matches, registry, d.clock, d.random, hub, d.logger, d.nextRoundDelay)
	gw := gateway.New(hub, tokenService, controller, d.clock, d.logger, d.gatewayConfig)

	return &App{
		Matches:          d.matches,
		Users:            d.users,
		Presence:         d.presences,
		Tokens:           d.tokens,
		Clock:            d.clock,
		Random:           d.random,
		TokenService:     tokenService,
		AccountService:   accountService,
		PresenceRegistry: registry,
		MatchController:  controller,
		Hub:              hub,
		Gateway:          gw,
	}
}

// ResetPresence wipes all presence state. Called at boot: sessions from a
// previous process are gone, but refresh tokens must survive restarts.
func (a *App) ResetPresence(ctx context.Context) error {
	return a.PresenceRegistry.Reset(ctx)
}

// Close releases external connections
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, close := range a.closers {
		if err := close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
