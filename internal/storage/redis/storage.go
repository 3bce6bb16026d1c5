package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/storage"
)

// Storage is a Redis-backed implementation of the presence and token stores
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interfaces
var _ storage.PresenceStore = (*Storage)(nil)
var _ storage.TokenStore = (*Storage)(nil)

// Presence operations

func (s *Storage) AddSession(ctx context.Context, user model.UserID, session string) error {
	key := sessionsKey(user)

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, key, session)
	pipe.Expire(ctx, key, s.cfg.SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) RemoveSession(ctx context.Context, user model.UserID, session string) (int64, error) {
	key := sessionsKey(user)

	pipe := s.client.Pipeline()
	pipe.SRem(ctx, key, session)
	card := pipe.SCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return card.Val(), nil
}

func (s *Storage) SessionCount(ctx context.Context, user model.UserID) (int64, error) {
	return s.client.SCard(ctx, sessionsKey(user)).Result()
}

func (s *Storage) Sessions(ctx context.Context, user model.UserID) ([]string, error) {
	return s.client.SMembers(ctx, sessionsKey(user)).Result()
}

func (s *Storage) SetCurrentMatch(ctx context.Context, user model.UserID, match model.MatchID) error {
	return s.client.Set(ctx, currentMatchKey(user), string(match), s.cfg.SessionTTL).Err()
}

func (s *Storage) GetCurrentMatch(ctx context.Context, user model.UserID) (model.MatchID, error) {
	val, err := s.client.Get(ctx, currentMatchKey(user)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return model.MatchID(val), nil
}

func (s *Storage) ClearCurrentMatch(ctx context.Context, user model.UserID) error {
	return s.client.Del(ctx, currentMatchKey(user)).Err()
}

func (s *Storage) ClearAll(ctx context.Context) error {
	for _, pattern := range presencePatterns() {
		iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Token operations

func (s *Storage) PutRefreshToken(ctx context.Context, user model.UserID, token string, ttl time.Duration) error {
	return s.client.Set(ctx, refreshTokenKey(user, token), "1", ttl).Err()
}

func (s *Storage) HasRefreshToken(ctx context.Context, user model.UserID, token string) (bool, error) {
	exists, err := s.client.Exists(ctx, refreshTokenKey(user, token)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *Storage) DeleteRefreshToken(ctx context.Context, user model.UserID, token string) error {
	return s.client.Del(ctx, refreshTokenKey(user, token)).Err()
}
