package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration, loaded from environment
// variables.
type Config struct {
	Host string `env:"RPS_HOST"`
	Port int    `env:"RPS_PORT" envDefault:"8080"`

	// StorageType selects the storage backend: "memory" or "external"
	StorageType string `env:"RPS_STORAGE_TYPE" envDefault:"memory"`

	RedisURL      string `env:"RPS_REDIS_URL" envDefault:"redis://localhost:6379"`
	MongoURI      string `env:"RPS_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"RPS_MONGO_DATABASE" envDefault:"rpslive"`

	AccessSecret  string        `env:"RPS_ACCESS_SECRET" envDefault:"dev-access-secret"`
	RefreshSecret string        `env:"RPS_REFRESH_SECRET" envDefault:"dev-refresh-secret"`
	AccessTTL     time.Duration `env:"RPS_ACCESS_TTL" envDefault:"1h"`
	RefreshTTL    time.Duration `env:"RPS_REFRESH_TTL" envDefault:"168h"`

	// AvatarURL is the avatar microservice endpoint; empty disables
	// provisioning over the network.
	AvatarURL string `env:"RPS_AVATAR_URL"`

	NextRoundDelay time.Duration `env:"RPS_NEXT_ROUND_DELAY" envDefault:"3s"`

	LogLevel string `env:"RPS_LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration from the environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
