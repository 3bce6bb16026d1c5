package mongo

import "time"

// Config holds MongoDB connection settings
type Config struct {
	// URI is the MongoDB connection URI (e.g., mongodb://localhost:27017)
	URI string

	// Database is the database name
	Database string

	// ConnectTimeout bounds the initial connect and ping
	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible defaults for MongoDB configuration
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "rpslive",
		ConnectTimeout: 10 * time.Second,
	}
}
