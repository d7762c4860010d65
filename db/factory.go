package db

import (
	"fmt"
)

// Backend selects a DatabaseProvider implementation
type Backend string

const (
	// BackendMemory keeps everything in process memory
	BackendMemory Backend = "memory"

	// BackendLevelDB uses an embedded LevelDB directory
	BackendLevelDB Backend = "leveldb"

	// BackendBolt uses a single bbolt file
	BackendBolt Backend = "bolt"

	// BackendPostgres uses a key-value table in Postgres
	BackendPostgres Backend = "postgres"

	// BackendRedis uses a Redis server
	BackendRedis Backend = "redis"
)

// Config holds configuration for creating a provider
type Config struct {
	// Backend specifies which implementation to use
	Backend Backend `json:"backend" yaml:"backend"`

	// Directory is the database path (for file-based backends)
	Directory string `json:"directory" yaml:"directory"`

	// DSN is the connection string (postgres DSN or redis address)
	DSN string `json:"dsn" yaml:"dsn"`
}

// Validate validates the provider configuration
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendLevelDB, BackendBolt:
		if c.Directory == "" {
			return fmt.Errorf("directory cannot be empty for %s backend", c.Backend)
		}
		return nil
	case BackendPostgres, BackendRedis:
		if c.DSN == "" {
			return fmt.Errorf("dsn cannot be empty for %s backend", c.Backend)
		}
		return nil
	case "":
		return fmt.Errorf("backend cannot be empty")
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
}

// NewProvider creates a database provider based on the configuration
func NewProvider(config *Config) (DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Backend {
	case BackendMemory:
		return NewMemoryProvider(), nil

	case BackendLevelDB:
		return NewLevelDBProvider(config.Directory)

	case BackendBolt:
		return NewBoltProvider(config.Directory)

	case BackendPostgres:
		return NewPostgresProvider(config.DSN)

	case BackendRedis:
		return NewRedisProvider(config.DSN)

	default:
		return nil, fmt.Errorf("unsupported backend: %s", config.Backend)
	}
}
