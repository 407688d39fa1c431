package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
	BackendRedis  = "redis"
)

type Config struct {
	StoreBackend string
	DBDriver     string
	DatabaseURL  string
	RedisURL     string
	RedisPrefix  string
	LogLevel     string
	LogFormat    string
	// Seed for map list generation. Zero means a random seed.
	MapListSeed uint64
}

// Load reads the configuration from the environment. A .env file is loaded
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreBackend: getenv("STORE_BACKEND", BackendSQL),
		DBDriver:     getenv("DB_DRIVER", "sqlite3"),
		DatabaseURL:  getenv("DATABASE_URL", "bracket.db?_journal_mode=WAL"),
		RedisURL:     getenv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix:  getenv("REDIS_PREFIX", "bracket:"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFormat:    getenv("LOG_FORMAT", "text"),
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendSQL, BackendRedis:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.DBDriver != "sqlite3" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER %q", cfg.DBDriver)
	}

	if seed := os.Getenv("MAPLIST_SEED"); seed != "" {
		v, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAPLIST_SEED environment variable: %w", err)
		}
		cfg.MapListSeed = v
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
