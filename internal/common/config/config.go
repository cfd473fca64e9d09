package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port        int      `env:"PORT" envDefault:"8001"`
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	}

	Store struct {
		Backend string        `env:"STORE_BACKEND" envDefault:"memory"`
		Timeout time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Postgres struct {
		URL string `env:"DATABASE_URL"`
	}

	Mongo struct {
		URL      string `env:"MONGO_URL" envDefault:"mongodb://localhost:27017/"`
		Database string `env:"MONGO_DATABASE" envDefault:"twitch_giveaway"`
	}

	Twitch struct {
		// Without credentials the listener joins anonymously (read-only).
		IRCEnabled   bool          `env:"TWITCH_IRC_ENABLED" envDefault:"false"`
		Username     string        `env:"TWITCH_IRC_USERNAME"`
		OAuthToken   string        `env:"TWITCH_IRC_OAUTH"`
		SyncInterval time.Duration `env:"TWITCH_IRC_SYNC_INTERVAL" envDefault:"15s"`
	}

	ChatStream struct {
		Enabled  bool   `env:"CHAT_STREAM_ENABLED" envDefault:"false"`
		Key      string `env:"CHAT_STREAM_KEY" envDefault:"chat:events"`
		Group    string `env:"CHAT_STREAM_GROUP" envDefault:"giveaway_ingest"`
		Consumer string `env:"CHAT_STREAM_CONSUMER" envDefault:"ingest_worker_1"`
	}

	Ingest struct {
		RatePerSec float64 `env:"INGEST_RATE_PER_SEC" envDefault:"50"`
		Burst      int     `env:"INGEST_BURST" envDefault:"100"`
	}

	BotUsername string `env:"BOT_USERNAME" envDefault:"TwitchBot"`
}

// Load reads the environment (and an optional .env file) into Config.
func Load() (*Config, error) {
	// .env is optional; in production variables come from the environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected store backend has what it needs.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendMongo:
		if c.Mongo.URL == "" || c.Mongo.Database == "" {
			return fmt.Errorf("MONGO_URL and MONGO_DATABASE are required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.ChatStream.Enabled && c.Store.Backend != BackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when CHAT_STREAM_ENABLED is set")
	}
	return nil
}
