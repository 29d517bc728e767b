// Package config loads runtime settings from a YAML file and CRITIQ_*
// environment variables, with sensible defaults for local development.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the effective runtime configuration.
type Config struct {
	// DatabaseURL is the Postgres DSN for reviews and issue records.
	DatabaseURL string

	// RedisAddr, RedisPassword, RedisDB configure the redis session store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SessionStore selects the session backend: memory, sqlite, postgres
	// or redis.
	SessionStore string

	// SQLitePath is the database file for the sqlite session store.
	SQLitePath string

	// SessionTTL expires idle sessions in the redis store; zero keeps
	// them forever.
	SessionTTL time.Duration

	// Model is the chat model name.
	Model string

	// CategoryThreshold is the cosine similarity above which category
	// labels merge.
	CategoryThreshold float64

	// CategoryCache persists learned category mappings, empty to disable.
	CategoryCache string

	// QueueCapacity bounds session inboxes and the relay dispatch queue.
	QueueCapacity int

	// BatchSize is how many reviews one classification run processes.
	BatchSize int

	// RelayAddr is the listen address of the relay server.
	RelayAddr string
}

// Load reads configuration from the default locations: an optional
// critiq.yaml in the working directory or ~/.config/critiq, overridden
// by CRITIQ_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("critiq")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/critiq")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return LoadFrom(v)
}

// LoadFrom builds a Config from an already prepared viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("CRITIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.url", "postgres://localhost:5432/critiq?sslmode=disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.sqlite_path", "critiq.db")
	v.SetDefault("session.ttl", time.Duration(0))
	v.SetDefault("model.name", "gpt-4o-mini")
	v.SetDefault("category.threshold", 0.75)
	v.SetDefault("category.cache", "")
	v.SetDefault("queue.capacity", 1000)
	v.SetDefault("classify.batch_size", 50)
	v.SetDefault("relay.addr", ":8765")

	cfg := &Config{
		DatabaseURL:       v.GetString("database.url"),
		RedisAddr:         v.GetString("redis.addr"),
		RedisPassword:     v.GetString("redis.password"),
		RedisDB:           v.GetInt("redis.db"),
		SessionStore:      v.GetString("session.store"),
		SQLitePath:        v.GetString("session.sqlite_path"),
		SessionTTL:        v.GetDuration("session.ttl"),
		Model:             v.GetString("model.name"),
		CategoryThreshold: v.GetFloat64("category.threshold"),
		CategoryCache:     v.GetString("category.cache"),
		QueueCapacity:     v.GetInt("queue.capacity"),
		BatchSize:         v.GetInt("classify.batch_size"),
		RelayAddr:         v.GetString("relay.addr"),
	}

	switch cfg.SessionStore {
	case "memory", "sqlite", "postgres", "redis":
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
	if cfg.CategoryThreshold <= 0 || cfg.CategoryThreshold > 1 {
		return nil, fmt.Errorf("category threshold %v out of range (0, 1]", cfg.CategoryThreshold)
	}
	return cfg, nil
}
