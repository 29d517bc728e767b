package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 0.75, cfg.CategoryThreshold)
	assert.Equal(t, 1000, cfg.QueueCapacity)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, ":8765", cfg.RelayAddr)
	assert.Equal(t, time.Duration(0), cfg.SessionTTL)
}

func TestLoadFrom_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("session.store", "redis")
	v.Set("session.ttl", "30m")
	v.Set("redis.addr", "redis.internal:6380")
	v.Set("classify.batch_size", 10)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.SessionStore)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 10, cfg.BatchSize)
}

func TestLoadFrom_Environment(t *testing.T) {
	t.Setenv("CRITIQ_MODEL_NAME", "gpt-4o")
	t.Setenv("CRITIQ_DATABASE_URL", "postgres://db:5432/reviews")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "postgres://db:5432/reviews", cfg.DatabaseURL)
}

func TestLoadFrom_Invalid(t *testing.T) {
	v := viper.New()
	v.Set("session.store", "etcd")
	_, err := LoadFrom(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("category.threshold", 1.5)
	_, err = LoadFrom(v)
	assert.Error(t, err)
}
