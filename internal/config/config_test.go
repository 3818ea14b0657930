package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, int64(999), cfg.User.ID)
	assert.Equal(t, time.Second, cfg.Messaging.ReplyDelay)
	assert.Equal(t, "checkout-outbox", cfg.Kafka.Topic)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artisan.yaml")
	yml := `
http_port: "9090"
storage:
  backend: redis
  redis_addr: redis:6379
  cache_redis: true
messaging:
  reply_delay: 250ms
user:
  id: 42
  name: Alice
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("REDIS_ADDR", "override:6380")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "override:6380", cfg.Storage.RedisAddr)
	assert.True(t, cfg.Storage.CacheRedis)
	assert.Equal(t, 250*time.Millisecond, cfg.Messaging.ReplyDelay)
	assert.Equal(t, int64(42), cfg.User.ID)
	assert.Equal(t, "Alice", cfg.User.Name)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	// untouched defaults survive the overlay
	assert.Equal(t, "/assets/avatar.jpg", cfg.User.Avatar)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("REPLY_DELAY", "soon")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "etcd" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"negative reply delay", func(c *Config) { c.Messaging.ReplyDelay = -time.Second }},
		{"empty port", func(c *Config) { c.HTTPPort = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	assert.NoError(t, Default().Validate())
}
