package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

type Config struct {
	HTTPPort           string        `yaml:"http_port"`
	GRPCPort           string        `yaml:"grpc_port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`

	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	User      UserConfig      `yaml:"user"`
	Messaging MessagingConfig `yaml:"messaging"`
	Images    ImagesConfig    `yaml:"images"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend"`
	Namespace string `yaml:"namespace"`

	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	// RedisTTL only applies to cache entries; Redis as the primary
	// backend never expires keys.
	RedisTTL time.Duration `yaml:"redis_ttl"`

	MongoURI string `yaml:"mongo_uri"`
	MongoDB  string `yaml:"mongo_db"`

	// CacheRedis puts Redis in front of a durable backend.
	CacheRedis bool `yaml:"cache_redis"`

	Breaker BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type UserConfig struct {
	ID     int64  `yaml:"id"`
	Name   string `yaml:"name"`
	Avatar string `yaml:"avatar"`
}

type MessagingConfig struct {
	ReplyDelay time.Duration `yaml:"reply_delay"`
	Seed       bool          `yaml:"seed"`
}

type ImagesConfig struct {
	OptimizerURL string `yaml:"optimizer_url"`
	Placeholder  string `yaml:"placeholder"`
	Width        int    `yaml:"width"`
	Quality      int    `yaml:"quality"`
	Format       string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		HTTPPort:           "8080",
		GRPCPort:           "50052",
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Backend:    BackendSQLite,
			SQLitePath: "./artisan.db",
			RedisAddr:  "localhost:6379",
			RedisTTL:   15 * time.Minute,
			MongoURI:   "mongodb://localhost:27017",
			MongoDB:    "artisandb",
			Breaker: BreakerConfig{
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		Kafka: KafkaConfig{
			Topic:   "checkout-outbox",
			GroupID: "artisan-state-service",
		},
		User: UserConfig{
			ID:     999,
			Name:   "You",
			Avatar: "/assets/avatar.jpg",
		},
		Messaging: MessagingConfig{
			ReplyDelay: time.Second,
			Seed:       true,
		},
		Images: ImagesConfig{
			OptimizerURL: "https://image-optimizer.example.com/",
			Placeholder:  "/assets/placeholder.jpg",
			Width:        800,
			Quality:      85,
			Format:       "webp",
		},
	}
}

// Load returns the defaults, overlaid with the YAML file at path (when
// path is not empty) and then with environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.GRPCPort = getEnv("GRPC_PORT", c.GRPCPort)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Namespace = getEnv("STORAGE_NAMESPACE", c.Storage.Namespace)
	c.Storage.SQLitePath = getEnv("DB_PATH", c.Storage.SQLitePath)
	c.Storage.PostgresDSN = getEnv("POSTGRES_DSN", c.Storage.PostgresDSN)
	c.Storage.RedisAddr = getEnv("REDIS_ADDR", c.Storage.RedisAddr)
	c.Storage.RedisPassword = getEnv("REDIS_PASSWORD", c.Storage.RedisPassword)
	c.Storage.MongoURI = getEnv("MONGO_URI", c.Storage.MongoURI)
	c.Storage.MongoDB = getEnv("MONGO_DB_NAME", c.Storage.MongoDB)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
	c.Images.OptimizerURL = getEnv("IMAGE_OPTIMIZER_URL", c.Images.OptimizerURL)

	var err error
	if c.Storage.CacheRedis, err = getEnvBool("STORAGE_CACHE_REDIS", c.Storage.CacheRedis); err != nil {
		return err
	}
	if c.Storage.Breaker.Enabled, err = getEnvBool("STORAGE_BREAKER", c.Storage.Breaker.Enabled); err != nil {
		return err
	}
	if c.Messaging.ReplyDelay, err = getEnvDuration("REPLY_DELAY", c.Messaging.ReplyDelay); err != nil {
		return err
	}
	if c.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if v := getEnv("CURRENT_USER_ID", ""); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: CURRENT_USER_ID: %v", ErrInvalid, err)
		}
		c.User.ID = id
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite, BackendPostgres, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, c.Storage.Backend)
	}
	if c.Storage.Backend == BackendPostgres && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres backend needs postgres_dsn", ErrInvalid)
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalid)
	}
	if c.Messaging.ReplyDelay < 0 {
		return fmt.Errorf("%w: reply delay must not be negative", ErrInvalid)
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("%w: http port is empty", ErrInvalid)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return d, nil
}
