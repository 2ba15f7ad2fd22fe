package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Backend BackendConfig
	Store   StoreConfig
	Session SessionConfig
	Audit   AuditConfig
	Stub    StubConfig

	AccessPolicyFile string `env:"ACCESS_POLICY_FILE, default=configs/access.yaml"`

	Mongo MongoConfig
	Redis RedisConfig
}

type BackendConfig struct {
	URL     string        `env:"BACKEND_URL,     default=http://localhost:8081/api"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT, default=10s"`
}

type StoreConfig struct {
	Backend string `env:"STORE_BACKEND, default=file"`
	Dir     string `env:"STORE_DIR,     default=./data/sessions"`
}

type SessionConfig struct {
	Cookie        string        `env:"SESSION_COOKIE,         default=sh_client"`
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL,       default=30m"`
	SweepEvery    time.Duration `env:"SESSION_SWEEP,          default=5m"`
	TTL           time.Duration `env:"SESSION_TTL,            default=0s"`
	RejectExpired bool          `env:"SESSION_REJECT_EXPIRED, default=false"`
}

type AuditConfig struct {
	Enabled bool `env:"AUDIT_ENABLED, default=false"`
	Workers int  `env:"AUDIT_WORKERS, default=4"`
}

type StubConfig struct {
	Port      string `env:"STUB_PORT,  default=8081"`
	JWTSecret string `env:"JWT_SECRET"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=servicehub"`
}

type RedisConfig struct {
	Addr   string `env:"REDIS_ADDR,   default=localhost:6379"`
	DB     int    `env:"REDIS_DB,     default=0"`
	Prefix string `env:"REDIS_PREFIX, default=session"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the gateway cannot run with.
func (c *Config) Validate() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case StoreFile:
		if strings.TrimSpace(c.Store.Dir) == "" {
			return errors.New("config: STORE_DIR is required for the file store")
		}
	case StoreRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("config: REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if strings.TrimSpace(c.Backend.URL) == "" {
		return errors.New("config: BACKEND_URL is required")
	}
	if strings.TrimSpace(c.Session.Cookie) == "" {
		return errors.New("config: SESSION_COOKIE must not be empty")
	}
	return nil
}

// IsDevelopment reports whether human-friendly console logs are wanted.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}
