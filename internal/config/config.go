package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Blob backends.
const (
	BackendMemory   = "memory"
	BackendFS       = "fs"
	BackendS3       = "s3"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

var defaultOrigins = []string{
	"https://kwentonglasing.servebeer.com",
	"https://coreenginedb.meoasis2014.workers.dev",
	"https://assets.antserver1.eu.org",
}

// Config is read from an optional TOML file (COREENGINEDB_CONFIG) and then
// overridden by environment variables.
type Config struct {
	ServerPort string `toml:"server_port"` // SERVER_PORT (default "8080")
	LogLevel   string `toml:"log_level"`   // LOG_LEVEL (default "info")

	BlobBackend string `toml:"blob_backend"` // BLOB_BACKEND (default "fs")
	BlobDir     string `toml:"blob_dir"`     // BLOB_DIR (default "./data")
	S3Bucket    string `toml:"s3_bucket"`    // S3_BUCKET (required for s3)
	S3Region    string `toml:"s3_region"`    // S3_REGION (default "us-east-1")
	S3Endpoint  string `toml:"s3_endpoint"`  // S3_ENDPOINT (custom endpoint for R2/MinIO)
	RedisAddr   string `toml:"redis_addr"`   // REDIS_ADDR (default "localhost:6379")
	DatabaseURL string `toml:"database_url"` // DATABASE_URL (required for postgres)
	NATSURL     string `toml:"nats_url"`     // NATS_URL (optional, empty = no events)

	AdminToken string        `toml:"admin_token"` // ADMIN_TOKEN (superadmin rotation, session signing)
	SessionTTL time.Duration `toml:"-"`           // SESSION_TTL seconds (default 3600)

	RateLimit  int           `toml:"rate_limit"` // RATE_LIMIT requests per window (default 15)
	RateWindow time.Duration `toml:"-"`          // RATE_WINDOW seconds (default 60)

	StripeSecret        string `toml:"stripe_secret"`         // STRIPE_SECRET
	StripeWebhookSecret string `toml:"stripe_webhook_secret"` // STRIPE_WEBHOOK_SECRET
	StripeAPIBase       string `toml:"stripe_api_base"`       // STRIPE_API_BASE

	AllowedOrigins []string `toml:"allowed_origins"` // ALLOWED_ORIGINS (comma separated)
	DefaultOrigin  string   `toml:"default_origin"`  // DEFAULT_ORIGIN (top-up redirect base)
	ActivityStdout bool     `toml:"activity_stdout"` // ACTIVITY_STDOUT mirrors activity as JSON lines

	// Seconds fields as they appear in the file.
	SessionTTLSeconds int `toml:"session_ttl"`
	RateWindowSeconds int `toml:"rate_window"`
}

func defaults() *Config {
	return &Config{
		ServerPort:        "8080",
		LogLevel:          "info",
		BlobBackend:       BackendFS,
		BlobDir:           "./data",
		S3Region:          "us-east-1",
		RedisAddr:         "localhost:6379",
		SessionTTLSeconds: 3600,
		RateLimit:         15,
		RateWindowSeconds: 60,
		StripeAPIBase:     "https://api.stripe.com",
		AllowedOrigins:    append([]string(nil), defaultOrigins...),
		DefaultOrigin:     defaultOrigins[0],
	}
}

func Load() (*Config, error) {
	c := defaults()

	if path := os.Getenv("COREENGINEDB_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.BlobBackend = strings.ToLower(getEnv("BLOB_BACKEND", c.BlobBackend))
	c.BlobDir = getEnv("BLOB_DIR", c.BlobDir)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.AdminToken = getEnv("ADMIN_TOKEN", c.AdminToken)
	c.StripeSecret = getEnv("STRIPE_SECRET", c.StripeSecret)
	c.StripeWebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret)
	c.StripeAPIBase = getEnv("STRIPE_API_BASE", c.StripeAPIBase)
	c.DefaultOrigin = getEnv("DEFAULT_ORIGIN", c.DefaultOrigin)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	var err error
	if c.SessionTTLSeconds, err = getInt("SESSION_TTL", c.SessionTTLSeconds); err != nil {
		return nil, err
	}
	if c.RateLimit, err = getInt("RATE_LIMIT", c.RateLimit); err != nil {
		return nil, err
	}
	if c.RateWindowSeconds, err = getInt("RATE_WINDOW", c.RateWindowSeconds); err != nil {
		return nil, err
	}
	if c.ActivityStdout, err = getBool("ACTIVITY_STDOUT", c.ActivityStdout); err != nil {
		return nil, err
	}
	c.SessionTTL = time.Duration(c.SessionTTLSeconds) * time.Second
	c.RateWindow = time.Duration(c.RateWindowSeconds) * time.Second

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.BlobBackend {
	case BackendMemory, BackendFS, BackendRedis:
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("BLOB_BACKEND: unknown backend %q", c.BlobBackend)
	}
	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.RateLimit <= 0 || c.RateWindowSeconds <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_WINDOW must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
