package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnvVars = []string{
	"COREENGINEDB_CONFIG", "SERVER_PORT", "LOG_LEVEL", "BLOB_BACKEND", "BLOB_DIR",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "REDIS_ADDR", "DATABASE_URL", "NATS_URL",
	"ADMIN_TOKEN", "SESSION_TTL", "RATE_LIMIT", "RATE_WINDOW", "STRIPE_SECRET",
	"STRIPE_WEBHOOK_SECRET", "STRIPE_API_BASE", "ALLOWED_ORIGINS", "DEFAULT_ORIGIN",
	"ACTIVITY_STDOUT",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name        string
		env         map[string]string
		wantErr     bool
		wantBackend string
		wantTTL     time.Duration
		wantOrigins int
	}{
		{
			name:        "Defaults",
			env:         map[string]string{},
			wantBackend: BackendFS,
			wantTTL:     time.Hour,
			wantOrigins: 3,
		},
		{
			name: "Overrides",
			env: map[string]string{
				"BLOB_BACKEND":    "MEMORY",
				"SESSION_TTL":     "120",
				"ALLOWED_ORIGINS": "https://a.example, https://b.example",
			},
			wantBackend: BackendMemory,
			wantTTL:     2 * time.Minute,
			wantOrigins: 2,
		},
		{
			name:    "BadTTL",
			env:     map[string]string{"SESSION_TTL": "soon"},
			wantErr: true,
		},
		{
			name:    "UnknownBackend",
			env:     map[string]string{"BLOB_BACKEND": "floppy"},
			wantErr: true,
		},
		{
			name:    "S3WithoutBucket",
			env:     map[string]string{"BLOB_BACKEND": "s3"},
			wantErr: true,
		},
		{
			name:    "PostgresWithoutURL",
			env:     map[string]string{"BLOB_BACKEND": "postgres"},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.BlobBackend != tc.wantBackend {
				t.Errorf("BlobBackend = %q, want %q", cfg.BlobBackend, tc.wantBackend)
			}
			if cfg.SessionTTL != tc.wantTTL {
				t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, tc.wantTTL)
			}
			if len(cfg.AllowedOrigins) != tc.wantOrigins {
				t.Errorf("AllowedOrigins = %v, want %d entries", cfg.AllowedOrigins, tc.wantOrigins)
			}
			if cfg.RateLimit != 15 || cfg.RateWindow != time.Minute {
				t.Errorf("rate limit defaults changed: %d per %v", cfg.RateLimit, cfg.RateWindow)
			}
		})
	}
}

func TestLoad_TOMLFileWithEnvOverride(t *testing.T) {
	clearAllEnv(t)
	path := filepath.Join(t.TempDir(), "coreenginedb.toml")
	content := `
server_port = "9000"
blob_backend = "redis"
redis_addr = "cache:6379"
session_ttl = 60
allowed_origins = ["https://only.example"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COREENGINEDB_CONFIG", path)
	t.Setenv("SERVER_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerPort != "9100" {
		t.Errorf("env should override file: port %q", cfg.ServerPort)
	}
	if cfg.BlobBackend != BackendRedis || cfg.RedisAddr != "cache:6379" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.SessionTTL != time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://only.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("COREENGINEDB_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
