package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var overrideVars = []string{
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"JWT_SECRET", "LOG_LEVEL", "SERVER_PORT", "STORE_BACKEND",
	"CACHE_BACKEND", "MEMCACHED_ADDRS", "MODEL_DIR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range overrideVars {
		t.Setenv(k, "")
	}
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfigFrom_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Training.TestFraction != 0.1 {
		t.Errorf("Training.TestFraction = %v, want 0.1", cfg.Training.TestFraction)
	}
	if cfg.Training.Seed != 42 {
		t.Errorf("Training.Seed = %d, want 42", cfg.Training.Seed)
	}
	if cfg.Auth.TokenTTL != 8*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 8h", cfg.Auth.TokenTTL)
	}
	if cfg.Cache.Backend != "in_memory" {
		t.Errorf("Cache.Backend = %q, want in_memory", cfg.Cache.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoadConfigFrom_FileValues(t *testing.T) {
	clearEnv(t)

	path := writeYAML(t, `
server:
  port: 9090
  read_timeout: 3s
database:
  host: db.internal
  name: aqi
store:
  backend: memory
auth:
  allow_registration: false
  token_ttl: 1h
training:
  test_fraction: 0.2
  seed: 7
cache:
  backend: memcached
  ttl: 30s
  memcached:
    addrs: "cache-1:11211,cache-2:11211"
`)

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Database != "aqi" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Auth.AllowRegistration {
		t.Error("Auth.AllowRegistration = true, want false from file")
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 1h", cfg.Auth.TokenTTL)
	}
	if cfg.Training.TestFraction != 0.2 || cfg.Training.Seed != 7 {
		t.Errorf("Training = %+v", cfg.Training)
	}
	if cfg.Cache.Backend != "memcached" || cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if !strings.Contains(cfg.Cache.MemcachedAddrs, "cache-2") {
		t.Errorf("Cache.MemcachedAddrs = %q", cfg.Cache.MemcachedAddrs)
	}
}

func TestLoadConfigFrom_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "override-host")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("MODEL_DIR", "/srv/models")

	path := writeYAML(t, "database:\n  host: file-host\n")
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}

	if cfg.Database.Host != "override-host" || cfg.Database.Port != 6543 {
		t.Errorf("Database = %+v, want env overrides", cfg.Database)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("Database.Password not taken from env")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Models.Dir != "/srv/models" {
		t.Errorf("Models.Dir = %q", cfg.Models.Dir)
	}
	if err := cfg.ValidateServing(); err != nil {
		t.Errorf("ValidateServing() = %v", err)
	}
}

func TestLoadConfigFrom_BadEnvPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PORT", "not-a-port")

	if _, err := LoadConfigFrom(writeYAML(t, "")); err == nil {
		t.Fatal("LoadConfigFrom() expected error for non-numeric DB_PORT")
	}
}

func TestLoadConfigFrom_InvalidYAML(t *testing.T) {
	clearEnv(t)

	if _, err := LoadConfigFrom(writeYAML(t, "server: [unclosed")); err == nil {
		t.Fatal("LoadConfigFrom() expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad store backend", func(c *Config) { c.Store.Backend = "sqlite" }, "store.backend"},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "redis" }, "cache.backend"},
		{"test fraction too large", func(c *Config) { c.Training.TestFraction = 1 }, "test_fraction"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }, "bcrypt_cost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fromFile(&fileConfig{})
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateServing_RequiresSecret(t *testing.T) {
	cfg := fromFile(&fileConfig{})
	cfg.Auth.JWTSecret = "short"
	if err := cfg.ValidateServing(); err == nil {
		t.Fatal("ValidateServing() expected error for short secret")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Second},
		{"250ms", 250 * time.Millisecond},
		{"garbage", time.Second},
		{"-5s", time.Second},
		{"0s", time.Second},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in, time.Second); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
