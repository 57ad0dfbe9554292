package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the resolved configuration shared by every binary.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Store     StoreConfig
	Auth      AuthConfig
	Models    ModelsConfig
	Pipeline  PipelineConfig
	Training  TrainingConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Simulator SimulatorConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type LoggingConfig struct {
	Level string
}

// StoreConfig selects the readings store: "postgres" or "memory".
type StoreConfig struct {
	Backend string
}

type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	AllowRegistration bool
	BcryptCost        int
}

type ModelsConfig struct {
	Dir string
}

type PipelineConfig struct {
	RawPath       string
	ProcessedPath string
}

type TrainingConfig struct {
	TestFraction   float64
	Seed           int64
	Iterations     int
	MaxDepth       int
	LearningRate   float64
	MinSamplesLeaf int
	Bins           int
}

// CacheConfig configures the region summary cache: "in_memory" or "memcached".
type CacheConfig struct {
	Backend          string
	TTL              time.Duration
	MemcachedAddrs   string
	MemcachedTimeout time.Duration
}

type RateLimitConfig struct {
	RPS   int
	Burst int
}

type SimulatorConfig struct {
	APIURL   string
	Interval time.Duration
	Seed     int64
}

type fileConfig struct {
	Server struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		RequestTimeout  string `yaml:"request_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		User            string `yaml:"user"`
		Name            string `yaml:"name"`
		SSLMode         string `yaml:"sslmode"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		ConnMaxIdleTime string `yaml:"conn_max_idle_time"`
	} `yaml:"database"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Store struct {
		Backend string `yaml:"backend"`
	} `yaml:"store"`

	Auth struct {
		TokenTTL          string `yaml:"token_ttl"`
		AllowRegistration *bool  `yaml:"allow_registration"`
		BcryptCost        int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`

	Models struct {
		Dir string `yaml:"dir"`
	} `yaml:"models"`

	Pipeline struct {
		RawPath       string `yaml:"raw_path"`
		ProcessedPath string `yaml:"processed_path"`
	} `yaml:"pipeline"`

	Training struct {
		TestFraction   float64 `yaml:"test_fraction"`
		Seed           *int64  `yaml:"seed"`
		Iterations     int     `yaml:"iterations"`
		MaxDepth       int     `yaml:"max_depth"`
		LearningRate   float64 `yaml:"learning_rate"`
		MinSamplesLeaf int     `yaml:"min_samples_leaf"`
		Bins           int     `yaml:"bins"`
	} `yaml:"training"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs   string `yaml:"addrs"`
			Timeout string `yaml:"timeout"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	RateLimit struct {
		RPS   int `yaml:"rps"`
		Burst int `yaml:"burst"`
	} `yaml:"rate_limit"`

	Simulator struct {
		APIURL   string `yaml:"api_url"`
		Interval string `yaml:"interval"`
		Seed     int64  `yaml:"seed"`
	} `yaml:"simulator"`
}

// LoadConfig loads .env (if present), then config/{ENV_NAME}.yaml (default dev)
// or the file named by CONFIG_PATH, then applies environment overrides.
// A missing YAML file is not an error; defaults apply.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		env := os.Getenv("ENV_NAME")
		if env == "" {
			env = "dev"
		}
		path = filepath.Join("config", env+".yaml")
	}
	return LoadConfigFrom(path)
}

// LoadConfigFrom builds a Config from the YAML file at path plus environment overrides.
func LoadConfigFrom(path string) (*Config, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := fromFile(&fc)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromFile(fc *fileConfig) *Config {
	cfg := &Config{}

	cfg.Server.Host = orString(fc.Server.Host, "0.0.0.0")
	cfg.Server.Port = orInt(fc.Server.Port, 8000)
	cfg.Server.ReadTimeout = parseDuration(fc.Server.ReadTimeout, 10*time.Second)
	cfg.Server.WriteTimeout = parseDuration(fc.Server.WriteTimeout, 10*time.Second)
	cfg.Server.IdleTimeout = parseDuration(fc.Server.IdleTimeout, 60*time.Second)
	cfg.Server.RequestTimeout = parseDuration(fc.Server.RequestTimeout, 5*time.Second)
	cfg.Server.ShutdownTimeout = parseDuration(fc.Server.ShutdownTimeout, 30*time.Second)

	cfg.Database.Host = orString(fc.Database.Host, "localhost")
	cfg.Database.Port = orInt(fc.Database.Port, 5432)
	cfg.Database.User = orString(fc.Database.User, "postgres")
	cfg.Database.Database = orString(fc.Database.Name, "air_quality_db")
	cfg.Database.SSLMode = orString(fc.Database.SSLMode, "disable")
	cfg.Database.MaxOpenConns = orInt(fc.Database.MaxOpenConns, 25)
	cfg.Database.MaxIdleConns = orInt(fc.Database.MaxIdleConns, 5)
	cfg.Database.ConnMaxLifetime = parseDuration(fc.Database.ConnMaxLifetime, 30*time.Minute)
	cfg.Database.ConnMaxIdleTime = parseDuration(fc.Database.ConnMaxIdleTime, 5*time.Minute)

	cfg.Logging.Level = orString(strings.ToLower(strings.TrimSpace(fc.Logging.Level)), "info")

	cfg.Store.Backend = orString(strings.ToLower(strings.TrimSpace(fc.Store.Backend)), "postgres")

	cfg.Auth.TokenTTL = parseDuration(fc.Auth.TokenTTL, 8*time.Hour)
	cfg.Auth.AllowRegistration = true
	if fc.Auth.AllowRegistration != nil {
		cfg.Auth.AllowRegistration = *fc.Auth.AllowRegistration
	}
	cfg.Auth.BcryptCost = orInt(fc.Auth.BcryptCost, 10)

	cfg.Models.Dir = orString(fc.Models.Dir, "models")

	cfg.Pipeline.RawPath = orString(fc.Pipeline.RawPath, filepath.Join("data", "raw", "station_hour.csv"))
	cfg.Pipeline.ProcessedPath = orString(fc.Pipeline.ProcessedPath, filepath.Join("data", "processed", "cleaned_aqi.csv"))

	cfg.Training.TestFraction = fc.Training.TestFraction
	if cfg.Training.TestFraction <= 0 {
		cfg.Training.TestFraction = 0.1
	}
	cfg.Training.Seed = 42
	if fc.Training.Seed != nil {
		cfg.Training.Seed = *fc.Training.Seed
	}
	cfg.Training.Iterations = orInt(fc.Training.Iterations, 200)
	cfg.Training.MaxDepth = orInt(fc.Training.MaxDepth, 6)
	cfg.Training.LearningRate = fc.Training.LearningRate
	if cfg.Training.LearningRate <= 0 {
		cfg.Training.LearningRate = 0.1
	}
	cfg.Training.MinSamplesLeaf = orInt(fc.Training.MinSamplesLeaf, 20)
	cfg.Training.Bins = orInt(fc.Training.Bins, 64)

	cfg.Cache.Backend = orString(strings.ToLower(strings.TrimSpace(fc.Cache.Backend)), "in_memory")
	cfg.Cache.TTL = parseDuration(fc.Cache.TTL, 10*time.Second)
	cfg.Cache.MemcachedAddrs = orString(strings.TrimSpace(fc.Cache.Memcached.Addrs), "localhost:11211")
	cfg.Cache.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)

	cfg.RateLimit.RPS = orInt(fc.RateLimit.RPS, 50)
	cfg.RateLimit.Burst = orInt(fc.RateLimit.Burst, 100)

	cfg.Simulator.APIURL = orString(fc.Simulator.APIURL, "http://127.0.0.1:8000/predict")
	cfg.Simulator.Interval = parseDuration(fc.Simulator.Interval, 5*time.Second)
	cfg.Simulator.Seed = fc.Simulator.Seed

	return cfg
}

// applyEnv overrides file values with environment variables. Secrets only come from env.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_PORT must be an integer, got %q", v)
		}
		cfg.Database.Port = port
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}

	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT must be an integer, got %q", v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("MEMCACHED_ADDRS"); v != "" {
		cfg.Cache.MemcachedAddrs = strings.TrimSpace(v)
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		cfg.Models.Dir = v
	}
	return nil
}

// Validate checks cross-field constraints. Binaries call it after LoadConfig.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Store.Backend {
	case "postgres", "memory":
	default:
		return fmt.Errorf("store.backend must be postgres or memory, got %q", c.Store.Backend)
	}
	switch c.Cache.Backend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", c.Cache.Backend)
	}
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return fmt.Errorf("training.test_fraction must be in (0, 1), got %v", c.Training.TestFraction)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be in [4, 31], got %d", c.Auth.BcryptCost)
	}
	return nil
}

// ValidateServing adds the checks only the API server needs.
func (c *Config) ValidateServing() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be set to at least 16 characters")
	}
	return nil
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// parseDuration returns def when s is empty, malformed or not positive.
func parseDuration(s string, def time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
