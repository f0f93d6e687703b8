package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/studyroom/internal/api"
	"github.com/mcoot/studyroom/internal/services/timer"
	redisstorage "github.com/mcoot/studyroom/internal/storage/redis"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Environment variables read by Load
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvHost           = "HOST"
	EnvPort           = "PORT"
	EnvStorageType    = "STORAGE_TYPE"
	EnvRedisURL       = "REDIS_URL"
	EnvTickAuthority  = "TICK_AUTHORITY"
	EnvTickInterval   = "TICK_INTERVAL"
	EnvLogLevel       = "LOG_LEVEL"
	EnvAllowedOrigins = "ALLOWED_ORIGINS"
)

// Config is the full server configuration
type Config struct {
	Server         api.ServerConfig `yaml:"server"`
	Storage        StorageConfig    `yaml:"storage"`
	Timer          TimerConfig      `yaml:"timer"`
	LogLevel       string           `yaml:"log_level"`
	AllowedOrigins []string         `yaml:"allowed_origins"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type  string              `yaml:"type"`
	Redis redisstorage.Config `yaml:"redis"`
}

// TimerConfig controls who advances room timers
type TimerConfig struct {
	Authority    string        `yaml:"authority"`
	TickInterval time.Duration `yaml:"tick_interval"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Server: api.DefaultServerConfig(),
		Storage: StorageConfig{
			Type:  StorageMemory,
			Redis: redisstorage.DefaultConfig(),
		},
		Timer: TimerConfig{
			Authority:    string(timer.AuthorityClient),
			TickInterval: timer.DefaultTickInterval,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration in layers: defaults, then any .env files
// (".env" when none are given), then the YAML file named by CONFIG_FILE,
// then individual environment variables.
func Load(envFiles ...string) (Config, error) {
	if err := loadDotEnv(envFiles); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHost); ok {
		cfg.Server.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup(EnvStorageType); ok && v != "" {
		cfg.Storage.Type = strings.ToLower(v)
	}
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		cfg.Storage.Redis.URL = v
	}
	if v, ok := lookup(EnvTickAuthority); ok && v != "" {
		cfg.Timer.Authority = strings.ToLower(v)
	}
	if v, ok := lookup(EnvTickInterval); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTickInterval, v, err)
		}
		cfg.Timer.TickInterval = d
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvAllowedOrigins); ok && v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	return nil
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.Redis.URL == "" {
			return errors.New("redis url required when storage type is redis")
		}
	default:
		return fmt.Errorf("invalid storage type %q: must be %q or %q", c.Storage.Type, StorageMemory, StorageRedis)
	}
	if _, err := timer.ParseAuthority(c.Timer.Authority); err != nil {
		return err
	}
	if c.Timer.TickInterval <= 0 {
		return fmt.Errorf("invalid tick interval %s", c.Timer.TickInterval)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Authority returns the parsed tick authority
func (c Config) Authority() timer.Authority {
	a, err := timer.ParseAuthority(c.Timer.Authority)
	if err != nil {
		return timer.AuthorityClient
	}
	return a
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
