// Package config loads the taskboard client configuration from
// ~/.config/taskboard/config.toml.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"taskboard/internal/util"
)

const (
	DefaultAPIURL   = "http://localhost:8080/api"
	DefaultTimeout  = 30 * time.Second
	DefaultLogLevel = "warn"
	DefaultRedisKey = "taskboard:token"

	TokenBackendFile   = "file"
	TokenBackendRedis  = "redis"
	TokenBackendMemory = "memory"
)

// Config represents the client configuration file.
type Config struct {
	APIURL   string `toml:"api-url"`
	Timeout  string `toml:"timeout"`
	LogLevel string `toml:"log-level"`
	Token    Token  `toml:"token"`
}

// Token selects where the session token is kept.
type Token struct {
	// Backend is "file" (default), "redis" or "memory".
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	RedisURL string `toml:"redis-url"`
	RedisKey string `toml:"redis-key"`
	// RedisTTL expires the stored token; empty keeps it until logout.
	RedisTTL string `toml:"redis-ttl"`
}

// Dir returns the directory holding the config file and the token file.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "taskboard"), nil
}

// Load reads the config file at path, or the default location when path is empty,
// then applies environment overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.toml")
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.APIURL = util.EnvOrDefault("TASKBOARD_API", cfg.APIURL)
	cfg.LogLevel = util.EnvOrDefault("TASKBOARD_LOG_LEVEL", cfg.LogLevel)
	if err := cfg.applyDefaults(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(dir string) error {
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Token.Backend == "" {
		c.Token.Backend = TokenBackendFile
	}
	if c.Token.Path == "" {
		c.Token.Path = filepath.Join(dir, "token")
	}
	if c.Token.RedisKey == "" {
		c.Token.RedisKey = DefaultRedisKey
	}

	switch c.Token.Backend {
	case TokenBackendFile, TokenBackendMemory:
	case TokenBackendRedis:
		if c.Token.RedisURL == "" {
			return fmt.Errorf("token backend redis requires token.redis-url")
		}
	default:
		return fmt.Errorf("unknown token backend %q", c.Token.Backend)
	}

	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Token.TTL(); err != nil {
		return err
	}
	_, err := ParseLevel(c.LogLevel)
	return err
}

// TimeoutDuration returns the per-request timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid timeout %q", c.Timeout)
	}
	return d, nil
}

// TTL returns the redis expiry, zero meaning none.
func (t Token) TTL() (time.Duration, error) {
	if t.RedisTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(t.RedisTTL)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid token.redis-ttl %q", t.RedisTTL)
	}
	return d, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}

// Logger builds a text logger writing to w at the given level.
func Logger(w io.Writer, level string) *slog.Logger {
	l, err := ParseLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
