package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pthm/htmlinclude"
	"gopkg.in/yaml.v3"
)

// Config is the htmlinclude command configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Expand ExpandConfig `yaml:"expand"`
	Serve  ServeConfig  `yaml:"serve"`
}

// LogConfig controls the command's logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// FetchConfig controls how src values are fetched.
type FetchConfig struct {
	Root        string        `yaml:"root"` // local src paths resolve inside this directory
	Base        string        `yaml:"base"` // when set, src values are fetched over HTTP relative to it
	Timeout     time.Duration `yaml:"timeout"`
	MaxBodySize int64         `yaml:"max_body_size"`
}

// ExpandConfig controls document expansion.
type ExpandConfig struct {
	MaxDepth       int    `yaml:"max_depth"`
	Minify         bool   `yaml:"minify"`
	LegacyOrdering bool   `yaml:"legacy_ordering"`
	Out            string `yaml:"out"`
	Strict         bool   `yaml:"strict"`
}

// ServeConfig controls the development server.
type ServeConfig struct {
	Addr      string `yaml:"addr"`
	Prefix    string `yaml:"prefix"`
	Key       string `yaml:"key"`
	Sensitive bool   `yaml:"sensitive"`
}

// LoadFile reads a YAML configuration file. An empty path yields the
// defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Fetch.Root == "" {
		c.Fetch.Root = "."
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.MaxBodySize <= 0 {
		c.Fetch.MaxBodySize = htmlinclude.DefaultMaxBodySize
	}
	if c.Expand.MaxDepth <= 0 {
		c.Expand.MaxDepth = htmlinclude.DefaultMaxDepth
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8080"
	}
	if c.Serve.Prefix == "" {
		c.Serve.Prefix = htmlinclude.DefaultPrefix
	}
}

func (c LogConfig) level() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(c LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
