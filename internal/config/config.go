// Package config loads propmap settings from an optional YAML file, a .env
// file and PROPMAP_* environment variables, in that order of precedence
// (later sources win). Command-line flags are applied on top by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/propmap/internal/executor"
	"github.com/roach88/propmap/internal/style"
	"github.com/roach88/propmap/internal/textnorm"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PROPMAP_"

// Config holds all settings.
type Config struct {
	// Workspace is the directory holding the tables.
	Workspace string `yaml:"workspace"`

	// Wrap and Justify style the labels of a fresh workspace. A workspace
	// with persisted style keeps its own.
	Wrap    int    `yaml:"wrap"`
	Justify string `yaml:"justify"`

	// PollInterval is how often results are collected.
	PollInterval time.Duration `yaml:"poll_interval"`

	// RenderFormat is the diagram format produced after each change.
	RenderFormat string `yaml:"render_format"`

	// DotCommand is the Graphviz executable used for formats other than gv.
	DotCommand string `yaml:"dot_command"`
}

// Default returns the built-in settings.
func Default() *Config {
	g := style.DefaultGraph()
	return &Config{
		Workspace:    ".",
		Wrap:         g.WrapColumn,
		Justify:      string(g.Justification),
		PollInterval: executor.DefaultPollInterval,
		RenderFormat: "gv",
		DotCommand:   "dot",
	}
}

// Load builds the configuration. path names a YAML file; an empty path
// skips it. A .env file in the working directory is read if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Workspace = getEnv("WORKSPACE", c.Workspace)
	c.Justify = getEnv("JUSTIFY", c.Justify)
	c.RenderFormat = getEnv("RENDER_FORMAT", c.RenderFormat)
	c.DotCommand = getEnv("DOT", c.DotCommand)

	if v := getEnv("WRAP", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWRAP: %w", EnvPrefix, err)
		}
		c.Wrap = n
	}
	if v := getEnv("POLL_INTERVAL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sPOLL_INTERVAL: %w", EnvPrefix, err)
		}
		c.PollInterval = d
	}
	return nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Workspace) == "" {
		return errors.New("workspace is required")
	}
	if c.Wrap <= 0 {
		return fmt.Errorf("wrap must be positive, got %d", c.Wrap)
	}
	if _, err := textnorm.ParseJustification(c.Justify); err != nil {
		return fmt.Errorf("justify: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.RenderFormat == "" {
		return errors.New("render_format is required")
	}
	return nil
}

// Justification returns the parsed Justify setting.
func (c *Config) Justification() textnorm.Justification {
	j, err := textnorm.ParseJustification(c.Justify)
	if err != nil {
		return textnorm.Center
	}
	return j
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}
