// Package config loads abscc settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"abscc/pkg/asm"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "abscc.yaml"

// Config holds build settings. Zero values are filled from Default.
type Config struct {
	Target        string `yaml:"target"`  // linux|windows
	OutDir        string `yaml:"out_dir"` // artifact directory
	ExportSymbols bool   `yaml:"export_symbols"`
	ExportErrors  bool   `yaml:"export_errors"`
	LogLevel      string `yaml:"log_level"` // debug|info|warn|error
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Target:   "linux",
		OutDir:   "out",
		LogLevel: "warn",
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	if _, err := c.Platform(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if strings.TrimSpace(c.OutDir) == "" {
		return errors.New("out_dir must not be empty")
	}
	return nil
}

// Platform returns the code generation target.
func (c Config) Platform() (asm.Platform, error) {
	return asm.ParsePlatform(c.Target)
}

// SlogLevel maps LogLevel to a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return lvl, nil
}
