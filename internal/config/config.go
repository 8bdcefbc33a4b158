// Package config loads colormerge settings from an optional HCL file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/joho/godotenv"
	"github.com/jsvensson/colormerge/internal/cluster"
)

// DefaultFile is read when no settings file is named explicitly.
const DefaultFile = "colormerge.hcl"

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the accepted report formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// Environment overrides.
const (
	EnvThreshold = "COLORMERGE_THRESHOLD"
	EnvFormat    = "COLORMERGE_FORMAT"
	EnvVerbosity = "COLORMERGE_VERBOSITY"
	EnvLogFile   = "COLORMERGE_LOG_FILE"
)

// Log configures the commonlog backend.
type Log struct {
	Verbosity int    `hcl:"verbosity,optional"`
	File      string `hcl:"file,optional"`
}

// Config holds the resolved settings.
type Config struct {
	Threshold float64
	Format    string
	Log       *Log
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Threshold: cluster.DefaultThreshold,
		Format:    FormatText,
		Log:       &Log{},
	}
}

// LogFile returns the log path for commonlog.Configure, nil for stderr.
func (c *Config) LogFile() *string {
	if c.Log == nil || c.Log.File == "" {
		return nil
	}
	f := c.Log.File
	return &f
}

// Verbosity returns the configured log verbosity.
func (c *Config) Verbosity() int {
	if c.Log == nil {
		return 0
	}
	return c.Log.Verbosity
}

// Load resolves settings from path and the environment. An empty path falls
// back to DefaultFile in the working directory, which may be absent. A .env
// file next to the settings file is loaded first; variables already set in
// the environment win over it.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envPath, err)
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil || explicit {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// fileSettings mirrors Config with pointers so omitted attributes keep
// their defaults.
type fileSettings struct {
	Threshold *float64 `hcl:"threshold,optional"`
	Format    *string  `hcl:"format,optional"`
	Log       *Log     `hcl:"log,block"`
}

func decodeFile(path string, cfg *Config) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}
	file, diags := hclsyntax.ParseConfig(src, path, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return fmt.Errorf("parsing settings: %s", diags.Error())
	}
	var raw fileSettings
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return fmt.Errorf("decoding settings: %s", diags.Error())
	}

	if raw.Threshold != nil {
		cfg.Threshold = *raw.Threshold
	}
	if raw.Format != nil {
		cfg.Format = *raw.Format
	}
	if raw.Log != nil {
		cfg.Log = raw.Log
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvThreshold); ok {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThreshold, err)
		}
		c.Threshold = t
	}
	if v, ok := os.LookupEnv(EnvFormat); ok {
		c.Format = v
	}
	if v, ok := os.LookupEnv(EnvVerbosity); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvVerbosity, err)
		}
		c.ensureLog().Verbosity = n
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		c.ensureLog().File = v
	}
	return nil
}

func (c *Config) ensureLog() *Log {
	if c.Log == nil {
		c.Log = &Log{}
	}
	return c.Log
}

// Validate checks the threshold and format.
func (c *Config) Validate() error {
	if c.Threshold < 0 || math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		return fmt.Errorf("%w: %v", cluster.ErrInvalidThreshold, c.Threshold)
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("unsupported format %q (valid: text, json, yaml)", c.Format)
	}
	return nil
}
