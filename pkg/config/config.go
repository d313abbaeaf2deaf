// Package config loads and validates refract configuration from TOML, YAML,
// or JSON files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/refract-sh/refract/pkg/models"
)

// ConfigError is an invalid configuration. Unlike a parse failure in an
// analyzed file, it aborts the run.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config holds all configuration options for refract.
type Config struct {
	// Per-metric limits a function must stay within
	Thresholds models.Thresholds `koanf:"thresholds" toml:"thresholds"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Thresholds: models.DefaultThresholds(),
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.pb.go",
				"*_gen.go",
			},
			Dirs: []string{
				"vendor",
				"testdata",
				".git",
				".refract",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".refract/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// schema constrains the shape of a raw config document before it is
// unmarshaled, so a typoed key or a string where a number belongs is reported
// with its location instead of silently taking a zero value.
const schema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"thresholds": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"cyclomatic": {"type": "integer", "minimum": 1},
				"cognitive": {"type": "integer", "minimum": 1},
				"nesting": {"type": "integer", "minimum": 1},
				"lines": {"type": "integer", "minimum": 1}
			}
		},
		"exclude": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"patterns": {"type": "array", "items": {"type": "string"}},
				"dirs": {"type": "array", "items": {"type": "string"}},
				"gitignore": {"type": "boolean"}
			}
		},
		"cache": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"enabled": {"type": "boolean"},
				"dir": {"type": "string"},
				"ttl": {"type": "integer", "minimum": 0}
			}
		},
		"output": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"format": {"type": "string", "enum": ["text", "json", "markdown"]},
				"color": {"type": "boolean"},
				"verbose": {"type": "boolean"}
			}
		}
	}
}`

// Load loads configuration from a file. Any failure, from an unreadable file
// to a limit of zero, is a *ConfigError.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	if err := validateRaw(k.Raw()); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	return cfg, nil
}

// validateRaw checks the decoded document against the config schema.
func validateRaw(raw map[string]interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Validate checks constraints the schema cannot express over the merged
// config.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.Cyclomatic < 1 || t.Cognitive < 1 || t.Nesting < 1 || t.Lines < 1 {
		return fmt.Errorf("thresholds must be positive: cyclomatic=%d cognitive=%d nesting=%d lines=%d",
			t.Cyclomatic, t.Cognitive, t.Nesting, t.Lines)
	}
	switch c.Output.Format {
	case "text", "json", "markdown":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	return nil
}

// configNames are the file names searched by LoadOrDefault, in priority
// order.
var configNames = []string{
	"refract.toml",
	"refract.yaml",
	"refract.yml",
	"refract.json",
	".refract.toml",
	".refract.yaml",
	".refract.yml",
	".refract.json",
}

// LoadOrDefault loads config from the first standard location that exists,
// or returns defaults when none does. A file that exists but fails to load
// is an error; silently ignoring it would mask typos with defaults.
func LoadOrDefault() (*Config, error) {
	for _, dir := range []string{".", ".refract"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			return Load(path)
		}
	}
	return DefaultConfig(), nil
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
