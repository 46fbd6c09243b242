// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rejuve-bio/biograph/errors"
)

// Duration wraps time.Duration with YAML support for strings like "6h" and
// "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"6h\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete application configuration.
type Config struct {
	Sources    []SourceConfig   `yaml:"sources"`
	Cache      CacheConfig      `yaml:"cache"`
	Schema     SchemaConfig     `yaml:"schema"`
	Projection ProjectionConfig `yaml:"projection"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SourceConfig names one remote ontology artifact.
type SourceConfig struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// CacheConfig controls the local ontology cache.
type CacheConfig struct {
	Dir          string   `yaml:"dir"`
	MaxAge       Duration `yaml:"max_age"`
	FetchTimeout Duration `yaml:"fetch_timeout"`
	ProbeBytes   int64    `yaml:"probe_bytes"`
}

// SchemaConfig locates the knowledge-graph schema file.
type SchemaConfig struct {
	Path string `yaml:"path"`
}

// ProjectionConfig controls graph projection.
type ProjectionConfig struct {
	// SampleLimit caps emitted nodes and edges per source when positive.
	SampleLimit int `yaml:"sample_limit"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MetricsConfig controls the optional metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// DefaultConfig returns the configuration defaults. Sources and the schema
// path have no defaults and must come from the file.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Dir:          "cache",
			MaxAge:       Duration(7 * 24 * time.Hour),
			FetchTimeout: Duration(10 * time.Minute),
			ProbeBytes:   16 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "Load", "read "+path)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "parse "+path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return invalid("at least one source must be configured")
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if err := src.Validate(); err != nil {
			return errors.WrapInvalid(err, "config", "Validate", fmt.Sprintf("source %d", i))
		}
		if seen[src.ID] {
			return invalid("duplicate source id " + src.ID)
		}
		seen[src.ID] = true
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if c.Schema.Path == "" {
		return invalid("schema.path must be set")
	}
	if c.Projection.SampleLimit < 0 {
		return invalid("projection.sample_limit must not be negative")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return invalid("metrics.listen must be set when metrics are enabled")
	}
	return nil
}

// Validate checks one source entry. The id becomes a cache partition name,
// so it must be a plain path segment.
func (s SourceConfig) Validate() error {
	if s.ID == "" {
		return invalid("source id must not be empty")
	}
	if strings.ContainsAny(s.ID, "/\\") || s.ID == "." || s.ID == ".." {
		return invalid("source id must be a plain name, got " + s.ID)
	}
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("source url must be an absolute http(s) URL, got " + s.URL)
	}
	return nil
}

// Validate checks the cache section.
func (c CacheConfig) Validate() error {
	if c.Dir == "" {
		return invalid("cache.dir must not be empty")
	}
	if c.MaxAge <= 0 {
		return invalid("cache.max_age must be positive")
	}
	if c.FetchTimeout <= 0 {
		return invalid("cache.fetch_timeout must be positive")
	}
	return nil
}

// Validate checks the logging section.
func (l LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level must be one of debug, info, warn, error; got " + l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return invalid("logging.format must be text or json, got " + l.Format)
	}
	return nil
}

// NewLogger builds the process logger described by the section, writing to
// stderr.
func (l LoggingConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if l.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func invalid(msg string) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", msg)
}
