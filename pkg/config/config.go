// Package config loads the statwiki site configuration: where statutes are
// read from, how pages are rendered and where output and the catalog live.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/statwiki/pkg/render"
)

// DefaultPath is the configuration file looked for when none is given.
const DefaultPath = "statwiki.yaml"

// EnvPrefix prefixes the environment variables that override file values.
const EnvPrefix = "STATWIKI_"

// Config is the site configuration.
type Config struct {
	OutputDir string          `yaml:"output_dir"`
	Format    string          `yaml:"format"`
	Strict    bool            `yaml:"strict"`
	Catalog   string          `yaml:"catalog"`
	LogLevel  string          `yaml:"log_level"`
	Listen    string          `yaml:"listen"`
	Debounce  Duration        `yaml:"debounce"`
	Statutes  []StatuteSource `yaml:"statutes"`
}

// StatuteSource names one statute file and how its pages are titled.
type StatuteSource struct {
	Name     string `yaml:"name"`
	Prefix   string `yaml:"prefix,omitempty"`
	Path     string `yaml:"path"`
	LinkCode string `yaml:"link_code,omitempty"`
	URL      string `yaml:"url,omitempty"`
}

// Duration is a time.Duration written as "500ms" or "2s" in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
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

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		OutputDir: "pages",
		Format:    "wiki",
		Catalog:   "statwiki.db",
		LogLevel:  "info",
		Listen:    ":8080",
		Debounce:  Duration(500 * time.Millisecond),
	}
}

// Load reads the configuration at path over the defaults and then applies
// STATWIKI_* environment overrides. A missing file at DefaultPath is not an
// error; any other missing file is.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"OUTPUT_DIR": &c.OutputDir,
		"FORMAT":     &c.Format,
		"CATALOG":    &c.Catalog,
		"LOG_LEVEL":  &c.LogLevel,
		"LISTEN":     &c.Listen,
	}
	for key, dest := range str {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dest = v
		}
	}
	if v, ok := lookup(EnvPrefix + "STRICT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSTRICT: %w", EnvPrefix, err)
		}
		c.Strict = b
	}
	if v, ok := lookup(EnvPrefix + "DEBOUNCE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sDEBOUNCE: %w", EnvPrefix, err)
		}
		c.Debounce = Duration(d)
	}
	return nil
}

// Validate checks the configuration for errors that would only surface
// part way through a run.
func (c *Config) Validate() error {
	if _, err := render.ForFormat(c.Format); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	seen := make(map[string]bool)
	for i, s := range c.Statutes {
		if s.Name == "" {
			return fmt.Errorf("statute %d: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("statute %s: duplicate name", s.Name)
		}
		seen[s.Name] = true
		if s.Path == "" {
			return fmt.Errorf("statute %s: path is required", s.Name)
		}
		// A statute with a url may not have been fetched yet.
		if _, err := os.Stat(s.Path); err != nil && s.URL == "" {
			return fmt.Errorf("statute %s: %w", s.Name, err)
		}
	}
	return nil
}

// Statute returns the configured source with the given name.
func (c *Config) Statute(name string) (StatuteSource, bool) {
	for _, s := range c.Statutes {
		if s.Name == name {
			return s, true
		}
	}
	return StatuteSource{}, false
}

// ParseLevel maps a log level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
