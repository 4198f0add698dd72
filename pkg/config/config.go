// Package config handles loading and saving arbor configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/arbor/config.yaml
//   - State:   ~/.local/state/arbor/ (open/closed folders per source)
package config

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

const appName = "arbor"

// TreeConfig holds the tree widget settings.
type TreeConfig struct {
	StickyScroll          bool          `yaml:"sticky_scroll"`
	StickyScrollMaxNodes  int           `yaml:"sticky_scroll_max_nodes"`
	DisableMultiSelection bool          `yaml:"disable_multi_selection,omitempty"`
	RowHeight             int           `yaml:"row_height"`         // terminal lines per row
	Indent                int           `yaml:"indent"`             // columns per level
	ShowIndentGuides      bool          `yaml:"show_indent_guides"` // draw │ ├ └ connectors
	Overscan              int           `yaml:"overscan"`           // rows mounted beyond the viewport
	TypeaheadTimeout      time.Duration `yaml:"typeahead_timeout"`
	OpenDepth             int           `yaml:"open_depth"` // levels open on first load
	Ignore                []string      `yaml:"ignore,omitempty"`
}

// Source is a recently opened tree source.
type Source struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Config is the top-level configuration for arbor.
type Config struct {
	Tree   TreeConfig `yaml:"tree"`
	Recent []Source   `yaml:"recent,omitempty"`
}

// Validation errors.
var (
	ErrRowHeight = errors.New("row_height must be at least 1")
	ErrNegative  = errors.New("value must not be negative")
)

// DefaultTreeConfig returns the widget defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		StickyScroll:         true,
		StickyScrollMaxNodes: 5,
		RowHeight:            1,
		Indent:               2,
		ShowIndentGuides:     true,
		Overscan:             2,
		TypeaheadTimeout:     600 * time.Millisecond,
		OpenDepth:            1,
		Ignore:               []string{".git", "node_modules"},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Tree: DefaultTreeConfig()}
}

// Validate reports the first invalid setting.
func (c TreeConfig) Validate() error {
	if c.RowHeight < 1 {
		return fmt.Errorf("tree: %w", ErrRowHeight)
	}
	checks := []struct {
		name  string
		value int
	}{
		{"sticky_scroll_max_nodes", c.StickyScrollMaxNodes},
		{"indent", c.Indent},
		{"overscan", c.Overscan},
		{"open_depth", c.OpenDepth},
	}
	for _, ch := range checks {
		if ch.value < 0 {
			return fmt.Errorf("tree: %s: %w", ch.name, ErrNegative)
		}
	}
	if c.TypeaheadTimeout < 0 {
		return fmt.Errorf("tree: typeahead_timeout: %w", ErrNegative)
	}
	for _, pattern := range c.Ignore {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("tree: ignore pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// ConfigDir returns the XDG config directory for arbor.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for arbor.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// SourceStateDir returns the state directory for one tree source. Sources
// with the same base name stay apart through a hash of the full path.
func SourceStateDir(source string) string {
	dir := StateDir()
	if dir == "" || source == "" {
		return ""
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	h := fnv.New32a()
	h.Write([]byte(abs))
	return filepath.Join(dir, fmt.Sprintf("%s-%08x", filepath.Base(abs), h.Sum32()))
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Missing keys keep their
// defaults; a missing file yields DefaultConfig.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Tree.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	for i := range cfg.Recent {
		cfg.Recent[i].Path = expandHome(cfg.Recent[i].Path)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// maxRecent bounds the recent sources list.
const maxRecent = 10

// AddRecent moves path to the front of the recent list.
func (c *Config) AddRecent(path string) {
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	recent := []Source{{Name: filepath.Base(path), Path: path}}
	for _, s := range c.Recent {
		if s.Path != path {
			recent = append(recent, s)
		}
	}
	if len(recent) > maxRecent {
		recent = recent[:maxRecent]
	}
	c.Recent = recent
}

// FindRecent returns the recent source with the given name, or nil.
func (c Config) FindRecent(name string) *Source {
	for i := range c.Recent {
		if strings.EqualFold(c.Recent[i].Name, name) {
			return &c.Recent[i]
		}
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
