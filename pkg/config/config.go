// Package config handles loading and saving pushboard configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/pushboard/config.yaml
//   - State:   ~/.local/state/pushboard/ (watch cursors)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/pushboard/pkg/filter"
	"github.com/vanderheijden86/pushboard/pkg/model"
)

const appName = "pushboard"

// ErrUnknownFilterField is returned when the filter section names a field
// the filter engine does not know.
var ErrUnknownFilterField = errors.New("unknown filter field")

// SourceConfig locates the job data.
type SourceConfig struct {
	Path     string `yaml:"path,omitempty"`     // pushes.json or a SQLite database
	Jobs     string `yaml:"jobs,omitempty"`     // JSONL job stream applied on top of Path
	Runnable string `yaml:"runnable,omitempty"` // runnable jobs JSON, if Path has none
}

// ViewConfig holds the defaults for the construction-time view parameters.
type ViewConfig struct {
	GroupState    string `yaml:"group_state,omitempty"`    // expanded | collapsed
	DuplicateJobs string `yaml:"duplicate_jobs,omitempty"` // visible | hidden
	Width         int    `yaml:"width,omitempty"`          // dump width; 0 = terminal width
}

// FilterConfig is the persisted filter.
type FilterConfig struct {
	ResultStatus    []string            `yaml:"result_status,omitempty"`
	ClassifiedState []string            `yaml:"classified_state,omitempty"`
	Tier            []string            `yaml:"tier,omitempty"`
	Search          string              `yaml:"search,omitempty"`
	Fields          map[string][]string `yaml:"fields,omitempty"`
}

// WatchConfig controls live reloading of the job stream.
type WatchConfig struct {
	Enabled      bool          `yaml:"enabled,omitempty"`
	Debounce     time.Duration `yaml:"debounce,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	ForcePoll    bool          `yaml:"force_poll,omitempty"`
}

// Config is the top-level configuration for pushboard.
type Config struct {
	Repo   string       `yaml:"repo,omitempty"`
	Source SourceConfig `yaml:"source,omitempty"`
	View   ViewConfig   `yaml:"view,omitempty"`
	Filter FilterConfig `yaml:"filter,omitempty"`
	Watch  WatchConfig  `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Repo: "autoland",
		View: ViewConfig{
			GroupState:    string(model.GroupCollapsed),
			DuplicateJobs: "hidden",
		},
		Watch: WatchConfig{
			Debounce:     200 * time.Millisecond,
			PollInterval: 2 * time.Second,
		},
	}
}

// ConfigDir returns the XDG config directory for pushboard.
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

// StateDir returns the XDG state directory for pushboard.
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

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
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

	cfg.Source.Path = expandHome(cfg.Source.Path)
	cfg.Source.Jobs = expandHome(cfg.Source.Jobs)
	cfg.Source.Runnable = expandHome(cfg.Source.Runnable)

	if _, err := cfg.Filter.Model(); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
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

// ViewParams returns the configured view defaults.
func (c Config) ViewParams() ViewParams {
	return ViewParams{
		GroupState:    c.View.GroupState,
		DuplicateJobs: c.View.DuplicateJobs,
	}
}

// Model converts the filter section into a filter engine. Empty sections
// keep the engine defaults.
func (f FilterConfig) Model() (*filter.Model, error) {
	m := filter.NewModel()
	if len(f.ResultStatus) > 0 {
		m.ResultStatus = lowerAll(f.ResultStatus)
	}
	if len(f.ClassifiedState) > 0 {
		m.ClassifiedState = lowerAll(f.ClassifiedState)
	}
	if len(f.Tier) > 0 {
		m.SetField(filter.FieldTier, f.Tier...)
	}
	for field, values := range f.Fields {
		if !filter.IsField(field) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFilterField, field)
		}
		m.SetField(field, values...)
	}
	if f.Search != "" {
		m.SetSearch(f.Search)
	}
	return m, nil
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
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
