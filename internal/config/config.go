// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/rlxui/internal/adapter/output"
	"github.com/jmylchreest/rlxui/internal/api"
	"github.com/jmylchreest/rlxui/internal/audio"
	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/notify"
	"github.com/jmylchreest/rlxui/internal/poller"
)

// Environment variables read on load.
const (
	EnvBaseURL = "RLXUI_BASE_URL"
	EnvFile    = ".env"
)

// Default configuration values.
const (
	DefaultFormat    = string(output.FormatPlain)
	DefaultSortField = string(core.SortByModified)
	DefaultSortOrder = string(core.SortDesc)
	DefaultVolume    = 80
)

// Config represents the rlxui configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Poll       PollConfig       `toml:"poll"`
	Notify     NotifyConfig     `toml:"notify"`
	Thresholds model.Thresholds `toml:"thresholds"`
	Audio      AudioConfig      `toml:"audio"`
	Output     OutputConfig     `toml:"output"`
	Sort       SortConfig       `toml:"sort"`
	Clipboard  ClipboardConfig  `toml:"clipboard"`
}

// ServerConfig holds REST service settings.
type ServerConfig struct {
	BaseURL   string   `toml:"base_url"`   // e.g. http://localhost:8000/api/v1
	Timeout   Duration `toml:"timeout"`    // per-request timeout
	RateLimit float64  `toml:"rate_limit"` // requests per second (0 = unlimited)
	Burst     int      `toml:"burst"`
}

// PollConfig holds metrics polling settings.
type PollConfig struct {
	Interval Duration `toml:"interval"`
}

// NotifyConfig holds notification settings.
type NotifyConfig struct {
	FreshWindow Duration `toml:"fresh_window"` // newest entry must be this recent to notify
	MinInterval Duration `toml:"min_interval"` // repeat suppression for error notices
	Desktop     bool     `toml:"desktop"`      // post to the desktop notification daemon
	Stderr      bool     `toml:"stderr"`       // print notices in CLI commands
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-level sound file paths.
type SoundConfig struct {
	Info    string `toml:"info"`
	Warning string `toml:"warning"`
	Error   string `toml:"error"`
}

// OutputConfig holds CLI output settings.
type OutputConfig struct {
	Format     string `toml:"format"`       // plain, json, yaml, dmenu, ids
	Template   string `toml:"template"`     // per-record template for plain/dmenu
	BodyMaxLen int    `toml:"body_max_len"` // 0 = unlimited
}

// SortConfig holds the default group list order.
type SortConfig struct {
	Field string `toml:"field"` // modified, name, alerts
	Order string `toml:"order"` // asc, desc
}

// ClipboardConfig holds clipboard settings (TUI only).
type ClipboardConfig struct {
	Command string `toml:"command"` // Auto-detected if empty
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:   api.DefaultBaseURL,
			Timeout:   Duration(api.DefaultTimeout),
			RateLimit: api.DefaultRateLimit,
			Burst:     api.DefaultBurst,
		},
		Poll: PollConfig{
			Interval: Duration(poller.DefaultInterval),
		},
		Notify: NotifyConfig{
			FreshWindow: Duration(core.DefaultFreshWindow),
			MinInterval: Duration(notify.DefaultMinInterval),
			Desktop:     true,
			Stderr:      true,
		},
		Thresholds: model.DefaultThresholds(),
		Audio: AudioConfig{
			Enabled: false,
			Volume:  DefaultVolume,
		},
		Output: OutputConfig{
			Format: DefaultFormat,
		},
		Sort: SortConfig{
			Field: DefaultSortField,
			Order: DefaultSortOrder,
		},
		Clipboard: ClipboardConfig{
			Command: "", // Auto-detect
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "rlxui", "config.toml")
}

// LoadDotEnv loads variables from an env file into the process environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = EnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist. Environment overrides are
// applied last.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the configuration.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.Server.BaseURL = v
	}
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.Server.BaseURL)
	}
	if c.Server.Timeout.Duration() <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Server.Timeout.Duration())
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", c.Server.Burst)
	}

	if c.Poll.Interval.Duration() < time.Second {
		return fmt.Errorf("poll interval must be at least 1s, got %s", c.Poll.Interval.Duration())
	}
	if c.Notify.FreshWindow.Duration() < 0 || c.Notify.MinInterval.Duration() < 0 {
		return errors.New("notify durations must not be negative")
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	if _, err := core.ParseSortField(c.Sort.Field); err != nil {
		return err
	}
	if _, err := core.ParseSortOrder(c.Sort.Order); err != nil {
		return err
	}

	if !slices.Contains(output.FormatTypes, output.FormatType(c.Output.Format)) {
		return fmt.Errorf("invalid output format %q, must be one of: %v", c.Output.Format, output.FormatTypes)
	}
	if c.Output.BodyMaxLen < 0 {
		return fmt.Errorf("body_max_len must not be negative, got %d", c.Output.BodyMaxLen)
	}

	return nil
}

// SortOptions returns the configured group list order.
func (c *Config) SortOptions() core.SortOptions {
	field, _ := core.ParseSortField(c.Sort.Field)
	order, _ := core.ParseSortOrder(c.Sort.Order)
	return core.SortOptions{Field: field, Order: order}
}

// FormatterOptions returns output options for the configured format.
func (c *Config) FormatterOptions() output.FormatterOptions {
	opts := output.DefaultFormatterOptions()
	opts.Template = c.Output.Template
	opts.BodyMaxLen = c.Output.BodyMaxLen
	return opts
}

// APIOptions returns REST client options.
func (c *Config) APIOptions() api.Options {
	return api.Options{
		BaseURL:   c.Server.BaseURL,
		Timeout:   c.Server.Timeout.Duration(),
		RateLimit: c.Server.RateLimit,
		Burst:     c.Server.Burst,
	}
}

// Sounds returns the configured sound per notice level, with ~ expanded.
// Levels without a sound are omitted.
func (c *Config) Sounds() map[notify.Level]string {
	sounds := make(map[notify.Level]string)
	for level, path := range map[notify.Level]string{
		notify.LevelInfo:    c.Audio.Sounds.Info,
		notify.LevelWarning: c.Audio.Sounds.Warning,
		notify.LevelError:   c.Audio.Sounds.Error,
	} {
		if path != "" {
			sounds[level] = audio.ExpandPath(path)
		}
	}
	return sounds
}

// Volume returns the configured volume as a 0.0-1.0 fraction.
func (c *Config) Volume() float64 {
	return float64(c.Audio.Volume) / 100
}
