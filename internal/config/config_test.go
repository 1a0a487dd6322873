package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/rlxui/internal/api"
	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/notify"
	"github.com/jmylchreest/rlxui/internal/poller"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, api.DefaultBaseURL, cfg.Server.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Server.Timeout.Duration())
	assert.Equal(t, poller.DefaultInterval, cfg.Poll.Interval.Duration())
	assert.Equal(t, 5*time.Second, cfg.Notify.FreshWindow.Duration())
	assert.True(t, cfg.Notify.Desktop)
	assert.Equal(t, model.DefaultThresholds(), cfg.Thresholds)
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, "plain", cfg.Output.Format)
	assert.Equal(t, "modified", cfg.Sort.Field)
	assert.Equal(t, "desc", cfg.Sort.Order)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[server]
base_url = "https://rlx.example.com/api/v1"
timeout = "3s"
rate_limit = 2.5
burst = 1

[poll]
interval = "15000"

[notify]
fresh_window = "10s"
min_interval = "1m"
desktop = false
stderr = false

[thresholds]
friction = 0.5
arousal_z = 2.0
valence_z = -1.0

[audio]
enabled = true
volume = 40

[audio.sounds]
warning = "/usr/share/sounds/warn.wav"

[output]
format = "yaml"
template = "{{.Record.Key}}"
body_max_len = 60

[sort]
field = "name"
order = "asc"

[clipboard]
command = "wl-copy"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rlx.example.com/api/v1", cfg.Server.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Server.Timeout.Duration())
	assert.InDelta(t, 2.5, cfg.Server.RateLimit, 1e-9)
	assert.Equal(t, 1, cfg.Server.Burst)
	assert.Equal(t, 15*time.Second, cfg.Poll.Interval.Duration())
	assert.Equal(t, 10*time.Second, cfg.Notify.FreshWindow.Duration())
	assert.Equal(t, time.Minute, cfg.Notify.MinInterval.Duration())
	assert.False(t, cfg.Notify.Desktop)
	assert.False(t, cfg.Notify.Stderr)
	assert.Equal(t, model.Thresholds{Friction: 0.5, ArousalZ: 2, ValenceZ: -1}, cfg.Thresholds)
	assert.True(t, cfg.Audio.Enabled)
	assert.Equal(t, 40, cfg.Audio.Volume)
	assert.InDelta(t, 0.4, cfg.Volume(), 1e-9)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, 60, cfg.Output.BodyMaxLen)
	assert.Equal(t, "wl-copy", cfg.Clipboard.Command)

	assert.Equal(t, core.SortOptions{Field: core.SortByName, Order: core.SortAsc}, cfg.SortOptions())
	assert.Equal(t, map[notify.Level]string{notify.LevelWarning: "/usr/share/sounds/warn.wav"}, cfg.Sounds())

	opts := cfg.APIOptions()
	assert.Equal(t, 3*time.Second, opts.Timeout)
	assert.Equal(t, "https://rlx.example.com/api/v1", opts.BaseURL)

	fopts := cfg.FormatterOptions()
	assert.Equal(t, "{{.Record.Key}}", fopts.Template)
	assert.Equal(t, 60, fopts.BodyMaxLen)
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[poll]
interval = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Changed field
	assert.Equal(t, 30*time.Second, cfg.Poll.Interval.Duration())

	// Unchanged fields should have defaults
	assert.Equal(t, api.DefaultBaseURL, cfg.Server.BaseURL)
	assert.Equal(t, model.DefaultThresholds(), cfg.Thresholds)
	assert.True(t, cfg.Notify.Desktop)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml [`), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://10.0.0.5:9000/api/v1")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:9000/api/v1", cfg.Server.BaseURL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RLXUI_BASE_URL=http://dotenv:8000/api/v1\n"), 0600))

	// t.Setenv registers cleanup; unset so godotenv may fill it.
	t.Setenv(EnvBaseURL, "")
	require.NoError(t, os.Unsetenv(EnvBaseURL))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "http://dotenv:8000/api/v1", os.Getenv(EnvBaseURL))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")), "missing file is not an error")
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RLXUI_BASE_URL=http://dotenv:8000/api/v1\n"), 0600))
	t.Setenv(EnvBaseURL, "http://explicit:8000/api/v1")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "http://explicit:8000/api/v1", os.Getenv(EnvBaseURL))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad base url", func(c *Config) { c.Server.BaseURL = "localhost:8000" }},
		{"ftp base url", func(c *Config) { c.Server.BaseURL = "ftp://host/api" }},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }},
		{"zero burst", func(c *Config) { c.Server.Burst = 0 }},
		{"fast poll", func(c *Config) { c.Poll.Interval = Duration(100 * time.Millisecond) }},
		{"volume", func(c *Config) { c.Audio.Volume = 101 }},
		{"format", func(c *Config) { c.Output.Format = "xml" }},
		{"body len", func(c *Config) { c.Output.BodyMaxLen = -1 }},
		{"sort field", func(c *Config) { c.Sort.Field = "size" }},
		{"sort order", func(c *Config) { c.Sort.Order = "sideways" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.Server.RateLimit = 0
	cfg.Server.Burst = 0
	assert.NoError(t, cfg.Validate(), "burst is ignored without a rate limit")
}

func TestSave(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.Poll.Interval = Duration(20 * time.Second)
	cfg.Clipboard.Command = "xclip"
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"7s", 7 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"5000", 5 * time.Second, false},
		{"0", 0, false},
		{" 2d ", 48 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"soon", 0, true},
		{"-1s", 0, true},
		{"-500", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}

	text, err := Duration(7 * time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "7s", string(text))
	assert.Equal(t, 7000, Duration(7*time.Second).Milliseconds())
}
