package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/quitbit/internal/combo"
)

func TestLoadConfig_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quitbit", "config.toml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	// 保存したファイルを読み直しても同じ値になる
	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestLoadConfig_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[watchdog]
poll_interval = "10ms"
kill_grace = "2s"
exit_with_target = false

[match]
policy = "any"

[feedback]
beep = true
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10*time.Millisecond, cfg.Watchdog.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Watchdog.KillGrace)
	assert.False(t, cfg.Watchdog.ExitWithTarget)
	assert.Equal(t, 10*time.Second, cfg.Watchdog.ReadyTimeout, "unset keys keep defaults")
	assert.Equal(t, combo.PolicyAny, cfg.MatchPolicy())
	assert.True(t, cfg.Feedback.Beep)
	assert.Equal(t, "xrandr", cfg.Display.Command)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
watchdog:
  poll_interval: 20ms
display:
  command: /usr/local/bin/xrandr
log:
  level: debug
  format: json
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Millisecond, cfg.Watchdog.PollInterval)
	assert.Equal(t, "/usr/local/bin/xrandr", cfg.Display.Command)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestSaveConfig_YAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := DefaultConfig()
	cfg.Watchdog.KillGrace = 1500 * time.Millisecond

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestReadConfig_Missing(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[watchdog\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:     "warn",
		EnvLogFormat:    "json",
		EnvPollInterval: "5ms",
		EnvMatchPolicy:  "any",
	}
	cfg := DefaultConfig()

	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5*time.Millisecond, cfg.Watchdog.PollInterval)
	assert.Equal(t, "any", cfg.Match.Policy)

	env[EnvPollInterval] = "fast"
	assert.Error(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(EnvMatchPolicy+"=any\n"), 0o644))

	t.Setenv(EnvMatchPolicy, "")
	require.NoError(t, os.Unsetenv(EnvMatchPolicy))

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "any", os.Getenv(EnvMatchPolicy))

	assert.NoError(t, LoadEnv(filepath.Join(dir, "missing.env")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "poll too short", mutate: func(c *Config) { c.Watchdog.PollInterval = 0 }},
		{name: "poll too long", mutate: func(c *Config) { c.Watchdog.PollInterval = 2 * time.Second }},
		{name: "negative ready timeout", mutate: func(c *Config) { c.Watchdog.ReadyTimeout = -time.Second }},
		{name: "zero ready poll", mutate: func(c *Config) { c.Watchdog.ReadyPollInterval = 0 }},
		{name: "negative grace", mutate: func(c *Config) { c.Watchdog.KillGrace = -1 }},
		{name: "unknown policy", mutate: func(c *Config) { c.Match.Policy = "all" }},
		{name: "empty display command", mutate: func(c *Config) { c.Display.Command = " " }},
	}

	require.NoError(t, DefaultConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
