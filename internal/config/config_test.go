package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/deskrc/internal/keysym"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "alt", cfg.General.Modifier)
	assert.Equal(t, "default", cfg.Seat.Name)
	assert.Empty(t, cfg.Seat.Keymap)
	assert.Equal(t, "HDMI-A-1", cfg.Outputs.Left)
	assert.Equal(t, "DP-3", cfg.Outputs.Right)
	assert.Equal(t, 0.25, cfg.Outputs.ScaleStep)
	assert.True(t, cfg.Status.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Status.Period.Duration())
	assert.Equal(t, "%Y-%m-%d %H:%M:%S", cfg.Status.TimeFormat)
	assert.Equal(t, "#333333", cfg.Status.SeparatorColor)
	assert.Equal(t, []string{"alacritty"}, cfg.Commands.Terminal)
	assert.Equal(t, []string{"bemenu-run"}, cfg.Commands.Launcher)
	assert.Equal(t, []string{"mako"}, cfg.Commands.NotifyDaemon)
	assert.Equal(t, []string{"jay", "run-privileged", "--", "swaylock", "-c", "111111"}, cfg.Commands.Lock)
	assert.Equal(t, "spotify-remote", cfg.Commands.Media.Program)
	assert.Len(t, cfg.Commands.Media.Keys, 3)
	assert.Equal(t, "Adwaita:dark", cfg.Env["GTK_THEME"])
	assert.True(t, cfg.Daemon.WatchConfig)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Outputs, cfg.Outputs)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[general]
modifier = "super"

[seat]
name = "seat0"
keymap = "/etc/deskrc/us.xkb"

[outputs]
left = "eDP-1"
right = "DP-1"
scaled = "DP-1"
scale_step = 0.5

[status]
period = "10s"
time_format = "%H:%M"
separator_color = "#ff0000"

[input]
left_handed = false
pointer_transform = [[1.0, 0.0], [0.0, 1.0]]

[commands]
terminal = ["foot"]

[commands.media]
program = "playerctl"
keys = [{ key = "a", arg = "play-pause" }]

[daemon]
watch_config = false
debounce = "1s"

[[bindings]]
combo = "alt-shift-Return"
exec = ["foot", "-e", "htop"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "super", cfg.General.Modifier)
	assert.Equal(t, "seat0", cfg.Seat.Name)
	assert.Equal(t, "/etc/deskrc/us.xkb", cfg.Seat.Keymap)
	assert.Equal(t, "eDP-1", cfg.Outputs.Left)
	assert.Equal(t, "DP-1", cfg.ScaledOutput())
	assert.Equal(t, 0.5, cfg.Outputs.ScaleStep)
	assert.Equal(t, 10*time.Second, cfg.Status.Period.Duration())
	assert.Equal(t, "%H:%M", cfg.Status.TimeFormat)
	assert.False(t, cfg.Input.LeftHanded)
	assert.True(t, cfg.Input.TapEnabled, "unset keys keep their defaults")
	assert.Equal(t, []string{"foot"}, cfg.Commands.Terminal)
	assert.Equal(t, []string{"bemenu-run"}, cfg.Commands.Launcher)
	assert.Equal(t, "playerctl", cfg.Commands.Media.Program)
	assert.Equal(t, []MediaKey{{Key: "a", Arg: "play-pause"}}, cfg.Commands.Media.Keys)
	assert.False(t, cfg.Daemon.WatchConfig)
	assert.Equal(t, time.Second, cfg.Daemon.Debounce.Duration())
	require.Len(t, cfg.Bindings, 1)
	assert.Equal(t, "alt-shift-Return", cfg.Bindings[0].Combo)

	mods, err := cfg.Modifier()
	require.NoError(t, err)
	assert.Equal(t, keysym.Super, mods)

	m, err := cfg.PointerTransform()
	require.NoError(t, err)
	assert.Equal(t, [2][2]float64{{1, 0}, {0, 1}}, m)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[general\nmodifier = "), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[status]\ntime_format = \"%Q\"\n"), 0644))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty modifier", func(c *Config) { c.General.Modifier = "" }},
		{"unknown modifier", func(c *Config) { c.General.Modifier = "hyper" }},
		{"empty seat", func(c *Config) { c.Seat.Name = "" }},
		{"same outputs", func(c *Config) { c.Outputs.Right = c.Outputs.Left }},
		{"missing output", func(c *Config) { c.Outputs.Left = "" }},
		{"zero scale step", func(c *Config) { c.Outputs.ScaleStep = 0 }},
		{"zero period", func(c *Config) { c.Status.Period = 0 }},
		{"bad transform", func(c *Config) { c.Input.PointerTransform = [][]float64{{1}} }},
		{"bad media key", func(c *Config) { c.Commands.Media.Keys = []MediaKey{{Key: "nope-nope", Arg: "x"}} }},
		{"bad combo", func(c *Config) { c.Bindings = []BindingConfig{{Combo: "alt-", Exec: []string{"x"}}} }},
		{"empty exec", func(c *Config) { c.Bindings = []BindingConfig{{Combo: "alt-x"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestModifier_Combined(t *testing.T) {
	cfg := DefaultConfig()
	cfg.General.Modifier = "ctrl-alt"

	mods, err := cfg.Modifier()
	require.NoError(t, err)
	assert.Equal(t, keysym.Ctrl|keysym.Alt, mods)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.General.Modifier = "super"
	cfg.Status.Period = Duration(2 * time.Second)
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "super", loaded.General.Modifier)
	assert.Equal(t, 2*time.Second, loaded.Status.Period.Duration())
	assert.Equal(t, cfg.Commands.Lock, loaded.Commands.Lock)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/deskrc/config.toml", ConfigPath())
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"5s", 5 * time.Second},
		{"1m30s", 90 * time.Second},
		{"250", 250 * time.Millisecond},
	}
	for _, tt := range tests {
		var d Duration
		require.NoError(t, d.UnmarshalText([]byte(tt.input)))
		assert.Equal(t, tt.want, d.Duration())
	}

	var d Duration
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
