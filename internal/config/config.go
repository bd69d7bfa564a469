// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/deskrc/internal/keysym"
	"github.com/jmylchreest/deskrc/internal/status"
)

// Default configuration values.
const (
	DefaultModifier       = "alt"
	DefaultSeat           = "default"
	DefaultLeftOutput     = "HDMI-A-1"
	DefaultRightOutput    = "DP-3"
	DefaultScaleStep      = 64.0 / 256.0
	DefaultPointerScale   = 0.35
	DefaultMediaProgram   = "spotify-remote"
	DefaultGTKTheme       = "Adwaita:dark"
	DefaultStatusPeriod   = Duration(5 * time.Second)
	DefaultWatchDebounce  = Duration(250 * time.Millisecond)
	DefaultTimeFormat     = status.DefaultTimeFormat
	DefaultSeparatorColor = status.DefaultSeparatorColor
)

// Config represents the deskrc configuration.
type Config struct {
	General  GeneralConfig     `toml:"general"`
	Seat     SeatConfig        `toml:"seat"`
	Outputs  OutputsConfig     `toml:"outputs"`
	Status   StatusConfig      `toml:"status"`
	Input    InputConfig       `toml:"input"`
	Commands CommandsConfig    `toml:"commands"`
	Env      map[string]string `toml:"env"`
	Bindings []BindingConfig   `toml:"bindings"`
	Daemon   DaemonConfig      `toml:"daemon"`
}

// GeneralConfig holds global settings.
type GeneralConfig struct {
	Modifier string `toml:"modifier"` // Main binding modifier, e.g. "alt" or "super"
}

// SeatConfig selects the seat and its keymap.
type SeatConfig struct {
	Name   string `toml:"name"`
	Keymap string `toml:"keymap"` // Path to an XKB keymap; empty = built-in
}

// OutputsConfig names the connectors arranged side by side.
type OutputsConfig struct {
	Left      string  `toml:"left"`
	Right     string  `toml:"right"`
	Scaled    string  `toml:"scaled"` // Connector changed by the scale bindings; empty = left
	ScaleStep float64 `toml:"scale_step"`
}

// StatusConfig configures the status line.
type StatusConfig struct {
	Enabled        bool     `toml:"enabled"`
	Period         Duration `toml:"period"`
	TimeFormat     string   `toml:"time_format"` // strftime pattern
	SeparatorColor string   `toml:"separator_color"`
}

// InputConfig holds per-device settings applied on attach.
type InputConfig struct {
	LeftHanded       bool        `toml:"left_handed"` // Pointer devices only
	TapEnabled       bool        `toml:"tap_enabled"`
	PointerTransform [][]float64 `toml:"pointer_transform"`
}

// CommandsConfig holds the programs spawned by bindings and hooks.
// Each command is an argv list.
type CommandsConfig struct {
	Terminal     []string    `toml:"terminal"`
	Launcher     []string    `toml:"launcher"`
	NotifyDaemon []string    `toml:"notify_daemon"` // Spawned once graphics are up
	Lock         []string    `toml:"lock"`          // Spawned once on idle
	Media        MediaConfig `toml:"media"`
}

// MediaConfig generates one binding per key, each running Program with its
// own argument.
type MediaConfig struct {
	Program string     `toml:"program"`
	Keys    []MediaKey `toml:"keys"`
}

// MediaKey is a single media binding.
type MediaKey struct {
	Key string `toml:"key"`
	Arg string `toml:"arg"`
}

// BindingConfig is a user-defined spawn binding.
type BindingConfig struct {
	Combo string   `toml:"combo"` // e.g. "alt-shift-Return"
	Exec  []string `toml:"exec"`
}

// DaemonConfig holds deskrcd behaviour.
type DaemonConfig struct {
	WatchConfig   bool     `toml:"watch_config"`   // Reload when the config file changes
	Debounce      Duration `toml:"debounce"`       // Delay before reloading after a change
	Notifications bool     `toml:"notifications"`  // Desktop notifications for reload results
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Modifier: DefaultModifier,
		},
		Seat: SeatConfig{
			Name: DefaultSeat,
		},
		Outputs: OutputsConfig{
			Left:      DefaultLeftOutput,
			Right:     DefaultRightOutput,
			ScaleStep: DefaultScaleStep,
		},
		Status: StatusConfig{
			Enabled:        true,
			Period:         DefaultStatusPeriod,
			TimeFormat:     DefaultTimeFormat,
			SeparatorColor: DefaultSeparatorColor,
		},
		Input: InputConfig{
			LeftHanded: true,
			TapEnabled: true,
			PointerTransform: [][]float64{
				{DefaultPointerScale, 0},
				{0, DefaultPointerScale},
			},
		},
		Commands: CommandsConfig{
			Terminal:     []string{"alacritty"},
			Launcher:     []string{"bemenu-run"},
			NotifyDaemon: []string{"mako"},
			Lock:         []string{"jay", "run-privileged", "--", "swaylock", "-c", "111111"},
			Media: MediaConfig{
				Program: DefaultMediaProgram,
				Keys: []MediaKey{
					{Key: "a", Arg: "a"},
					{Key: "o", Arg: "o"},
					{Key: "e", Arg: "e"},
				},
			},
		},
		Env: map[string]string{
			"GTK_THEME": DefaultGTKTheme,
		},
		Daemon: DaemonConfig{
			WatchConfig:   true,
			Debounce:      DefaultWatchDebounce,
			Notifications: true,
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
	return filepath.Join(configHome, "deskrc", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks semantic constraints TOML decoding cannot express.
func (c *Config) Validate() error {
	if _, err := c.Modifier(); err != nil {
		return err
	}
	if c.Seat.Name == "" {
		return fmt.Errorf("%w: seat.name is empty", ErrInvalid)
	}
	if c.Outputs.Left == "" || c.Outputs.Right == "" {
		return fmt.Errorf("%w: outputs.left and outputs.right are required", ErrInvalid)
	}
	if c.Outputs.Left == c.Outputs.Right {
		return fmt.Errorf("%w: outputs.left and outputs.right are both %q", ErrInvalid, c.Outputs.Left)
	}
	if c.Outputs.ScaleStep <= 0 {
		return fmt.Errorf("%w: outputs.scale_step must be positive", ErrInvalid)
	}
	if c.Status.Period.Duration() <= 0 {
		return fmt.Errorf("%w: status.period must be positive", ErrInvalid)
	}
	if err := status.ValidateTimeFormat(c.Status.TimeFormat); err != nil {
		return fmt.Errorf("%w: status.time_format: %v", ErrInvalid, err)
	}
	if _, err := c.PointerTransform(); err != nil {
		return err
	}
	for i, mk := range c.Commands.Media.Keys {
		if _, err := keysym.ParseSym(mk.Key); err != nil {
			return fmt.Errorf("%w: commands.media.keys[%d]: %v", ErrInvalid, i, err)
		}
	}
	for i, b := range c.Bindings {
		if _, err := keysym.ParseCombo(b.Combo); err != nil {
			return fmt.Errorf("%w: bindings[%d].combo: %v", ErrInvalid, i, err)
		}
		if len(b.Exec) == 0 || b.Exec[0] == "" {
			return fmt.Errorf("%w: bindings[%d].exec is empty", ErrInvalid, i)
		}
	}
	return nil
}

// Modifier parses general.modifier, which may combine modifiers ("ctrl-alt").
func (c *Config) Modifier() (keysym.Modifiers, error) {
	if c.General.Modifier == "" {
		return keysym.None, fmt.Errorf("%w: general.modifier is empty", ErrInvalid)
	}
	combo, err := keysym.ParseCombo(c.General.Modifier + "-a")
	if err != nil {
		return keysym.None, fmt.Errorf("%w: general.modifier %q: %v", ErrInvalid, c.General.Modifier, err)
	}
	return combo.Mods, nil
}

// PointerTransform returns input.pointer_transform as a 2x2 matrix.
func (c *Config) PointerTransform() ([2][2]float64, error) {
	var m [2][2]float64
	rows := c.Input.PointerTransform
	if len(rows) != 2 || len(rows[0]) != 2 || len(rows[1]) != 2 {
		return m, fmt.Errorf("%w: input.pointer_transform must be a 2x2 matrix", ErrInvalid)
	}
	for i := range rows {
		for j := range rows[i] {
			m[i][j] = rows[i][j]
		}
	}
	return m, nil
}

// ScaledOutput returns the connector adjusted by the scale bindings.
func (c *Config) ScaledOutput() string {
	if c.Outputs.Scaled != "" {
		return c.Outputs.Scaled
	}
	return c.Outputs.Left
}
