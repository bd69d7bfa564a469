package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/keysym"
	"github.com/jmylchreest/deskrc/internal/status"
	"github.com/jmylchreest/deskrc/internal/store"
	"github.com/jmylchreest/deskrc/internal/tui"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func mustCombo(t *testing.T, spec string) keysym.Combo {
	t.Helper()
	c, err := keysym.ParseCombo(spec)
	require.NoError(t, err)
	return c
}

func TestParseOutputSpec(t *testing.T) {
	tests := []struct {
		spec    string
		want    outputSpec
		wantErr bool
	}{
		{spec: "DP-3=2560x1440", want: outputSpec{Name: "DP-3", Width: 2560, Height: 1440}},
		{spec: "DP-3", wantErr: true},
		{spec: "=2560x1440", wantErr: true},
		{spec: "DP-3=2560", wantErr: true},
		{spec: "DP-3=0x1440", wantErr: true},
		{spec: "DP-3=2560xabc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parseOutputSpec(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBindingRows_Defaults(t *testing.T) {
	s, err := newHeadless(config.DefaultConfig(), nil, nil)
	require.NoError(t, err)

	rows := s.bindingRows()
	assert.Len(t, rows, 65)
	assert.Equal(t, tui.BindingRow{Combo: "alt-h", Action: "focus left"}, rows[0])
	assert.Contains(t, rows, tui.BindingRow{Combo: "alt-p", Action: "spawn bemenu-run"})
	assert.Contains(t, rows, tui.BindingRow{Combo: "Super_L", Action: "spawn alacritty"})
	assert.Contains(t, rows, tui.BindingRow{Combo: "ctrl-alt-F12", Action: "switch to vt 12"})
	assert.Contains(t, rows, tui.BindingRow{Combo: "alt-shift-F25", Action: "move to workspace 13"})
}

func TestBindingRows_ConfiguredOverridesDefault(t *testing.T) {
	c := config.DefaultConfig()
	c.Bindings = []config.BindingConfig{{Combo: "alt-p", Exec: []string{"fuzzel"}}}

	s, err := newHeadless(c, nil, nil)
	require.NoError(t, err)

	rows := s.bindingRows()
	assert.Len(t, rows, 65)
	assert.Contains(t, rows, tui.BindingRow{Combo: "alt-p", Action: "spawn fuzzel"})
	assert.NotContains(t, rows, tui.BindingRow{Combo: "alt-p", Action: "spawn bemenu-run"})
}

func TestWriteBindings(t *testing.T) {
	rows := []tui.BindingRow{
		{Combo: "alt-p", Action: "spawn bemenu-run"},
		{Combo: "alt-q", Action: "quit"},
	}

	t.Run("plain", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeBindings(&buf, rows, "plain"))
		assert.Equal(t, "alt-p\tspawn bemenu-run\nalt-q\tquit\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeBindings(&buf, rows, "json"))
		var got []tui.BindingRow
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, rows, got)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeBindings(&buf, rows, "yaml"))
		assert.Contains(t, buf.String(), "- combo: alt-p\n  action: spawn bemenu-run\n")
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeBindings(&buf, rows, "table"))
		assert.Contains(t, buf.String(), "COMBO")
		assert.Contains(t, buf.String(), "spawn bemenu-run")
	})

	t.Run("unknown", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, writeBindings(&buf, rows, "xml"))
	})
}

func TestFilterRows(t *testing.T) {
	rows := []tui.BindingRow{
		{Combo: "alt-p", Action: "spawn bemenu-run"},
		{Combo: "alt-q", Action: "quit"},
	}
	assert.Equal(t, rows[:1], filterRows(rows, "SPAWN"))
	assert.Equal(t, rows[1:], filterRows(rows, "alt-q"))
	assert.Equal(t, rows, filterRows(rows, ""))
}

func TestSimulate(t *testing.T) {
	withConfig(t, config.DefaultConfig())
	now := time.Date(2024, 1, 1, 12, 0, 2, 0, time.Local)

	report, err := simulate(scenario{
		Outputs:  defaultOutputs(getConfig()),
		Pointers: []string{"touchpad"},
		Keys: []keysym.Combo{
			mustCombo(t, "alt-p"),
			mustCombo(t, "Super_L"),
			mustCombo(t, "ctrl-alt-F2"),
			mustCombo(t, "alt-h"),
			mustCombo(t, "alt-x"),
		},
		Ticks:    2,
		Graphics: true,
		Idle:     true,
		Metrics:  &status.StaticMetrics{PerCore: []float64{40, 40}, Used: 2048 << 20, Total: 8192 << 20},
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)

	assert.Equal(t, 65, report.Bindings)
	assert.NotEmpty(t, report.Generation)
	assert.Equal(t, []KeyResult{
		{Combo: "alt-p", Matched: true},
		{Combo: "Super_L", Matched: true},
		{Combo: "ctrl-alt-F2", Matched: true},
		{Combo: "alt-h", Matched: true},
		{Combo: "alt-x", Matched: false},
	}, report.Keys)
	assert.Equal(t, []string{
		"bemenu-run",
		"alacritty",
		"mako",
		"jay run-privileged -- swaylock -c 111111",
	}, reorderSpawned(report.Spawned))
	assert.Equal(t, []uint32{2}, report.VTSwitches)
	assert.Equal(t, []string{"focus:left"}, report.SeatActions)
	assert.Equal(t, "Adwaita:dark", report.Env["GTK_THEME"])
	assert.Equal(t, []string{"graphics", "idle"}, report.HooksFired)
	// One sample at start plus two ticks
	assert.Equal(t, 3, report.StatusUpdates)
	assert.Contains(t, report.Status, "CPU:  0.80")

	require.Len(t, report.Outputs, 2)
	assert.Equal(t, store.OutputState{Name: "HDMI-A-1", Connected: true, Width: 1920, Height: 1080, Scale: 1}, report.Outputs[0])
	assert.Equal(t, store.OutputState{Name: "DP-3", Connected: true, X: 1920, Width: 2560, Height: 1440, Scale: 1}, report.Outputs[1])

	require.Len(t, report.Devices, 1)
	dev := report.Devices[0]
	assert.Equal(t, "touchpad", dev.Name)
	assert.Equal(t, "default", dev.Seat)
	assert.True(t, dev.LeftHanded)
	assert.True(t, dev.TapEnabled)
	assert.Equal(t, [2][2]float64{{0.35, 0}, {0, 0.35}}, dev.Transform)

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, report, "plain"))
	assert.Contains(t, buf.String(), "spawn  alacritty\n")
	assert.Contains(t, buf.String(), "output DP-3 2560x1440 at 1920,0 scale 1.00\n")
	assert.Contains(t, buf.String(), "unbound")
}

// reorderSpawned returns the spawned key commands first, then the hooks, so
// the assertion does not depend on whether hooks run before key presses.
func reorderSpawned(lines []string) []string {
	var keys, hooks []string
	for _, l := range lines {
		if l == "mako" || strings.HasPrefix(l, "jay ") {
			hooks = append(hooks, l)
		} else {
			keys = append(keys, l)
		}
	}
	return append(keys, hooks...)
}

func TestSimulate_ScaleBinding(t *testing.T) {
	withConfig(t, config.DefaultConfig())

	report, err := simulate(scenario{
		Outputs: defaultOutputs(getConfig()),
		Keys:    []keysym.Combo{mustCombo(t, "alt-i"), mustCombo(t, "alt-i"), mustCombo(t, "alt-i"), mustCombo(t, "alt-i"), mustCombo(t, "alt-i")},
	})
	require.NoError(t, err)

	// Scale never drops below one step
	assert.InDelta(t, 0.25, report.Outputs[0].Scale, 1e-9)
}

func TestWriteArrangement(t *testing.T) {
	c := config.DefaultConfig()

	var buf bytes.Buffer
	left := outputSpec{Name: "HDMI-A-1", Width: 2880, Height: 1800}
	right := outputSpec{Name: "DP-3", Width: 3840, Height: 2160}
	require.NoError(t, writeArrangement(&buf, c, left, right, -1))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "HDMI-A-1     2880x1800 at 0,0 scale 0.75", lines[0])
	assert.Equal(t, "DP-3         3840x2160 at 2880,0 scale 1.00", lines[1])
}

func TestWaybarStatus(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	state := store.DefaultRuntimeState()
	state.Generation = "01HQGEN"
	state.SetStatus(`MEM: 2.0/8.0 <span color="#333333">|</span> CPU:  0.80`, now.Add(-2*time.Second))

	got := waybarStatus(state, now, 5*time.Second)
	assert.Equal(t, "MEM: 2.0/8.0 | CPU:  0.80", got.Text)
	assert.Equal(t, "live", got.Class)
	assert.Contains(t, got.Tooltip, "generation 01HQGEN")

	got = waybarStatus(state, now.Add(time.Minute), 5*time.Second)
	assert.Equal(t, "stale", got.Class)

	empty := waybarStatus(store.DefaultRuntimeState(), now, 5*time.Second)
	assert.Equal(t, "empty", empty.Class)
}

func TestPlainStatus(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "deskrcd has not published any state\n", plainStatus(store.DefaultRuntimeState(), now))

	state := store.DefaultRuntimeState()
	state.PID = 42
	state.Generation = "01HQGEN"
	state.Bindings = 65
	state.UsedMemory = 2 << 30
	state.TotalMemory = 8 << 30
	state.SetStatus("line", now.Add(-time.Minute))
	state.SetOutput(store.OutputState{Name: "DP-3", Connected: true, X: 1920, Width: 2560, Height: 1440, Scale: 1})

	out := plainStatus(state, now)
	assert.Contains(t, out, "status:      line\n")
	assert.Contains(t, out, "updated:     1 minute ago\n")
	assert.Contains(t, out, "memory:      2.0 GiB / 8.0 GiB\n")
	assert.Contains(t, out, "output:      DP-3 2560x1440 at 1920,0 scale 1.00\n")
	assert.Contains(t, out, "cursor:      hardware\n")
}

func TestInitAndCheckConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deskrc", "config.toml")

	var buf bytes.Buffer
	require.NoError(t, initConfig(&buf, path, false))
	assert.Contains(t, buf.String(), path)

	// Refuses to overwrite without force
	assert.Error(t, initConfig(&buf, path, false))
	require.NoError(t, initConfig(&buf, path, true))

	buf.Reset()
	require.NoError(t, checkConfig(&buf, path))
	assert.Contains(t, buf.String(), "ok: "+path)
	assert.Contains(t, buf.String(), "bindings: 65")
	assert.Contains(t, buf.String(), "keymap:   default")
}

func TestCheckConfig_MissingFileUsesDefaults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, checkConfig(&buf, filepath.Join(t.TempDir(), "missing.toml")))
	assert.Contains(t, buf.String(), "ok: defaults (no file)")
}
