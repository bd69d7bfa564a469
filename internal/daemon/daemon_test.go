package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/dbus"
	"github.com/jmylchreest/deskrc/internal/host"
	"github.com/jmylchreest/deskrc/internal/host/memhost"
	"github.com/jmylchreest/deskrc/internal/keymap"
	"github.com/jmylchreest/deskrc/internal/keysym"
	"github.com/jmylchreest/deskrc/internal/launcher"
	"github.com/jmylchreest/deskrc/internal/status"
	"github.com/jmylchreest/deskrc/internal/store"
)

const expectedStatus = `MEM: 2.0/8.0 <span color="#333333">|</span> CPU:  0.80 <span color="#333333">|</span> 2024-01-01 12:00:02`

type fixture struct {
	d       *Daemon
	h       *memhost.Host
	spawn   *launcher.Fake
	metrics *status.StaticMetrics
	sent    *recordingSender
}

type recordingSender struct {
	sent []*dbus.Notification
}

func (r *recordingSender) Notify(n *dbus.Notification) (uint32, error) {
	r.sent = append(r.sent, n)
	return uint32(len(r.sent)), nil
}

func newFixture(t *testing.T, cfg *config.Config, deps Deps) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	f := &fixture{
		h:     memhost.New(),
		spawn: launcher.NewFake(),
		metrics: &status.StaticMetrics{
			PerCore: []float64{40, 40},
			Used:    2048 << 20,
			Total:   8192 << 20,
		},
		sent: &recordingSender{},
	}
	deps.Launcher = f.spawn
	deps.Metrics = f.metrics
	deps.Now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 2, 0, time.Local) }
	if deps.Notifier == nil {
		deps.Notifier = NewInternalNotifier(f.sent, nil)
	}
	f.d = New(cfg, deps, nil)
	return f
}

func (f *fixture) configure(t *testing.T) {
	t.Helper()
	require.NoError(t, f.d.Configure(context.Background(), f.h))
}

func (f *fixture) press(mods keysym.Modifiers, sym keysym.Sym) bool {
	return f.h.PressKey(config.DefaultSeat, mods, sym)
}

func (f *fixture) seat() *memhost.Seat {
	return f.h.SeatByName(config.DefaultSeat)
}

func TestConfigure_DefaultBindingCount(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	// 8 directional, 8 layout, 2 spawn, 3 control, 2 scale, 1 cursor,
	// 12 VT, 26 workspace, 3 media.
	assert.Equal(t, 65, f.d.Table().Len())
	assert.Len(t, f.d.Generation(), 26)
}

func TestConfigure_DirectionalBindings(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	keys := []keysym.Sym{keysym.SymH, keysym.SymJ, keysym.SymK, keysym.SymL}
	for _, k := range keys {
		assert.True(t, f.press(keysym.Alt, k))
		assert.True(t, f.press(keysym.Alt|keysym.Shift, k))
	}

	assert.Equal(t, []string{
		"focus:left", "move:left",
		"focus:down", "move:down",
		"focus:up", "move:up",
		"focus:right", "move:right",
	}, f.seat().Actions)
}

func TestConfigure_LayoutBindings(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	presses := []struct {
		mods keysym.Modifiers
		sym  keysym.Sym
	}{
		{keysym.Alt, keysym.SymD},
		{keysym.Alt, keysym.SymV},
		{keysym.Alt, keysym.SymT},
		{keysym.Alt, keysym.SymM},
		{keysym.Alt, keysym.SymU},
		{keysym.Alt | keysym.Shift, keysym.SymF},
		{keysym.Alt, keysym.SymF},
		{keysym.Alt | keysym.Shift, keysym.SymC},
		{keysym.Alt, keysym.SymN},
	}
	for _, p := range presses {
		require.True(t, f.press(p.mods, p.sym), "%s-%s", p.mods, p.sym)
	}

	assert.Equal(t, []string{
		"split:horizontal",
		"split:vertical",
		"toggle-split",
		"toggle-mono",
		"toggle-fullscreen",
		"toggle-floating",
		"focus-parent",
		"close",
		"disable-pointer-constraint",
	}, f.seat().Actions)
}

func TestConfigure_UnmatchedIsNoop(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	assert.False(t, f.press(keysym.Alt|keysym.Ctrl, keysym.SymH))
	assert.False(t, f.press(keysym.None, keysym.SymH))
	assert.False(t, f.press(keysym.Alt, keysym.SymSuperL))
	assert.Empty(t, f.seat().Actions)
	assert.Empty(t, f.spawn.Spawned)
}

func TestConfigure_SpawnBindings(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	assert.True(t, f.press(keysym.None, keysym.SymSuperL))
	assert.True(t, f.press(keysym.Alt, keysym.SymP))
	assert.True(t, f.press(keysym.Alt, keysym.SymA))
	assert.True(t, f.press(keysym.Alt, keysym.SymO))
	assert.True(t, f.press(keysym.Alt, keysym.SymE))

	assert.Equal(t, []string{
		"alacritty",
		"bemenu-run",
		"spotify-remote a",
		"spotify-remote o",
		"spotify-remote e",
	}, f.spawn.Lines())
	assert.Equal(t, "Adwaita:dark", f.spawn.Env["GTK_THEME"])
}

func TestConfigure_SpawnFailureIsContained(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)
	f.spawn.Err = errors.New("exec: not found")

	assert.True(t, f.press(keysym.None, keysym.SymSuperL))
	assert.True(t, f.press(keysym.None, keysym.SymSuperL))
}

func TestConfigure_VTRange(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	for n := 1; n <= 12; n++ {
		require.True(t, f.press(keysym.Ctrl|keysym.Alt, keysym.F(n)))
	}
	assert.False(t, f.press(keysym.Ctrl|keysym.Alt, keysym.F(13)))

	want := make([]uint32, 12)
	for i := range want {
		want[i] = uint32(i + 1)
	}
	assert.Equal(t, want, f.h.VTSwitches)
}

func TestConfigure_WorkspaceRanges(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	assert.True(t, f.press(keysym.Alt, keysym.F(13)))
	assert.True(t, f.press(keysym.Alt, keysym.F(25)))
	assert.True(t, f.press(keysym.Alt|keysym.Shift, keysym.F(20)))
	assert.False(t, f.press(keysym.Alt, keysym.F(12)))

	assert.Equal(t, []string{
		"show-workspace:1",
		"show-workspace:13",
		"set-workspace:8",
	}, f.seat().Actions)
}

func TestConfigure_ControlBindings(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	assert.True(t, f.press(keysym.Alt, keysym.SymQ))
	assert.True(t, f.press(keysym.Alt|keysym.Shift, keysym.SymR))
	assert.Equal(t, 1, f.h.QuitCount)
	assert.Equal(t, 1, f.h.ReloadCount)
}

func TestConfigure_HardwareCursorToggle(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)
	assert.True(t, f.d.HardwareCursor())

	f.press(keysym.Alt|keysym.Shift, keysym.SymM)
	assert.False(t, f.d.HardwareCursor())
	assert.False(t, f.seat().HardwareCursor())

	f.press(keysym.Alt|keysym.Shift, keysym.SymM)
	assert.True(t, f.d.HardwareCursor())
	assert.Equal(t, []string{"hardware-cursor:off", "hardware-cursor:on"}, f.seat().Actions)
}

func TestConfigure_ConfigBindingsOverrideDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bindings = []config.BindingConfig{
		{Combo: "alt-p", Exec: []string{"rofi", "-show", "run"}},
		{Combo: "super-Return", Exec: []string{"foot"}},
	}
	f := newFixture(t, cfg, Deps{})
	f.configure(t)

	assert.Equal(t, 66, f.d.Table().Len())
	f.press(keysym.Alt, keysym.SymP)
	f.press(keysym.Super, keysym.SymReturn)
	assert.Equal(t, []string{"rofi -show run", "foot"}, f.spawn.Lines())
}

func TestConfigure_CustomModifier(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.General.Modifier = "super"
	f := newFixture(t, cfg, Deps{})
	f.configure(t)

	assert.False(t, f.press(keysym.Alt, keysym.SymH))
	assert.True(t, f.press(keysym.Super, keysym.SymH))
	assert.True(t, f.press(keysym.Ctrl|keysym.Alt, keysym.F(1)), "VT bindings keep ctrl-alt")
}

func TestConfigure_Devices(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	mouse := f.h.AddInputDevice("mouse", host.CapPointer)
	kbd := f.h.AddInputDevice("keyboard", host.CapKeyboard)
	f.configure(t)

	pad := f.h.AddInputDevice("touchpad", host.CapPointer, host.CapGesture)

	transform := host.TransformMatrix{{0.35, 0}, {0, 0.35}}
	for _, d := range []*memhost.InputDevice{mouse, pad} {
		assert.True(t, d.LeftHanded, d.Name())
		assert.Equal(t, transform, d.Transform, d.Name())
		assert.True(t, d.TapEnabled, d.Name())
		assert.Equal(t, config.DefaultSeat, d.SeatName, d.Name())
	}

	assert.False(t, kbd.LeftHanded)
	assert.Equal(t, host.TransformMatrix{}, kbd.Transform)
	assert.True(t, kbd.TapEnabled)
	assert.Equal(t, config.DefaultSeat, kbd.SeatName)
}

func TestConfigure_ArrangesOutputs(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.h.Connect("HDMI-A-1", 1920, 1080)
	f.configure(t)

	right := f.h.Connect("DP-3", 2560, 1440)
	x, y := right.Position()
	assert.Equal(t, 1920, x)
	assert.Equal(t, 0, y)

	state := f.d.State()
	out, ok := state.Output("DP-3")
	require.True(t, ok)
	assert.Equal(t, 1920, out.X)
}

func TestConfigure_ScaleBindings(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	left := f.h.Connect("HDMI-A-1", 1920, 1080)
	f.h.Connect("DP-3", 2560, 1440)
	left.SetScale(1)
	f.configure(t)

	f.press(keysym.Alt, keysym.SymY)
	assert.Equal(t, 1.25, left.Scale())

	for i := 0; i < 10; i++ {
		f.press(keysym.Alt, keysym.SymI)
	}
	assert.Equal(t, 0.25, left.Scale())

	st := f.d.State()
	out, ok := st.Output("HDMI-A-1")
	require.True(t, ok)
	assert.Equal(t, 0.25, out.Scale)
}

func TestConfigure_StatusSampler(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	assert.Equal(t, expectedStatus, f.h.Status)

	timer := f.h.TimerByName(status.TimerName)
	require.NotNil(t, timer)
	assert.True(t, timer.Armed())
	assert.Equal(t, 3*time.Second, timer.Initial)
	assert.Equal(t, 5*time.Second, timer.Period)

	require.NoError(t, f.h.FireTimer(status.TimerName))
	assert.Len(t, f.h.StatusLog, 2)
	assert.Equal(t, 2, f.metrics.Refreshes)
}

func TestConfigure_StatusDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Status.Enabled = false
	f := newFixture(t, cfg, Deps{})
	f.configure(t)

	assert.Empty(t, f.h.Status)
	assert.Nil(t, f.h.TimerByName(status.TimerName))
	assert.Nil(t, f.d.Sampler())
}

func TestConfigure_OneShotHooks(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	f.h.InitGraphics()
	f.h.InitGraphics()
	f.h.GoIdle()
	f.h.GoIdle()

	assert.Equal(t, []string{"mako", "jay run-privileged -- swaylock -c 111111"}, f.spawn.Lines())

	require.NoError(t, f.d.Reload(config.DefaultConfig()))
	f.h.InitGraphics()
	f.h.GoIdle()
	assert.Len(t, f.spawn.Spawned, 2, "hooks fire once per process, across reloads")
	assert.Equal(t, []string{HookGraphics, HookIdle}, f.d.State().HooksFired)
}

func TestConfigure_Keymap(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)

	assert.Equal(t, keymap.Default().Text, f.seat().Keymap().Text)
}

func TestConfigure_MalformedKeymapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xkb")
	require.NoError(t, os.WriteFile(path, []byte("xkb_keymap {\n  xkb_symbols { include \"us\" };\n"), 0644))

	cfg := config.DefaultConfig()
	cfg.Seat.Keymap = path
	f := newFixture(t, cfg, Deps{})

	err := f.d.Configure(context.Background(), f.h)
	require.Error(t, err)
	assert.ErrorIs(t, err, keymap.ErrMalformed)

	assert.False(t, f.press(keysym.Alt, keysym.SymH), "nothing is installed")
	assert.Empty(t, f.h.Status)
}

func TestConfigure_KeymapRejectedByHost(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.h.SetKeymapValidator(func(string) error { return errors.New("xkbcommon: syntax error") })

	err := f.d.Configure(context.Background(), f.h)
	assert.ErrorIs(t, err, keymap.ErrMalformed)
}

func TestConfigure_CancelledContext(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.d.Configure(ctx, f.h), context.Canceled)
}

func TestReload_ReplacesGeneration(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)
	first := f.d.Generation()

	cfg := config.DefaultConfig()
	cfg.General.Modifier = "super"
	require.NoError(t, f.d.Reload(cfg))

	assert.NotEqual(t, first, f.d.Generation())
	assert.Equal(t, 1, f.h.ResetCount)
	assert.Equal(t, 65, f.d.Table().Len())
	assert.False(t, f.press(keysym.Alt, keysym.SymH))
	assert.True(t, f.press(keysym.Super, keysym.SymH))

	timer := f.h.TimerByName(status.TimerName)
	require.NotNil(t, timer)
	assert.True(t, timer.Armed())

	require.Len(t, f.sent.sent, 1)
	assert.Equal(t, "Configuration Reloaded", f.sent.sent[0].Summary)
}

func TestReload_DropsRemovedEnv(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)
	assert.Equal(t, map[string]string{"GTK_THEME": "Adwaita:dark"}, f.spawn.Env)

	cfg := config.DefaultConfig()
	cfg.Env = map[string]string{"QT_QPA_PLATFORM": "wayland"}
	require.NoError(t, f.d.Reload(cfg))
	assert.Equal(t, map[string]string{"QT_QPA_PLATFORM": "wayland"}, f.spawn.Env)

	cfg = config.DefaultConfig()
	cfg.Env = map[string]string{}
	require.NoError(t, f.d.Reload(cfg))
	assert.Empty(t, f.spawn.Env)
}

func TestReload_InvalidKeepsPrevious(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	f.configure(t)
	first := f.d.Generation()

	path := filepath.Join(t.TempDir(), "broken.xkb")
	require.NoError(t, os.WriteFile(path, []byte("not a keymap"), 0644))
	cfg := config.DefaultConfig()
	cfg.Seat.Keymap = path

	err := f.d.Reload(cfg)
	assert.ErrorIs(t, err, keymap.ErrMalformed)

	assert.Equal(t, first, f.d.Generation())
	assert.Equal(t, 0, f.h.ResetCount)
	assert.True(t, f.press(keysym.Alt, keysym.SymH), "previous bindings still active")

	require.Len(t, f.sent.sent, 1)
	assert.Equal(t, "Configuration Error", f.sent.sent[0].Summary)
}

func TestReload_BeforeConfigure(t *testing.T) {
	f := newFixture(t, nil, Deps{})
	assert.Error(t, f.d.Reload(config.DefaultConfig()))
}

func TestReloadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[general]\nmodifier = \"ctrl-alt\"\n"), 0644))

	f := newFixture(t, nil, Deps{ConfigPath: path})
	f.configure(t)

	require.NoError(t, f.d.ReloadFromDisk())
	assert.True(t, f.press(keysym.Ctrl|keysym.Alt, keysym.SymH))
	assert.Equal(t, "ctrl-alt", f.d.Config().General.Modifier)

	require.NoError(t, os.WriteFile(path, []byte("[general]\nmodifier = \"hyper\"\n"), 0644))
	assert.ErrorIs(t, f.d.ReloadFromDisk(), config.ErrInvalid)
	assert.True(t, f.press(keysym.Ctrl|keysym.Alt, keysym.SymH))
}

func TestRuntimeStateIsPublished(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	f := newFixture(t, nil, Deps{StatePath: statePath, ConfigPath: "/etc/deskrc/config.toml"})
	f.configure(t)

	state, err := store.LoadState(statePath)
	require.NoError(t, err)
	assert.Equal(t, f.d.Generation(), state.Generation)
	assert.Equal(t, 65, state.Bindings)
	assert.Equal(t, expectedStatus, state.Status)
	assert.Equal(t, uint64(8192<<20), state.TotalMemory)
	assert.Equal(t, "/etc/deskrc/config.toml", state.ConfigPath)
	assert.True(t, state.HardwareCursor)
}
