package daemon

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/deskrc/internal/arrange"
	"github.com/jmylchreest/deskrc/internal/binding"
	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/host"
	"github.com/jmylchreest/deskrc/internal/keymap"
	"github.com/jmylchreest/deskrc/internal/launcher"
	"github.com/jmylchreest/deskrc/internal/status"
	"github.com/jmylchreest/deskrc/internal/store"
)

// Deps are the capabilities the orchestrator is composed from.
type Deps struct {
	Launcher launcher.Launcher
	Metrics  status.Metrics
	// Now returns the current local time. Defaults to time.Now.
	Now func() time.Time
	// StatePath is where the runtime state is published. Empty disables it.
	StatePath string
	// ConfigPath is recorded in the runtime state and used by ReloadFromDisk.
	ConfigPath string
	// Notifier reports reload results on the desktop. Optional.
	Notifier *InternalNotifier
}

// Daemon owns one configuration generation at a time.
type Daemon struct {
	logger *slog.Logger
	deps   Deps

	cfg  *config.Config
	host host.Host
	seat host.Seat

	table    *binding.Table
	spawner  *launcher.Spawner
	arranger *arrange.Arranger
	sampler  *status.Sampler

	hardwareCursor *toggle
	hooks          *hookLatch

	generation string
	state      *store.RuntimeState
}

// New creates a Daemon for cfg. Nothing touches the host until Configure.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.Launcher == nil {
		deps.Launcher = launcher.NewExecLauncher(logger)
	}
	if deps.Metrics == nil {
		deps.Metrics = status.NewSystemMetrics()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	state := store.DefaultRuntimeState()
	state.PID = os.Getpid()
	state.ConfigPath = deps.ConfigPath

	return &Daemon{
		logger:         logger,
		deps:           deps,
		cfg:            cfg,
		table:          binding.NewTable(),
		spawner:        launcher.NewSpawner(deps.Launcher, logger),
		hardwareCursor: newToggle(true),
		hooks:          newHookLatch(),
		state:          state,
	}
}

// Configure installs the first configuration generation on h.
// A malformed keymap or invalid configuration aborts with an error and
// leaves the host untouched.
func (d *Daemon) Configure(ctx context.Context, h host.Host) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	km, err := d.prepare(h, d.cfg)
	if err != nil {
		return err
	}
	d.host = h
	d.install(d.cfg, km)
	return nil
}

// Reload replaces the running generation with one built from cfg. If cfg or
// its keymap is invalid the previous generation keeps running and the error
// is returned.
func (d *Daemon) Reload(cfg *config.Config) error {
	if d.host == nil {
		return fmt.Errorf("failed to reload: not configured")
	}
	km, err := d.prepare(d.host, cfg)
	if err != nil {
		d.logger.Warn("reload rejected, keeping previous configuration", "generation", d.generation, "error", err)
		if d.deps.Notifier != nil {
			d.deps.Notifier.NotifyConfigError(err)
		}
		return err
	}

	d.teardown()
	d.cfg = cfg
	d.install(cfg, km)

	if d.deps.Notifier != nil {
		d.deps.Notifier.NotifyConfigReloaded(d.generation)
	}
	return nil
}

// ReloadFromDisk re-reads the config file and reloads it.
func (d *Daemon) ReloadFromDisk() error {
	cfg, err := config.LoadConfig(d.deps.ConfigPath)
	if err != nil {
		d.logger.Warn("failed to load configuration", "path", d.deps.ConfigPath, "error", err)
		if d.deps.Notifier != nil {
			d.deps.Notifier.NotifyConfigError(err)
		}
		return err
	}
	return d.Reload(cfg)
}

// prepare validates cfg and compiles its keymap without side effects.
func (d *Daemon) prepare(h host.Host, cfg *config.Config) (host.Keymap, error) {
	if err := cfg.Validate(); err != nil {
		return host.Keymap{}, err
	}
	src, err := keymap.Load(cfg.Seat.Keymap)
	if err != nil {
		return host.Keymap{}, fmt.Errorf("failed to load keymap: %w", err)
	}
	km, err := h.ParseKeymap(src.Name, src.Text)
	if err != nil {
		return host.Keymap{}, fmt.Errorf("failed to compile keymap %s: %w: %w", src.Name, keymap.ErrMalformed, err)
	}
	return km, nil
}

// install runs the configuration sequence for one generation.
func (d *Daemon) install(cfg *config.Config, km host.Keymap) {
	h := d.host
	now := d.deps.Now()
	d.generation = newGeneration(now)
	logger := d.logger.With("generation", d.generation)

	// Seat and keymap
	d.seat = h.Seat(cfg.Seat.Name)
	d.seat.SetKeymap(km)

	// Environment for spawned children
	for k, v := range cfg.Env {
		d.spawner.SetEnv(k, v)
	}

	// Bindings
	d.installBindings(cfg)
	h.OnKey(d.seat, d.table.Dispatch)

	// Devices
	d.installDevices(cfg)

	// Outputs
	d.arranger = arrange.New(h, arrange.Options{
		Left:   cfg.Outputs.Left,
		Right:  cfg.Outputs.Right,
		Scaled: cfg.ScaledOutput(),
		Step:   cfg.Outputs.ScaleStep,
	}, logger)
	d.arranger.Install(h)
	h.OnNewConnector(d.recordOutput)
	h.OnConnectorConnected(d.recordOutput)
	d.snapshotOutputs()

	// Status line
	d.sampler = nil
	if cfg.Status.Enabled {
		d.sampler = status.NewSampler(d.deps.Metrics, d.publishStatus, status.Options{
			Period:         cfg.Status.Period.Duration(),
			TimeFormat:     cfg.Status.TimeFormat,
			SeparatorColor: cfg.Status.SeparatorColor,
			Now:            d.deps.Now,
		}, logger)
		d.sampler.Start(h)
	}

	// One-shot lifecycle hooks
	d.installHooks(cfg)

	d.state.Generation = d.generation
	d.state.GenerationStartedAt = now.Unix()
	d.state.Bindings = d.table.Len()
	d.state.HardwareCursor = d.hardwareCursor.Get()
	d.saveState()

	logger.Info("configuration installed",
		"seat", cfg.Seat.Name,
		"bindings", d.table.Len(),
		"keymap", km.Name,
		"status", cfg.Status.Enabled,
	)
}

// teardown discards everything the current generation registered.
func (d *Daemon) teardown() {
	if d.sampler != nil {
		d.sampler.Stop()
	}
	d.table.Reset()
	d.host.Reset()
	d.spawner.ResetEnv()
}

// publishStatus replaces the host status and records it.
func (d *Daemon) publishStatus(text string) {
	d.host.SetStatus(text)
	d.state.SetStatus(text, d.deps.Now())
	d.state.UsedMemory = d.deps.Metrics.UsedMemory()
	d.state.TotalMemory = d.deps.Metrics.TotalMemory()
	d.saveState()
}

// recordOutput snapshots the arranged connectors after a hotplug event.
// It is registered after the arranger's hooks and sees their result.
func (d *Daemon) recordOutput(host.Connector) {
	d.snapshotOutputs()
}

func (d *Daemon) snapshotOutputs() {
	for _, name := range []string{d.cfg.Outputs.Left, d.cfg.Outputs.Right} {
		c, ok := d.host.Connector(name)
		if !ok {
			continue
		}
		x, y := c.Position()
		d.state.SetOutput(store.OutputState{
			Name:      name,
			Connected: c.Connected(),
			X:         x,
			Y:         y,
			Width:     c.Width(),
			Height:    c.Height(),
			Scale:     c.Scale(),
		})
	}
	d.saveState()
}

func (d *Daemon) saveState() {
	if d.deps.StatePath == "" {
		return
	}
	if err := store.SaveState(d.deps.StatePath, d.state); err != nil {
		d.logger.Warn("failed to save runtime state", "path", d.deps.StatePath, "error", err)
	}
}

// Table returns the live binding table.
func (d *Daemon) Table() *binding.Table {
	return d.table
}

// Config returns the configuration of the running generation.
func (d *Daemon) Config() *config.Config {
	return d.cfg
}

// Generation returns the ULID of the running generation.
func (d *Daemon) Generation() string {
	return d.generation
}

// Arranger returns the output arranger of the running generation.
func (d *Daemon) Arranger() *arrange.Arranger {
	return d.arranger
}

// Sampler returns the status sampler, or nil when the status line is disabled.
func (d *Daemon) Sampler() *status.Sampler {
	return d.sampler
}

// HardwareCursor reports the current hardware cursor setting.
func (d *Daemon) HardwareCursor() bool {
	return d.hardwareCursor.Get()
}

// State returns a copy of the runtime state.
func (d *Daemon) State() store.RuntimeState {
	s := *d.state
	s.Outputs = append([]store.OutputState(nil), d.state.Outputs...)
	s.HooksFired = append([]string(nil), d.state.HooksFired...)
	return s
}

func newGeneration(now time.Time) string {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
