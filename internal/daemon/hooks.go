package daemon

import (
	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/launcher"
)

// Lifecycle hook names.
const (
	HookGraphics = "graphics"
	HookIdle     = "idle"
)

// hookLatch records which one-shot hooks have fired. It outlives
// configuration generations, so a hook fires at most once per process.
type hookLatch struct {
	fired map[string]bool
}

func newHookLatch() *hookLatch {
	return &hookLatch{fired: make(map[string]bool)}
}

// Fire reports whether name may run now and latches it.
func (l *hookLatch) Fire(name string) bool {
	if l.fired[name] {
		return false
	}
	l.fired[name] = true
	return true
}

// Fired reports whether name has run.
func (l *hookLatch) Fired(name string) bool {
	return l.fired[name]
}

// installHooks registers the graphics-initialized and idle hooks.
func (d *Daemon) installHooks(cfg *config.Config) {
	notify := launcher.FromArgv(cfg.Commands.NotifyDaemon)
	lock := launcher.FromArgv(cfg.Commands.Lock)

	d.host.OnGraphicsInitialized(d.oneShot(HookGraphics, notify))
	d.host.OnIdle(d.oneShot(HookIdle, lock))
}

// oneShot spawns cmd the first time the named hook fires.
func (d *Daemon) oneShot(name string, cmd launcher.Command) func() {
	return func() {
		if !d.hooks.Fire(name) {
			d.logger.Debug("hook already fired", "hook", name)
			return
		}
		if cmd.Name != "" {
			d.spawner.Spawn(cmd)
		}
		d.state.HooksFired = append(d.state.HooksFired, name)
		d.saveState()
	}
}
