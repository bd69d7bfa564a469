package daemon

import (
	"strconv"

	"github.com/jmylchreest/deskrc/internal/binding"
	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/host"
	"github.com/jmylchreest/deskrc/internal/keysym"
	"github.com/jmylchreest/deskrc/internal/launcher"
)

// Number of function keys used by the VT and workspace ranges.
const (
	vtCount        = 12
	workspaceFirst = 13
	workspaceLast  = 25
)

// directionKeys maps h/j/k/l onto host.Directions, index for index.
var directionKeys = []keysym.Sym{keysym.SymH, keysym.SymJ, keysym.SymK, keysym.SymL}

// installBindings fills the table with the default set followed by the
// bindings from cfg, which win on conflicts.
func (d *Daemon) installBindings(cfg *config.Config) {
	mod, err := cfg.Modifier()
	if err != nil {
		// Validated in prepare.
		mod = keysym.Alt
	}
	h := d.host
	seat := d.seat
	t := d.table

	for i, dir := range host.Directions {
		dir := dir
		t.BindNamed(mod, directionKeys[i], "focus "+dir.String(), func() { seat.Focus(dir) })
		t.BindNamed(mod|keysym.Shift, directionKeys[i], "move "+dir.String(), func() { seat.Move(dir) })
	}

	t.BindNamed(mod, keysym.SymD, "split horizontal", func() { seat.CreateSplit(host.Horizontal) })
	t.BindNamed(mod, keysym.SymV, "split vertical", func() { seat.CreateSplit(host.Vertical) })
	t.BindNamed(mod, keysym.SymT, "toggle split", seat.ToggleSplit)
	t.BindNamed(mod, keysym.SymM, "toggle mono", seat.ToggleMono)
	t.BindNamed(mod, keysym.SymU, "toggle fullscreen", seat.ToggleFullscreen)
	t.BindNamed(mod|keysym.Shift, keysym.SymF, "toggle floating", seat.ToggleFloating)
	t.BindNamed(mod, keysym.SymF, "focus parent", seat.FocusParent)
	t.BindNamed(mod|keysym.Shift, keysym.SymC, "close window", seat.Close)

	terminal := launcher.FromArgv(cfg.Commands.Terminal)
	t.BindNamed(keysym.None, keysym.SymSuperL, "spawn "+terminal.String(), d.spawner.Action(terminal))
	menu := launcher.FromArgv(cfg.Commands.Launcher)
	t.BindNamed(mod, keysym.SymP, "spawn "+menu.String(), d.spawner.Action(menu))

	t.BindNamed(mod, keysym.SymQ, "quit", h.Quit)
	t.BindNamed(mod|keysym.Shift, keysym.SymR, "reload", h.Reload)
	t.BindNamed(mod, keysym.SymN, "disable pointer constraint", seat.DisablePointerConstraint)

	t.BindNamed(mod, keysym.SymY, "scale up", func() { d.scaleBy(d.arrangerStep()) })
	t.BindNamed(mod, keysym.SymI, "scale down", func() { d.scaleBy(-d.arrangerStep()) })

	t.BindNamed(mod|keysym.Shift, keysym.SymM, "toggle hardware cursor", func() {
		enabled := d.hardwareCursor.Flip()
		seat.UseHardwareCursor(enabled)
		d.state.HardwareCursor = enabled
		d.saveState()
	})

	t.BindRange(keysym.Ctrl|keysym.Alt, keysym.FRange(1, vtCount), func(i int) (string, binding.Action) {
		vt := uint32(i + 1)
		return "switch to vt " + strconv.Itoa(i+1), func() { h.SwitchToVT(vt) }
	})

	workspaceKeys := keysym.FRange(workspaceFirst, workspaceLast)
	t.BindRange(mod, workspaceKeys, func(i int) (string, binding.Action) {
		ws := h.Workspace(strconv.Itoa(i + 1))
		return "show workspace " + ws.Name, func() { seat.ShowWorkspace(ws) }
	})
	t.BindRange(mod|keysym.Shift, workspaceKeys, func(i int) (string, binding.Action) {
		ws := h.Workspace(strconv.Itoa(i + 1))
		return "move to workspace " + ws.Name, func() { seat.SetWorkspace(ws) }
	})

	media := cfg.Commands.Media
	if media.Program != "" {
		for _, mk := range media.Keys {
			sym, err := keysym.ParseSym(mk.Key)
			if err != nil {
				continue
			}
			d.bindMedia(mod, sym, launcher.NewCommand(media.Program, mk.Arg))
		}
	}

	for _, b := range cfg.Bindings {
		combo, err := keysym.ParseCombo(b.Combo)
		if err != nil {
			continue
		}
		cmd := launcher.FromArgv(b.Exec)
		t.BindNamed(combo.Mods, combo.Sym, "spawn "+cmd.String(), d.spawner.Action(cmd))
	}
}

// bindMedia binds one media key to its own command.
func (d *Daemon) bindMedia(mod keysym.Modifiers, sym keysym.Sym, cmd launcher.Command) {
	d.table.BindNamed(mod, sym, "spawn "+cmd.String(), d.spawner.Action(cmd))
}

func (d *Daemon) arrangerStep() float64 {
	return d.arranger.Step()
}

// scaleBy changes the scaled connector and records the new geometry.
func (d *Daemon) scaleBy(delta float64) {
	d.arranger.ScaleBy(delta)
	d.snapshotOutputs()
}
