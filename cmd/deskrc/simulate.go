package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/deskrc/internal/host"
	"github.com/jmylchreest/deskrc/internal/host/memhost"
	"github.com/jmylchreest/deskrc/internal/keysym"
	"github.com/jmylchreest/deskrc/internal/status"
	"github.com/jmylchreest/deskrc/internal/store"
)

var simulateOpts struct {
	connect  []string
	devices  []string
	press    []string
	ticks    int
	graphics bool
	idle     bool
	format   string
}

// KeyResult is the outcome of one simulated key press.
type KeyResult struct {
	Combo   string `json:"combo" yaml:"combo"`
	Matched bool   `json:"matched" yaml:"matched"`
}

// SimulationReport is everything the configuration did to the in-memory
// compositor.
type SimulationReport struct {
	Generation     string              `json:"generation" yaml:"generation"`
	Bindings       int                 `json:"bindings" yaml:"bindings"`
	Keys           []KeyResult         `json:"keys,omitempty" yaml:"keys,omitempty"`
	SeatActions    []string            `json:"seat_actions,omitempty" yaml:"seat_actions,omitempty"`
	Spawned        []string            `json:"spawned,omitempty" yaml:"spawned,omitempty"`
	Env            map[string]string   `json:"env,omitempty" yaml:"env,omitempty"`
	Status         string              `json:"status,omitempty" yaml:"status,omitempty"`
	StatusUpdates  int                 `json:"status_updates" yaml:"status_updates"`
	VTSwitches     []uint32            `json:"vt_switches,omitempty" yaml:"vt_switches,omitempty"`
	Quit           bool                `json:"quit" yaml:"quit"`
	Reloads        int                 `json:"reloads" yaml:"reloads"`
	HardwareCursor bool                `json:"hardware_cursor" yaml:"hardware_cursor"`
	Outputs        []store.OutputState `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	HooksFired     []string            `json:"hooks_fired,omitempty" yaml:"hooks_fired,omitempty"`
	Devices        []DeviceReport      `json:"devices,omitempty" yaml:"devices,omitempty"`
}

// DeviceReport is the configuration applied to a simulated input device.
type DeviceReport struct {
	Name       string        `json:"name" yaml:"name"`
	Seat       string        `json:"seat" yaml:"seat"`
	LeftHanded bool          `json:"left_handed" yaml:"left_handed"`
	TapEnabled bool          `json:"tap_enabled" yaml:"tap_enabled"`
	Transform  [2][2]float64 `json:"transform" yaml:"transform"`
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the configuration against an in-memory compositor",
	Long: `Configure an in-memory compositor with the current configuration, replay
a scenario and report what deskrc did: seat actions, spawned commands,
status line updates, output layout and device settings.

Nothing is spawned and the daemon state file is not touched.

Examples:
  # What does alt-Return do?
  deskrc simulate --press alt-Return

  # Hotplug an external monitor and grow the scale twice
  deskrc simulate --connect HDMI-A-1=2880x1800 --connect DP-3=3840x2160 \
      --press alt-y --press alt-y

  # Fire the startup hooks and three status ticks
  deskrc simulate --graphics --idle --ticks 3 --format json`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringArrayVar(&simulateOpts.connect, "connect", nil,
		"Connect an output, NAME=WIDTHxHEIGHT (repeatable; default: configured left and right)")
	simulateCmd.Flags().StringArrayVar(&simulateOpts.devices, "pointer", []string{"touchpad"},
		"Add a pointer device with this name (repeatable)")
	simulateCmd.Flags().StringArrayVarP(&simulateOpts.press, "press", "p", nil,
		"Press a key combo such as alt-Return (repeatable, in order)")
	simulateCmd.Flags().IntVar(&simulateOpts.ticks, "ticks", 0,
		"Number of status timer ticks to fire")
	simulateCmd.Flags().BoolVar(&simulateOpts.graphics, "graphics", false,
		"Signal that graphics are initialized")
	simulateCmd.Flags().BoolVar(&simulateOpts.idle, "idle", false,
		"Signal that the compositor went idle")
	simulateCmd.Flags().StringVarP(&simulateOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	outputs := defaultOutputs(getConfig())
	if len(simulateOpts.connect) > 0 {
		outputs = outputs[:0]
		for _, spec := range simulateOpts.connect {
			o, err := parseOutputSpec(spec)
			if err != nil {
				return err
			}
			outputs = append(outputs, o)
		}
	}

	combos := make([]keysym.Combo, 0, len(simulateOpts.press))
	for _, spec := range simulateOpts.press {
		c, err := keysym.ParseCombo(spec)
		if err != nil {
			return fmt.Errorf("invalid combo %q: %w", spec, err)
		}
		combos = append(combos, c)
	}

	report, err := simulate(scenario{
		Outputs:  outputs,
		Pointers: simulateOpts.devices,
		Keys:     combos,
		Ticks:    simulateOpts.ticks,
		Graphics: simulateOpts.graphics,
		Idle:     simulateOpts.idle,
	})
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), report, simulateOpts.format)
}

// scenario is a sequence of host events to replay.
type scenario struct {
	Outputs  []outputSpec
	Pointers []string
	Keys     []keysym.Combo
	Ticks    int
	Graphics bool
	Idle     bool
	Metrics  status.Metrics
	Now      func() time.Time
}

// simulate configures a headless daemon and replays sc against it.
func simulate(sc scenario) (*SimulationReport, error) {
	s, err := newHeadless(getConfig(), sc.Metrics, sc.Now)
	if err != nil {
		return nil, err
	}

	for _, name := range sc.Pointers {
		s.host.AddInputDevice(name, host.CapPointer)
	}
	for _, o := range sc.Outputs {
		s.host.Connect(o.Name, o.Width, o.Height)
	}
	if sc.Graphics {
		s.host.InitGraphics()
	}
	if sc.Idle {
		s.host.GoIdle()
	}

	seatName := s.daemon.Config().Seat.Name
	report := &SimulationReport{}
	for _, c := range sc.Keys {
		matched := s.host.PressKey(seatName, c.Mods, c.Sym)
		report.Keys = append(report.Keys, KeyResult{Combo: c.String(), Matched: matched})
	}
	for i := 0; i < sc.Ticks; i++ {
		if err := s.host.FireTimer(status.TimerName); err != nil {
			return nil, err
		}
	}

	state := s.daemon.State()
	report.Generation = s.daemon.Generation()
	report.Bindings = s.daemon.Table().Len()
	report.SeatActions = s.seat().Actions
	report.Spawned = s.spawn.Lines()
	report.Env = s.spawn.Env
	report.Status = s.host.Status
	report.StatusUpdates = len(s.host.StatusLog)
	report.VTSwitches = s.host.VTSwitches
	report.Quit = s.host.QuitCount > 0
	report.Reloads = s.host.ReloadCount
	report.HardwareCursor = s.daemon.HardwareCursor()
	report.Outputs = state.Outputs
	report.HooksFired = state.HooksFired
	for _, dev := range s.host.InputDevices() {
		d, ok := dev.(*memhost.InputDevice)
		if !ok {
			continue
		}
		report.Devices = append(report.Devices, DeviceReport{
			Name:       d.Name(),
			Seat:       d.SeatName,
			LeftHanded: d.LeftHanded,
			TapEnabled: d.TapEnabled,
			Transform:  [2][2]float64(d.Transform),
		})
	}
	return report, nil
}

// writeReport renders report in the requested format.
func writeReport(w io.Writer, report *SimulationReport, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(report)
	case "plain":
		_, err := io.WriteString(w, plainReport(report))
		return err
	default:
		return fmt.Errorf("unknown format %q (use plain, json or yaml)", format)
	}
}

func plainReport(r *SimulationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "generation %s, %d bindings\n", r.Generation, r.Bindings)
	for _, k := range r.Keys {
		mark := "unbound"
		if k.Matched {
			mark = "handled"
		}
		fmt.Fprintf(&b, "key %-24s %s\n", k.Combo, mark)
	}
	for _, a := range r.SeatActions {
		fmt.Fprintf(&b, "seat   %s\n", a)
	}
	for _, line := range r.Spawned {
		fmt.Fprintf(&b, "spawn  %s\n", line)
	}
	for _, k := range sortedKeys(r.Env) {
		fmt.Fprintf(&b, "env    %s=%s\n", k, r.Env[k])
	}
	for _, vt := range r.VTSwitches {
		fmt.Fprintf(&b, "vt     %d\n", vt)
	}
	for _, o := range r.Outputs {
		state := "disconnected"
		if o.Connected {
			state = fmt.Sprintf("%dx%d at %d,%d scale %.2f", o.Width, o.Height, o.X, o.Y, o.Scale)
		}
		fmt.Fprintf(&b, "output %s %s\n", o.Name, state)
	}
	for _, d := range r.Devices {
		fmt.Fprintf(&b, "device %s seat=%s left_handed=%t tap=%t transform=%v\n",
			d.Name, d.Seat, d.LeftHanded, d.TapEnabled, d.Transform)
	}
	if len(r.HooksFired) > 0 {
		fmt.Fprintf(&b, "hooks  %s\n", strings.Join(r.HooksFired, ", "))
	}
	if r.Status != "" {
		fmt.Fprintf(&b, "status %s (%d updates)\n", r.Status, r.StatusUpdates)
	}
	if !r.HardwareCursor {
		b.WriteString("cursor software\n")
	}
	if r.Reloads > 0 {
		fmt.Fprintf(&b, "reload requested %d times\n", r.Reloads)
	}
	if r.Quit {
		b.WriteString("quit requested\n")
	}
	return b.String()
}
