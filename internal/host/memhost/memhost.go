// Package memhost provides an in-memory host.Host.
//
// It records every mutation deskrc performs and lets callers inject events
// (key presses, hotplug, timer ticks) by hand. It backs the package tests and
// the "deskrc simulate" command. A Host is not safe for concurrent use; drive
// it from one goroutine the same way a compositor drives its dispatch thread.
package memhost

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmylchreest/deskrc/internal/host"
	"github.com/jmylchreest/deskrc/internal/keysym"
)

// KeymapValidator checks keymap text. It defaults to accepting any
// non-empty input.
type KeymapValidator func(text string) error

// Host is an in-memory compositor.
type Host struct {
	seats      map[string]*Seat
	connectors map[string]*Connector
	devices    []*InputDevice
	timers     map[string]*Timer

	keyHandlers        map[string]host.KeyHandler
	newConnector       []func(host.Connector)
	connectorConnected []func(host.Connector)
	newDevice          []func(host.InputDevice)
	graphics           []func()
	idle               []func()

	validate KeymapValidator

	// Recorded output.
	Status      string
	StatusLog   []string
	VTSwitches  []uint32
	QuitCount   int
	ReloadCount int
	ResetCount  int
}

// New creates an empty host.
func New() *Host {
	return &Host{
		seats:       make(map[string]*Seat),
		connectors:  make(map[string]*Connector),
		timers:      make(map[string]*Timer),
		keyHandlers: make(map[string]host.KeyHandler),
		validate: func(text string) error {
			if text == "" {
				return errors.New("empty keymap")
			}
			return nil
		},
	}
}

// SetKeymapValidator replaces the keymap validation used by ParseKeymap.
func (h *Host) SetKeymapValidator(v KeymapValidator) {
	h.validate = v
}

// ParseKeymap implements host.Host.
func (h *Host) ParseKeymap(name, text string) (host.Keymap, error) {
	if err := h.validate(text); err != nil {
		return host.Keymap{}, err
	}
	return host.Keymap{Name: name, Text: text}, nil
}

// Seat implements host.Host. Seats are created on first use.
func (h *Host) Seat(name string) host.Seat {
	return h.seat(name)
}

func (h *Host) seat(name string) *Seat {
	s, ok := h.seats[name]
	if !ok {
		s = &Seat{name: name, hardwareCursor: true}
		h.seats[name] = s
	}
	return s
}

// SeatByName returns the concrete seat for assertions.
func (h *Host) SeatByName(name string) *Seat {
	return h.seat(name)
}

// OnKey implements host.Host.
func (h *Host) OnKey(seat host.Seat, handler host.KeyHandler) {
	h.keyHandlers[seat.Name()] = handler
}

// PressKey delivers a key press to a seat and reports whether a binding
// consumed it.
func (h *Host) PressKey(seat string, mods keysym.Modifiers, sym keysym.Sym) bool {
	handler, ok := h.keyHandlers[seat]
	if !ok {
		return false
	}
	return handler(mods, sym)
}

// Connector implements host.Host.
func (h *Host) Connector(name string) (host.Connector, bool) {
	c, ok := h.connectors[name]
	if !ok {
		return nil, false
	}
	return c, true
}

// ConnectorByName returns the concrete connector, or nil.
func (h *Host) ConnectorByName(name string) *Connector {
	return h.connectors[name]
}

// OnNewConnector implements host.Host.
func (h *Host) OnNewConnector(fn func(host.Connector)) {
	h.newConnector = append(h.newConnector, fn)
}

// OnConnectorConnected implements host.Host.
func (h *Host) OnConnectorConnected(fn func(host.Connector)) {
	h.connectorConnected = append(h.connectorConnected, fn)
}

// AddConnector enumerates a new, disconnected connector and fires the
// new-connector callbacks.
func (h *Host) AddConnector(name string, width, height int) *Connector {
	c := &Connector{name: name, width: width, height: height, scale: 1}
	h.connectors[name] = c
	for _, fn := range h.newConnector {
		fn(c)
	}
	return c
}

// Connect marks a connector connected and fires the connected callbacks.
// Unknown connectors are enumerated first.
func (h *Host) Connect(name string, width, height int) *Connector {
	c, ok := h.connectors[name]
	if !ok {
		c = h.AddConnector(name, width, height)
	}
	c.width, c.height = width, height
	c.connected = true
	for _, fn := range h.connectorConnected {
		fn(c)
	}
	return c
}

// Disconnect marks a connector disconnected. No callbacks fire.
func (h *Host) Disconnect(name string) {
	if c, ok := h.connectors[name]; ok {
		c.connected = false
	}
}

// InputDevices implements host.Host.
func (h *Host) InputDevices() []host.InputDevice {
	out := make([]host.InputDevice, len(h.devices))
	for i, d := range h.devices {
		out[i] = d
	}
	return out
}

// OnNewInputDevice implements host.Host.
func (h *Host) OnNewInputDevice(fn func(host.InputDevice)) {
	h.newDevice = append(h.newDevice, fn)
}

// AddInputDevice attaches a device and fires the new-device callbacks.
func (h *Host) AddInputDevice(name string, caps ...host.Capability) *InputDevice {
	d := &InputDevice{id: uint32(len(h.devices) + 1), name: name, caps: caps}
	h.devices = append(h.devices, d)
	for _, fn := range h.newDevice {
		fn(d)
	}
	return d
}

// OnGraphicsInitialized implements host.Host.
func (h *Host) OnGraphicsInitialized(fn func()) {
	h.graphics = append(h.graphics, fn)
}

// InitGraphics fires the graphics-initialized callbacks.
func (h *Host) InitGraphics() {
	for _, fn := range h.graphics {
		fn()
	}
}

// OnIdle implements host.Host.
func (h *Host) OnIdle(fn func()) {
	h.idle = append(h.idle, fn)
}

// GoIdle fires the idle callbacks.
func (h *Host) GoIdle() {
	for _, fn := range h.idle {
		fn()
	}
}

// Timer implements host.Host.
func (h *Host) Timer(name string) host.Timer {
	t, ok := h.timers[name]
	if !ok {
		t = &Timer{name: name}
		h.timers[name] = t
	}
	return t
}

// TimerByName returns the concrete timer, or nil.
func (h *Host) TimerByName(name string) *Timer {
	return h.timers[name]
}

// FireTimer runs the tick callbacks of an armed timer.
func (h *Host) FireTimer(name string) error {
	t, ok := h.timers[name]
	if !ok {
		return fmt.Errorf("no timer %q", name)
	}
	if !t.armed {
		return fmt.Errorf("timer %q is not armed", name)
	}
	t.Ticks++
	for _, fn := range t.onTick {
		fn()
	}
	return nil
}

// Workspace implements host.Host.
func (h *Host) Workspace(name string) host.Workspace {
	return host.Workspace{Name: name}
}

// SetStatus implements host.Host.
func (h *Host) SetStatus(text string) {
	h.Status = text
	h.StatusLog = append(h.StatusLog, text)
}

// SwitchToVT implements host.Host.
func (h *Host) SwitchToVT(n uint32) {
	h.VTSwitches = append(h.VTSwitches, n)
}

// Quit implements host.Host.
func (h *Host) Quit() {
	h.QuitCount++
}

// Reload implements host.Host.
func (h *Host) Reload() {
	h.ReloadCount++
}

// Reset implements host.Host.
func (h *Host) Reset() {
	h.ResetCount++
	h.keyHandlers = make(map[string]host.KeyHandler)
	h.newConnector = nil
	h.connectorConnected = nil
	h.newDevice = nil
	h.graphics = nil
	h.idle = nil
	for _, t := range h.timers {
		t.Cancel()
	}
	h.timers = make(map[string]*Timer)
}

// ConnectorNames returns the enumerated connector names, sorted.
func (h *Host) ConnectorNames() []string {
	names := make([]string, 0, len(h.connectors))
	for name := range h.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Seat is an in-memory seat that records the actions invoked on it.
type Seat struct {
	name           string
	keymap         host.Keymap
	hardwareCursor bool

	// Actions lists every invoked seat action as "verb[:arg]".
	Actions []string
}

func (s *Seat) record(verb string, arg fmt.Stringer) {
	if arg == nil {
		s.Actions = append(s.Actions, verb)
		return
	}
	s.Actions = append(s.Actions, verb+":"+arg.String())
}

// Name implements host.Seat.
func (s *Seat) Name() string { return s.name }

// Keymap returns the keymap last set on the seat.
func (s *Seat) Keymap() host.Keymap { return s.keymap }

// HardwareCursor reports the hardware cursor setting.
func (s *Seat) HardwareCursor() bool { return s.hardwareCursor }

// SetKeymap implements host.Seat.
func (s *Seat) SetKeymap(km host.Keymap) { s.keymap = km }

// Focus implements host.Seat.
func (s *Seat) Focus(dir host.Direction) { s.record("focus", dir) }

// Move implements host.Seat.
func (s *Seat) Move(dir host.Direction) { s.record("move", dir) }

// CreateSplit implements host.Seat.
func (s *Seat) CreateSplit(axis host.Axis) { s.record("split", axis) }

// ToggleSplit implements host.Seat.
func (s *Seat) ToggleSplit() { s.record("toggle-split", nil) }

// ToggleMono implements host.Seat.
func (s *Seat) ToggleMono() { s.record("toggle-mono", nil) }

// ToggleFullscreen implements host.Seat.
func (s *Seat) ToggleFullscreen() { s.record("toggle-fullscreen", nil) }

// ToggleFloating implements host.Seat.
func (s *Seat) ToggleFloating() { s.record("toggle-floating", nil) }

// FocusParent implements host.Seat.
func (s *Seat) FocusParent() { s.record("focus-parent", nil) }

// Close implements host.Seat.
func (s *Seat) Close() { s.record("close", nil) }

// DisablePointerConstraint implements host.Seat.
func (s *Seat) DisablePointerConstraint() { s.record("disable-pointer-constraint", nil) }

// UseHardwareCursor implements host.Seat.
func (s *Seat) UseHardwareCursor(enabled bool) {
	s.hardwareCursor = enabled
	s.record("hardware-cursor", boolString(enabled))
}

// ShowWorkspace implements host.Seat.
func (s *Seat) ShowWorkspace(ws host.Workspace) { s.record("show-workspace", stringer(ws.Name)) }

// SetWorkspace implements host.Seat.
func (s *Seat) SetWorkspace(ws host.Workspace) { s.record("set-workspace", stringer(ws.Name)) }

type stringer string

func (s stringer) String() string { return string(s) }

type boolString bool

func (b boolString) String() string {
	if b {
		return "on"
	}
	return "off"
}

// Connector is an in-memory connector.
type Connector struct {
	name      string
	connected bool
	width     int
	height    int
	x, y      int
	scale     float64
}

// Name implements host.Connector.
func (c *Connector) Name() string { return c.name }

// Connected implements host.Connector.
func (c *Connector) Connected() bool { return c.connected }

// Width implements host.Connector.
func (c *Connector) Width() int { return c.width }

// Height implements host.Connector.
func (c *Connector) Height() int { return c.height }

// Position implements host.Connector.
func (c *Connector) Position() (int, int) { return c.x, c.y }

// SetPosition implements host.Connector.
func (c *Connector) SetPosition(x, y int) { c.x, c.y = x, y }

// Scale implements host.Connector.
func (c *Connector) Scale() float64 { return c.scale }

// SetScale implements host.Connector.
func (c *Connector) SetScale(scale float64) { c.scale = scale }

// InputDevice is an in-memory input device.
type InputDevice struct {
	id   uint32
	name string
	caps []host.Capability

	LeftHanded bool
	Transform  host.TransformMatrix
	TapEnabled bool
	SeatName   string
}

// ID implements host.InputDevice.
func (d *InputDevice) ID() uint32 { return d.id }

// Name implements host.InputDevice.
func (d *InputDevice) Name() string { return d.name }

// HasCapability implements host.InputDevice.
func (d *InputDevice) HasCapability(c host.Capability) bool {
	for _, have := range d.caps {
		if have == c {
			return true
		}
	}
	return false
}

// SetLeftHanded implements host.InputDevice.
func (d *InputDevice) SetLeftHanded(enabled bool) { d.LeftHanded = enabled }

// SetTransformMatrix implements host.InputDevice.
func (d *InputDevice) SetTransformMatrix(m host.TransformMatrix) { d.Transform = m }

// SetTapEnabled implements host.InputDevice.
func (d *InputDevice) SetTapEnabled(enabled bool) { d.TapEnabled = enabled }

// SetSeat implements host.InputDevice.
func (d *InputDevice) SetSeat(s host.Seat) { d.SeatName = s.Name() }

// Timer is an in-memory timer fired explicitly with Host.FireTimer.
type Timer struct {
	name   string
	armed  bool
	onTick []func()

	Initial time.Duration
	Period  time.Duration
	Ticks   int
}

// Name implements host.Timer.
func (t *Timer) Name() string { return t.name }

// Repeated implements host.Timer.
func (t *Timer) Repeated(initial, period time.Duration) {
	t.Initial, t.Period = initial, period
	t.armed = true
}

// OnTick implements host.Timer.
func (t *Timer) OnTick(fn func()) {
	t.onTick = append(t.onTick, fn)
}

// Cancel implements host.Timer.
func (t *Timer) Cancel() {
	t.armed = false
	t.onTick = nil
}

// Armed reports whether the timer is scheduled.
func (t *Timer) Armed() bool { return t.armed }
