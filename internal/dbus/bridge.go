package dbus

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/jmylchreest/deskrc/internal/eventloop"
	"github.com/jmylchreest/deskrc/internal/host"
	"github.com/jmylchreest/deskrc/internal/keymap"
	"github.com/jmylchreest/deskrc/internal/keysym"
)

// Bridge is a host.Host whose state is reported by a remote compositor and
// whose mutations are emitted as signals. All methods must run on the loop.
type Bridge struct {
	loop    *eventloop.Loop
	emitter Emitter
	logger  *slog.Logger

	seats      map[string]*seatProxy
	connectors map[string]*connectorProxy
	devices    []*deviceProxy
	timers     map[string]*eventloop.Timer

	keyHandlers        map[string]host.KeyHandler
	newConnector       []func(host.Connector)
	connectorConnected []func(host.Connector)
	newDevice          []func(host.InputDevice)
	graphics           []func()
	idle               []func()

	status   string
	onQuit   func()
	onReload func()
}

var _ host.Host = (*Bridge)(nil)

// NewBridge creates a bridge posting timer ticks to loop and emitting
// signals through emitter.
func NewBridge(loop *eventloop.Loop, emitter Emitter, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		loop:        loop,
		emitter:     emitter,
		logger:      logger,
		seats:       make(map[string]*seatProxy),
		connectors:  make(map[string]*connectorProxy),
		timers:      make(map[string]*eventloop.Timer),
		keyHandlers: make(map[string]host.KeyHandler),
	}
}

// SetQuitHandler sets the function run after the Control("quit") signal.
func (b *Bridge) SetQuitHandler(fn func()) {
	b.onQuit = fn
}

// SetReloadHandler sets the function posted after the Control("reload")
// signal. It runs after the current callback returns.
func (b *Bridge) SetReloadHandler(fn func()) {
	b.onReload = fn
}

// ParseKeymap implements host.Host. Compilation happens in the compositor;
// the bridge only rejects structurally broken text.
func (b *Bridge) ParseKeymap(name, text string) (host.Keymap, error) {
	if err := keymap.Validate(text); err != nil {
		return host.Keymap{}, err
	}
	return host.Keymap{Name: name, Text: text}, nil
}

// Seat implements host.Host.
func (b *Bridge) Seat(name string) host.Seat {
	s, ok := b.seats[name]
	if !ok {
		s = &seatProxy{bridge: b, name: name}
		b.seats[name] = s
	}
	return s
}

// OnKey implements host.Host.
func (b *Bridge) OnKey(seat host.Seat, handler host.KeyHandler) {
	b.keyHandlers[seat.Name()] = handler
}

// Connector implements host.Host.
func (b *Bridge) Connector(name string) (host.Connector, bool) {
	c, ok := b.connectors[name]
	if !ok {
		return nil, false
	}
	return c, true
}

// OnNewConnector implements host.Host.
func (b *Bridge) OnNewConnector(fn func(host.Connector)) {
	b.newConnector = append(b.newConnector, fn)
}

// OnConnectorConnected implements host.Host.
func (b *Bridge) OnConnectorConnected(fn func(host.Connector)) {
	b.connectorConnected = append(b.connectorConnected, fn)
}

// InputDevices implements host.Host.
func (b *Bridge) InputDevices() []host.InputDevice {
	out := make([]host.InputDevice, len(b.devices))
	for i, d := range b.devices {
		out[i] = d
	}
	return out
}

// OnNewInputDevice implements host.Host.
func (b *Bridge) OnNewInputDevice(fn func(host.InputDevice)) {
	b.newDevice = append(b.newDevice, fn)
}

// OnGraphicsInitialized implements host.Host.
func (b *Bridge) OnGraphicsInitialized(fn func()) {
	b.graphics = append(b.graphics, fn)
}

// OnIdle implements host.Host.
func (b *Bridge) OnIdle(fn func()) {
	b.idle = append(b.idle, fn)
}

// Timer implements host.Host. Timers are wall-clock timers on the loop.
func (b *Bridge) Timer(name string) host.Timer {
	t, ok := b.timers[name]
	if !ok {
		t = b.loop.NewTimer(name)
		b.timers[name] = t
	}
	return t
}

// Workspace implements host.Host.
func (b *Bridge) Workspace(name string) host.Workspace {
	return host.Workspace{Name: name}
}

// SetStatus implements host.Host.
func (b *Bridge) SetStatus(text string) {
	b.status = text
	b.EmitStatusChanged(text)
}

// SwitchToVT implements host.Host.
func (b *Bridge) SwitchToVT(n uint32) {
	b.EmitSwitchVT(n)
}

// Quit implements host.Host.
func (b *Bridge) Quit() {
	b.EmitControl(ControlQuit)
	if b.onQuit != nil {
		b.onQuit()
	}
}

// Reload implements host.Host.
func (b *Bridge) Reload() {
	b.EmitControl(ControlReload)
	if b.onReload != nil {
		b.loop.Post(b.onReload)
	}
}

// Reset implements host.Host.
func (b *Bridge) Reset() {
	b.keyHandlers = make(map[string]host.KeyHandler)
	b.newConnector = nil
	b.connectorConnected = nil
	b.newDevice = nil
	b.graphics = nil
	b.idle = nil
	for _, t := range b.timers {
		t.Cancel()
	}
	b.timers = make(map[string]*eventloop.Timer)
}

// Status returns the last published status line.
func (b *Bridge) Status() string {
	return b.status
}

// HandleKey dispatches a key press to the seat handlers in name order and
// reports whether one consumed it.
func (b *Bridge) HandleKey(mods keysym.Modifiers, sym keysym.Sym) bool {
	names := make([]string, 0, len(b.keyHandlers))
	for name := range b.keyHandlers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if b.keyHandlers[name](mods, sym) {
			return true
		}
	}
	return false
}

// HandleConnectorAdded records an enumerated connector.
func (b *Bridge) HandleConnectorAdded(name string, width, height int) {
	c := b.connector(name)
	c.width, c.height = width, height
	for _, fn := range b.newConnector {
		fn(c)
	}
}

// HandleConnectorConnected records a connected monitor, enumerating the
// connector first if needed.
func (b *Bridge) HandleConnectorConnected(name string, width, height int) {
	if _, ok := b.connectors[name]; !ok {
		b.HandleConnectorAdded(name, width, height)
	}
	c := b.connectors[name]
	c.connected = true
	c.width, c.height = width, height
	for _, fn := range b.connectorConnected {
		fn(c)
	}
}

// HandleConnectorDisconnected marks a connector as disconnected.
func (b *Bridge) HandleConnectorDisconnected(name string) {
	if c, ok := b.connectors[name]; ok {
		c.connected = false
	}
}

// HandleInputDeviceAdded records a new device and runs the device hooks.
func (b *Bridge) HandleInputDeviceAdded(id uint32, name string, pointer bool) {
	d := &deviceProxy{bridge: b, id: id, name: name, pointer: pointer}
	b.devices = append(b.devices, d)
	for _, fn := range b.newDevice {
		fn(d)
	}
}

// HandleGraphicsInitialized runs the graphics hooks.
func (b *Bridge) HandleGraphicsInitialized() {
	for _, fn := range b.graphics {
		fn()
	}
}

// HandleIdle runs the idle hooks.
func (b *Bridge) HandleIdle() {
	for _, fn := range b.idle {
		fn()
	}
}

func (b *Bridge) connector(name string) *connectorProxy {
	c, ok := b.connectors[name]
	if !ok {
		c = &connectorProxy{bridge: b, name: name, scale: 1}
		b.connectors[name] = c
	}
	return c
}

// seatProxy forwards seat operations as SeatAction signals.
type seatProxy struct {
	bridge *Bridge
	name   string
}

func (s *seatProxy) action(verb, arg string) { s.bridge.EmitSeatAction(s.name, verb, arg) }

func (s *seatProxy) Name() string                  { return s.name }
func (s *seatProxy) SetKeymap(km host.Keymap)      { s.bridge.EmitKeymap(s.name, km.Text) }
func (s *seatProxy) Focus(dir host.Direction)      { s.action("focus", dir.String()) }
func (s *seatProxy) Move(dir host.Direction)       { s.action("move", dir.String()) }
func (s *seatProxy) CreateSplit(axis host.Axis)    { s.action("split", axis.String()) }
func (s *seatProxy) ToggleSplit()                  { s.action("toggle-split", "") }
func (s *seatProxy) ToggleMono()                   { s.action("toggle-mono", "") }
func (s *seatProxy) ToggleFullscreen()             { s.action("toggle-fullscreen", "") }
func (s *seatProxy) ToggleFloating()               { s.action("toggle-floating", "") }
func (s *seatProxy) FocusParent()                  { s.action("focus-parent", "") }
func (s *seatProxy) Close()                        { s.action("close", "") }
func (s *seatProxy) DisablePointerConstraint()     { s.action("disable-pointer-constraint", "") }
func (s *seatProxy) UseHardwareCursor(enabled bool) {
	s.action("hardware-cursor", strconv.FormatBool(enabled))
}
func (s *seatProxy) ShowWorkspace(ws host.Workspace) { s.action("show-workspace", ws.Name) }
func (s *seatProxy) SetWorkspace(ws host.Workspace)  { s.action("set-workspace", ws.Name) }

// connectorProxy mirrors the compositor's view of a connector.
type connectorProxy struct {
	bridge        *Bridge
	name          string
	connected     bool
	width, height int
	x, y          int
	scale         float64
}

func (c *connectorProxy) Name() string         { return c.name }
func (c *connectorProxy) Connected() bool      { return c.connected }
func (c *connectorProxy) Width() int           { return c.width }
func (c *connectorProxy) Height() int          { return c.height }
func (c *connectorProxy) Position() (int, int) { return c.x, c.y }
func (c *connectorProxy) Scale() float64       { return c.scale }

func (c *connectorProxy) SetPosition(x, y int) {
	c.x, c.y = x, y
	c.bridge.EmitConnectorPosition(c.name, x, y)
}

func (c *connectorProxy) SetScale(scale float64) {
	c.scale = scale
	c.bridge.EmitConnectorScale(c.name, scale)
}

// deviceProxy mirrors an input device and reports configuration changes.
type deviceProxy struct {
	bridge     *Bridge
	id         uint32
	name       string
	pointer    bool
	leftHanded bool
	tap        bool
	seat       string
}

func (d *deviceProxy) ID() uint32   { return d.id }
func (d *deviceProxy) Name() string { return d.name }

func (d *deviceProxy) HasCapability(c host.Capability) bool {
	return c == host.CapPointer && d.pointer
}

func (d *deviceProxy) SetLeftHanded(enabled bool) {
	d.leftHanded = enabled
	d.configured()
}

func (d *deviceProxy) SetTransformMatrix(m host.TransformMatrix) {
	d.bridge.EmitDeviceTransform(d.id, m)
}

func (d *deviceProxy) SetTapEnabled(enabled bool) {
	d.tap = enabled
	d.configured()
}

func (d *deviceProxy) SetSeat(s host.Seat) {
	d.seat = s.Name()
	d.configured()
}

func (d *deviceProxy) configured() {
	d.bridge.EmitDeviceConfigured(d.id, d.leftHanded, d.tap, d.seat)
}
