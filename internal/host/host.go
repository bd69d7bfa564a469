// Package host declares the compositor capabilities deskrc orchestrates.
//
// The compositor owns input devices, connectors, seats, timers and process
// execution. deskrc only consumes these interfaces; concrete hosts live in
// sub-packages (memhost) or bridge to a running compositor (internal/dbus).
// Every callback registered through a Host is invoked on the host's single
// dispatch thread.
package host

import (
	"time"

	"github.com/jmylchreest/deskrc/internal/keysym"
)

// Direction is a focus/move direction.
type Direction int

const (
	Left Direction = iota
	Down
	Up
	Right
)

// Directions lists all directions in h/j/k/l order.
var Directions = []Direction{Left, Down, Up, Right}

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Down:
		return "down"
	case Up:
		return "up"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Axis is a split orientation.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// String returns the axis name.
func (a Axis) String() string {
	if a == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Capability is an input device capability.
type Capability int

const (
	CapKeyboard Capability = iota
	CapPointer
	CapTouch
	CapTabletTool
	CapTabletPad
	CapGesture
	CapSwitch
)

// TransformMatrix is a 2x2 pointer acceleration transform.
type TransformMatrix [2][2]float64

// Keymap is a keymap accepted by the host's keymap compiler.
type Keymap struct {
	Name string
	Text string
}

// Workspace is a named logical desktop.
type Workspace struct {
	Name string
}

// Seat is an input-focus grouping (keyboard + pointer).
type Seat interface {
	Name() string
	SetKeymap(km Keymap)
	Focus(dir Direction)
	Move(dir Direction)
	CreateSplit(axis Axis)
	ToggleSplit()
	ToggleMono()
	ToggleFullscreen()
	ToggleFloating()
	FocusParent()
	Close()
	DisablePointerConstraint()
	UseHardwareCursor(enabled bool)
	ShowWorkspace(ws Workspace)
	SetWorkspace(ws Workspace)
}

// Connector is a display output port.
type Connector interface {
	Name() string
	Connected() bool
	Width() int
	Height() int
	Position() (x, y int)
	SetPosition(x, y int)
	Scale() float64
	SetScale(scale float64)
}

// InputDevice is an attached input device.
type InputDevice interface {
	ID() uint32
	Name() string
	HasCapability(c Capability) bool
	SetLeftHanded(enabled bool)
	SetTransformMatrix(m TransformMatrix)
	SetTapEnabled(enabled bool)
	SetSeat(s Seat)
}

// Timer is a named recurring schedule owned by the host.
type Timer interface {
	Name() string
	// Repeated arms the timer: first tick after initial, then every period.
	Repeated(initial, period time.Duration)
	OnTick(fn func())
	Cancel()
}

// KeyHandler receives key presses for a seat. It reports whether the press
// was consumed.
type KeyHandler func(mods keysym.Modifiers, sym keysym.Sym) bool

// Host is the compositor runtime.
type Host interface {
	// ParseKeymap compiles keymap source text. Invalid input is an error.
	ParseKeymap(name, text string) (Keymap, error)
	Seat(name string) Seat
	// OnKey installs the key handler of a seat.
	OnKey(seat Seat, handler KeyHandler)

	// Connector looks up a connector by name; ok is false if the host has
	// not enumerated it yet.
	Connector(name string) (c Connector, ok bool)
	OnNewConnector(fn func(Connector))
	OnConnectorConnected(fn func(Connector))

	InputDevices() []InputDevice
	OnNewInputDevice(fn func(InputDevice))

	OnGraphicsInitialized(fn func())
	OnIdle(fn func())

	Timer(name string) Timer
	Workspace(name string) Workspace
	SetStatus(text string)
	SwitchToVT(n uint32)
	Quit()
	Reload()

	// Reset drops every callback and cancels every timer registered so far.
	// It is called before a configuration generation is replaced.
	Reset()
}
