package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/deskrc/internal/eventloop"
	"github.com/jmylchreest/deskrc/internal/keysym"
)

// callTimeout bounds how long a method call waits for the loop.
const callTimeout = 2 * time.Second

// Server exports the host interface on the session bus. Every call is
// handed to the Bridge on the event loop.
type Server struct {
	conn   *dbus.Conn
	bridge *Bridge
	loop   *eventloop.Loop
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewServer creates a Server for bridge.
func NewServer(bridge *Bridge, loop *eventloop.Loop, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		bridge: bridge,
		loop:   loop,
		logger: logger,
	}
}

// Start connects to the session bus, exports the host object and claims
// the bus name. The bridge emits its signals on the same connection.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, HostPath, HostInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: HostPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    HostInterface,
				Methods: hostMethods(),
				Signals: hostSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), HostPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(HostBusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", HostBusName)
	}

	s.loop.Post(func() { s.bridge.emitter = conn })

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus host server started", "interface", HostInterface, "path", HostPath)
	return nil
}

// Stop releases the bus name.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(HostBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus host server stopped")
	return nil
}

// Connection returns the underlying D-Bus connection.
func (s *Server) Connection() *dbus.Conn {
	return s.conn
}

// call runs fn on the loop and converts loop failures into D-Bus errors.
func (s *Server) call(fn func()) *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := s.loop.Do(ctx, fn); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// post queues fn on the loop without waiting.
func (s *Server) post(fn func()) *dbus.Error {
	if !s.loop.Post(fn) {
		return dbus.MakeFailedError(eventloop.ErrStopped)
	}
	return nil
}

// KeyPress reports a key press and returns whether a binding consumed it.
// D-Bus method: KeyPress(us) -> b
func (s *Server) KeyPress(mods uint32, sym string) (bool, *dbus.Error) {
	parsed, err := keysym.ParseSym(sym)
	if err != nil {
		s.logger.Debug("KeyPress ignored: unknown key", "mods", keysym.Modifiers(mods).String(), "sym", sym, "error", err)
		return false, nil
	}
	var handled bool
	if derr := s.call(func() {
		handled = s.bridge.HandleKey(keysym.Modifiers(mods), parsed)
	}); derr != nil {
		return false, derr
	}
	s.logger.Debug("KeyPress called", "mods", keysym.Modifiers(mods).String(), "sym", sym, "handled", handled)
	return handled, nil
}

// ConnectorAdded reports an enumerated connector.
// D-Bus method: ConnectorAdded(sii)
func (s *Server) ConnectorAdded(name string, width, height int32) *dbus.Error {
	s.logger.Debug("ConnectorAdded called", "name", name, "width", width, "height", height)
	return s.post(func() { s.bridge.HandleConnectorAdded(name, int(width), int(height)) })
}

// ConnectorConnected reports a connected monitor.
// D-Bus method: ConnectorConnected(sii)
func (s *Server) ConnectorConnected(name string, width, height int32) *dbus.Error {
	s.logger.Debug("ConnectorConnected called", "name", name, "width", width, "height", height)
	return s.post(func() { s.bridge.HandleConnectorConnected(name, int(width), int(height)) })
}

// ConnectorDisconnected reports a disconnected monitor.
// D-Bus method: ConnectorDisconnected(s)
func (s *Server) ConnectorDisconnected(name string) *dbus.Error {
	s.logger.Debug("ConnectorDisconnected called", "name", name)
	return s.post(func() { s.bridge.HandleConnectorDisconnected(name) })
}

// InputDeviceAdded reports a new input device.
// D-Bus method: InputDeviceAdded(usb)
func (s *Server) InputDeviceAdded(id uint32, name string, pointer bool) *dbus.Error {
	s.logger.Debug("InputDeviceAdded called", "id", id, "name", name, "pointer", pointer)
	return s.post(func() { s.bridge.HandleInputDeviceAdded(id, name, pointer) })
}

// GraphicsInitialized reports that the compositor can show clients.
// D-Bus method: GraphicsInitialized()
func (s *Server) GraphicsInitialized() *dbus.Error {
	s.logger.Debug("GraphicsInitialized called")
	return s.post(s.bridge.HandleGraphicsInitialized)
}

// Idle reports that the session went idle.
// D-Bus method: Idle()
func (s *Server) Idle() *dbus.Error {
	s.logger.Debug("Idle called")
	return s.post(s.bridge.HandleIdle)
}

// Status returns the last published status line.
// D-Bus method: Status() -> s
func (s *Server) Status() (string, *dbus.Error) {
	var text string
	if derr := s.call(func() { text = s.bridge.Status() }); derr != nil {
		return "", derr
	}
	return text, nil
}

// hostMethods returns the D-Bus method introspection data.
func hostMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "KeyPress",
			Args: []introspect.Arg{
				{Name: "mods", Type: "u", Direction: "in"},
				{Name: "sym", Type: "s", Direction: "in"},
				{Name: "handled", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "ConnectorAdded",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "in"},
				{Name: "width", Type: "i", Direction: "in"},
				{Name: "height", Type: "i", Direction: "in"},
			},
		},
		{
			Name: "ConnectorConnected",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "in"},
				{Name: "width", Type: "i", Direction: "in"},
				{Name: "height", Type: "i", Direction: "in"},
			},
		},
		{
			Name: "ConnectorDisconnected",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "InputDeviceAdded",
			Args: []introspect.Arg{
				{Name: "id", Type: "u", Direction: "in"},
				{Name: "name", Type: "s", Direction: "in"},
				{Name: "pointer", Type: "b", Direction: "in"},
			},
		},
		{Name: "GraphicsInitialized"},
		{Name: "Idle"},
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "status", Type: "s", Direction: "out"},
			},
		},
	}
}

// hostSignals returns the D-Bus signal introspection data.
func hostSignals() []introspect.Signal {
	return []introspect.Signal{
		{Name: SignalStatusChanged, Args: []introspect.Arg{{Name: "status", Type: "s"}}},
		{Name: SignalConnectorPosition, Args: []introspect.Arg{
			{Name: "name", Type: "s"}, {Name: "x", Type: "i"}, {Name: "y", Type: "i"},
		}},
		{Name: SignalConnectorScale, Args: []introspect.Arg{
			{Name: "name", Type: "s"}, {Name: "scale", Type: "d"},
		}},
		{Name: SignalDeviceConfigured, Args: []introspect.Arg{
			{Name: "id", Type: "u"}, {Name: "left_handed", Type: "b"},
			{Name: "tap", Type: "b"}, {Name: "seat", Type: "s"},
		}},
		{Name: SignalDeviceTransform, Args: []introspect.Arg{
			{Name: "id", Type: "u"}, {Name: "matrix", Type: "ad"},
		}},
		{Name: SignalSeatAction, Args: []introspect.Arg{
			{Name: "seat", Type: "s"}, {Name: "action", Type: "s"}, {Name: "arg", Type: "s"},
		}},
		{Name: SignalSwitchVT, Args: []introspect.Arg{{Name: "vt", Type: "u"}}},
		{Name: SignalKeymap, Args: []introspect.Arg{
			{Name: "seat", Type: "s"}, {Name: "keymap", Type: "s"},
		}},
		{Name: SignalControl, Args: []introspect.Arg{{Name: "verb", Type: "s"}}},
	}
}
