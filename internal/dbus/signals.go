package dbus

import (
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Signal member names on HostInterface.
const (
	SignalStatusChanged     = "StatusChanged"
	SignalConnectorPosition = "ConnectorPosition"
	SignalConnectorScale    = "ConnectorScale"
	SignalDeviceConfigured  = "DeviceConfigured"
	SignalDeviceTransform   = "DeviceTransform"
	SignalSeatAction        = "SeatAction"
	SignalSwitchVT          = "SwitchVT"
	SignalKeymap            = "Keymap"
	SignalControl           = "Control"
)

// Emitter sends signals. *dbus.Conn satisfies it.
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// RecordingEmitter keeps emitted host signals in memory.
type RecordingEmitter struct {
	mu      sync.Mutex
	signals []Signal
}

// Emit implements Emitter.
func (r *RecordingEmitter) Emit(path dbus.ObjectPath, name string, values ...any) error {
	if path != HostPath {
		return fmt.Errorf("unexpected object path %s", path)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, Signal{
		Name: strings.TrimPrefix(name, HostInterface+"."),
		Body: values,
	})
	return nil
}

// Signals returns every recorded signal in emission order.
func (r *RecordingEmitter) Signals() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Signal(nil), r.signals...)
}

// Named returns the recorded signals with the given member name.
func (r *RecordingEmitter) Named(name string) []Signal {
	var out []Signal
	for _, s := range r.Signals() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// emit sends a host signal, logging failures.
func (b *Bridge) emit(member string, values ...any) {
	if b.emitter == nil {
		b.logger.Debug("signal dropped: not connected", "signal", member)
		return
	}
	if err := b.emitter.Emit(HostPath, HostInterface+"."+member, values...); err != nil {
		b.logger.Warn("failed to emit signal", "signal", member, "error", err)
		return
	}
	b.logger.Debug("emitted signal", "signal", member)
}

// EmitStatusChanged emits the StatusChanged signal.
func (b *Bridge) EmitStatusChanged(text string) {
	b.emit(SignalStatusChanged, text)
}

// EmitConnectorPosition emits the ConnectorPosition signal.
func (b *Bridge) EmitConnectorPosition(name string, x, y int) {
	b.emit(SignalConnectorPosition, name, int32(x), int32(y))
}

// EmitConnectorScale emits the ConnectorScale signal.
func (b *Bridge) EmitConnectorScale(name string, scale float64) {
	b.emit(SignalConnectorScale, name, scale)
}

// EmitDeviceConfigured emits the DeviceConfigured signal.
func (b *Bridge) EmitDeviceConfigured(id uint32, leftHanded, tap bool, seat string) {
	b.emit(SignalDeviceConfigured, id, leftHanded, tap, seat)
}

// EmitDeviceTransform emits the DeviceTransform signal with the matrix in
// row-major order.
func (b *Bridge) EmitDeviceTransform(id uint32, m [2][2]float64) {
	b.emit(SignalDeviceTransform, id, []float64{m[0][0], m[0][1], m[1][0], m[1][1]})
}

// EmitSeatAction emits the SeatAction signal.
func (b *Bridge) EmitSeatAction(seat, action, arg string) {
	b.emit(SignalSeatAction, seat, action, arg)
}

// EmitSwitchVT emits the SwitchVT signal.
func (b *Bridge) EmitSwitchVT(n uint32) {
	b.emit(SignalSwitchVT, n)
}

// EmitKeymap emits the Keymap signal carrying the keymap source.
func (b *Bridge) EmitKeymap(seat, text string) {
	b.emit(SignalKeymap, seat, text)
}

// EmitControl emits the Control signal.
func (b *Bridge) EmitControl(verb string) {
	b.emit(SignalControl, verb)
}
