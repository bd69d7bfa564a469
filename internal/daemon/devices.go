package daemon

import (
	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/host"
)

// installDevices applies the device settings to every attached device and
// to each device attached later.
func (d *Daemon) installDevices(cfg *config.Config) {
	transform, err := cfg.PointerTransform()
	if err != nil {
		// Validated in prepare.
		transform = [2][2]float64{{config.DefaultPointerScale, 0}, {0, config.DefaultPointerScale}}
	}
	apply := deviceHandler(d, cfg.Input, host.TransformMatrix(transform))

	for _, dev := range d.host.InputDevices() {
		apply(dev)
	}
	d.host.OnNewInputDevice(apply)
}

// deviceHandler returns the per-device configuration callback.
func deviceHandler(d *Daemon, in config.InputConfig, transform host.TransformMatrix) func(host.InputDevice) {
	seat := d.seat
	return func(dev host.InputDevice) {
		pointer := dev.HasCapability(host.CapPointer)
		if pointer {
			dev.SetLeftHanded(in.LeftHanded)
			dev.SetTransformMatrix(transform)
		}
		dev.SetTapEnabled(in.TapEnabled)
		dev.SetSeat(seat)
		d.logger.Debug("configured input device", "id", dev.ID(), "name", dev.Name(), "pointer", pointer)
	}
}
