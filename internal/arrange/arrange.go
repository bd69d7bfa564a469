// Package arrange positions two well-known connectors side by side.
package arrange

import (
	"log/slog"

	"github.com/jmylchreest/deskrc/internal/host"
)

// DefaultScaleStep is the scale change applied by the scale bindings.
const DefaultScaleStep = 64.0 / 256.0

// ConnectorLookup finds connectors by name.
type ConnectorLookup interface {
	Connector(name string) (host.Connector, bool)
}

// Arranger places the right connector directly after the left one.
type Arranger struct {
	lookup ConnectorLookup
	logger *slog.Logger

	left   string
	right  string
	scaled string
	step   float64
}

// Options configures an Arranger.
type Options struct {
	Left  string // Placed at (0, 0)
	Right string // Placed at (left width, 0)
	// Scaled is the connector changed by ScaleBy. Defaults to Left.
	Scaled string
	// Step is the scale increment the scale bindings pass to ScaleBy.
	// ScaleBy never sets a scale below one Step. Defaults to DefaultScaleStep.
	Step float64
}

// New creates an Arranger.
func New(lookup ConnectorLookup, opts Options, logger *slog.Logger) *Arranger {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Scaled == "" {
		opts.Scaled = opts.Left
	}
	if opts.Step <= 0 {
		opts.Step = DefaultScaleStep
	}
	return &Arranger{
		lookup: lookup,
		logger: logger,
		left:   opts.Left,
		right:  opts.Right,
		scaled: opts.Scaled,
		step:   opts.Step,
	}
}

// Arrange sets left to (0, 0) and right to (left width, 0) if and only if
// both connectors exist and are connected. It reports whether positions were
// written. Missing connectors are skipped; the connected hook retries.
func (a *Arranger) Arrange() bool {
	left, ok := a.lookup.Connector(a.left)
	if !ok {
		a.logger.Debug("connector not enumerated, deferring arrangement", "connector", a.left)
		return false
	}
	right, ok := a.lookup.Connector(a.right)
	if !ok {
		a.logger.Debug("connector not enumerated, deferring arrangement", "connector", a.right)
		return false
	}
	if !left.Connected() || !right.Connected() {
		return false
	}

	left.SetPosition(0, 0)
	right.SetPosition(left.Width(), 0)
	a.logger.Debug("arranged outputs", "left", a.left, "right", a.right, "offset", left.Width())
	return true
}

// ScaleBy changes the scale of the scaled connector by delta and re-runs
// Arrange, since the scale can change the neighbour's required offset. The
// result never drops below one step.
func (a *Arranger) ScaleBy(delta float64) {
	c, ok := a.lookup.Connector(a.scaled)
	if !ok {
		a.logger.Debug("connector not enumerated, ignoring scale change", "connector", a.scaled)
		return
	}
	scale := c.Scale() + delta
	if scale < a.step {
		scale = a.step
	}
	c.SetScale(scale)
	a.logger.Info("changed output scale", "connector", a.scaled, "scale", scale)
	a.Arrange()
}

// Step returns the scale increment, which is also the lowest scale
// ScaleBy will set.
func (a *Arranger) Step() float64 {
	return a.step
}

// Install runs Arrange now and again on every new-connector and
// connector-connected event.
func (a *Arranger) Install(h host.Host) {
	h.OnNewConnector(func(host.Connector) { a.Arrange() })
	h.OnConnectorConnected(func(host.Connector) { a.Arrange() })
	a.Arrange()
}
