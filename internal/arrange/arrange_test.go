package arrange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/deskrc/internal/host/memhost"
)

func newArranger(h *memhost.Host) *Arranger {
	return New(h, Options{Left: "HDMI-A-1", Right: "DP-3"}, nil)
}

func position(t *testing.T, h *memhost.Host, name string) [2]int {
	t.Helper()
	c := h.ConnectorByName(name)
	require.NotNil(t, c, name)
	x, y := c.Position()
	return [2]int{x, y}
}

func TestArrange_BothConnected(t *testing.T) {
	h := memhost.New()
	h.Connect("HDMI-A-1", 1920, 1080).SetPosition(500, 500)
	h.Connect("DP-3", 2560, 1440)

	assert.True(t, newArranger(h).Arrange())
	assert.Equal(t, [2]int{0, 0}, position(t, h, "HDMI-A-1"))
	assert.Equal(t, [2]int{1920, 0}, position(t, h, "DP-3"))
}

func TestArrange_OneDisconnected(t *testing.T) {
	h := memhost.New()
	h.Connect("HDMI-A-1", 1920, 1080).SetPosition(10, 20)
	h.AddConnector("DP-3", 2560, 1440).SetPosition(30, 40)

	assert.False(t, newArranger(h).Arrange())
	assert.Equal(t, [2]int{10, 20}, position(t, h, "HDMI-A-1"))
	assert.Equal(t, [2]int{30, 40}, position(t, h, "DP-3"))
}

func TestArrange_MissingConnector(t *testing.T) {
	h := memhost.New()
	h.Connect("HDMI-A-1", 1920, 1080).SetPosition(7, 7)

	assert.NotPanics(t, func() {
		assert.False(t, newArranger(h).Arrange())
	})
	assert.Equal(t, [2]int{7, 7}, position(t, h, "HDMI-A-1"))
}

func TestArrange_Idempotent(t *testing.T) {
	h := memhost.New()
	h.Connect("HDMI-A-1", 1920, 1080)
	h.Connect("DP-3", 2560, 1440)
	a := newArranger(h)

	a.Arrange()
	first := [2][2]int{position(t, h, "HDMI-A-1"), position(t, h, "DP-3")}
	a.Arrange()
	second := [2][2]int{position(t, h, "HDMI-A-1"), position(t, h, "DP-3")}
	assert.Equal(t, first, second)
}

func TestInstall_DefersUntilConnected(t *testing.T) {
	h := memhost.New()
	a := newArranger(h)
	a.Install(h)

	h.Connect("HDMI-A-1", 1280, 1024)
	dp := h.AddConnector("DP-3", 2560, 1440)
	dp.SetPosition(99, 99)
	assert.Equal(t, [2]int{99, 99}, position(t, h, "DP-3"))

	h.Connect("DP-3", 2560, 1440)
	assert.Equal(t, [2]int{1280, 0}, position(t, h, "DP-3"))
}

func TestScaleBy(t *testing.T) {
	h := memhost.New()
	h.Connect("HDMI-A-1", 1920, 1080)
	h.Connect("DP-3", 2560, 1440)
	a := newArranger(h)

	a.ScaleBy(DefaultScaleStep)
	assert.InDelta(t, 1.25, h.ConnectorByName("HDMI-A-1").Scale(), 1e-9)
	assert.Equal(t, [2]int{1920, 0}, position(t, h, "DP-3"))

	a.ScaleBy(-DefaultScaleStep)
	assert.InDelta(t, 1.0, h.ConnectorByName("HDMI-A-1").Scale(), 1e-9)
}

func TestScaleBy_ClampsAtOneStep(t *testing.T) {
	h := memhost.New()
	h.Connect("HDMI-A-1", 1920, 1080)
	a := newArranger(h)

	for i := 0; i < 10; i++ {
		a.ScaleBy(-DefaultScaleStep)
	}
	assert.InDelta(t, DefaultScaleStep, h.ConnectorByName("HDMI-A-1").Scale(), 1e-9)
}

func TestScaleBy_CustomStep(t *testing.T) {
	h := memhost.New()
	h.Connect("HDMI-A-1", 1920, 1080)
	a := New(h, Options{Left: "HDMI-A-1", Right: "DP-3", Step: 0.5}, nil)
	assert.Equal(t, 0.5, a.Step())

	a.ScaleBy(-a.Step())
	assert.InDelta(t, 0.5, h.ConnectorByName("HDMI-A-1").Scale(), 1e-9)

	// A decrement below the floor stops at one step
	a.ScaleBy(-0.4)
	assert.InDelta(t, 0.5, h.ConnectorByName("HDMI-A-1").Scale(), 1e-9)

	a.ScaleBy(0.1)
	assert.InDelta(t, 0.6, h.ConnectorByName("HDMI-A-1").Scale(), 1e-9)
}

func TestScaleBy_MissingConnector(t *testing.T) {
	h := memhost.New()
	assert.NotPanics(t, func() { newArranger(h).ScaleBy(DefaultScaleStep) })
}
