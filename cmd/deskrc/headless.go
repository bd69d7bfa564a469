package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/daemon"
	"github.com/jmylchreest/deskrc/internal/host/memhost"
	"github.com/jmylchreest/deskrc/internal/keymap"
	"github.com/jmylchreest/deskrc/internal/launcher"
	"github.com/jmylchreest/deskrc/internal/status"
	"github.com/jmylchreest/deskrc/internal/tui"
)

// headless is a daemon configured against an in-memory compositor.
type headless struct {
	host   *memhost.Host
	spawn  *launcher.Fake
	daemon *daemon.Daemon
}

// newHeadless configures cfg on a fresh in-memory host. Commands are
// recorded instead of run and nothing is written to the state file.
func newHeadless(cfg *config.Config, metrics status.Metrics, now func() time.Time) (*headless, error) {
	if metrics == nil {
		metrics = &status.StaticMetrics{}
	}
	h := memhost.New()
	h.SetKeymapValidator(keymap.Validate)
	spawn := launcher.NewFake()

	d := daemon.New(cfg, daemon.Deps{
		Launcher:   spawn,
		Metrics:    metrics,
		Now:        now,
		ConfigPath: globalOpts.configPath,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Configure(ctx, h); err != nil {
		return nil, err
	}
	return &headless{host: h, spawn: spawn, daemon: d}, nil
}

// bindingRows lists the active bindings in registration order.
func (s *headless) bindingRows() []tui.BindingRow {
	bindings := s.daemon.Table().Bindings()
	rows := make([]tui.BindingRow, len(bindings))
	for i, b := range bindings {
		rows[i] = tui.BindingRow{Combo: b.Combo.String(), Action: b.Name}
	}
	return rows
}

// seat returns the configured seat.
func (s *headless) seat() *memhost.Seat {
	return s.host.SeatByName(s.daemon.Config().Seat.Name)
}

// outputSpec is a connector hotplug given as NAME=WIDTHxHEIGHT.
type outputSpec struct {
	Name   string
	Width  int
	Height int
}

// parseOutputSpec parses NAME=WIDTHxHEIGHT.
func parseOutputSpec(spec string) (outputSpec, error) {
	name, size, ok := strings.Cut(spec, "=")
	if !ok || name == "" {
		return outputSpec{}, fmt.Errorf("invalid output %q: expected NAME=WIDTHxHEIGHT", spec)
	}
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return outputSpec{}, fmt.Errorf("invalid output %q: expected NAME=WIDTHxHEIGHT", spec)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return outputSpec{}, fmt.Errorf("invalid width in %q", spec)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return outputSpec{}, fmt.Errorf("invalid height in %q", spec)
	}
	return outputSpec{Name: name, Width: width, Height: height}, nil
}

// defaultOutputs connects the configured left and right outputs at common
// laptop and monitor resolutions.
func defaultOutputs(cfg *config.Config) []outputSpec {
	return []outputSpec{
		{Name: cfg.Outputs.Left, Width: 1920, Height: 1080},
		{Name: cfg.Outputs.Right, Width: 2560, Height: 1440},
	}
}

// sortedKeys returns the keys of m in order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
