package status

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics is a refreshable snapshot of system resource usage.
type Metrics interface {
	// Refresh updates the snapshot.
	Refresh(ctx context.Context) error
	// CPUUsages returns per-core usage percentages (0-100 each).
	CPUUsages() []float64
	// UsedMemory returns used memory in bytes.
	UsedMemory() uint64
	// TotalMemory returns total memory in bytes.
	TotalMemory() uint64
}

// SystemMetrics reads per-core CPU usage and memory totals from the OS.
// Nothing else (disks, processes, network) is refreshed.
type SystemMetrics struct {
	perCore []float64
	used    uint64
	total   uint64
}

// NewSystemMetrics creates a SystemMetrics with an empty snapshot.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{}
}

// Refresh implements Metrics. Per-core CPU usage is measured since the
// previous call; the first call measures from the baseline gopsutil records
// when its cpu package is initialised.
func (m *SystemMetrics) Refresh(ctx context.Context) error {
	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return fmt.Errorf("failed to read cpu usage: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to read memory usage: %w", err)
	}
	m.perCore = perCore
	m.used = vm.Used
	m.total = vm.Total
	return nil
}

// CPUUsages implements Metrics.
func (m *SystemMetrics) CPUUsages() []float64 { return m.perCore }

// UsedMemory implements Metrics.
func (m *SystemMetrics) UsedMemory() uint64 { return m.used }

// TotalMemory implements Metrics.
func (m *SystemMetrics) TotalMemory() uint64 { return m.total }

// StaticMetrics is a fixed snapshot, used for previews and tests.
type StaticMetrics struct {
	PerCore []float64
	Used    uint64
	Total   uint64
	Err     error

	Refreshes int
}

// Refresh implements Metrics.
func (m *StaticMetrics) Refresh(context.Context) error {
	m.Refreshes++
	return m.Err
}

// CPUUsages implements Metrics.
func (m *StaticMetrics) CPUUsages() []float64 { return m.PerCore }

// UsedMemory implements Metrics.
func (m *StaticMetrics) UsedMemory() uint64 { return m.Used }

// TotalMemory implements Metrics.
func (m *StaticMetrics) TotalMemory() uint64 { return m.Total }
