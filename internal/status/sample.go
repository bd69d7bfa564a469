package status

import (
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"
)

// Defaults for the status line.
const (
	DefaultTimeFormat     = "%Y-%m-%d %H:%M:%S"
	DefaultSeparatorColor = "#333333"
	DefaultPeriod         = 5 * time.Second
	TimerName             = "status_timer"
)

const bytesPerMB = 1024 * 1024

// Sample is one status reading. It is rebuilt on every tick.
type Sample struct {
	// CPUUsage is the sum of per-core percentages divided by 100: roughly
	// the number of busy cores, not a 0-1 fraction of the machine.
	CPUUsage  float64
	UsedMB    float64
	TotalMB   float64
	Timestamp string
}

// TakeSample builds a Sample from an already refreshed snapshot.
func TakeSample(m Metrics, now time.Time, timeFormat string) Sample {
	var sum float64
	for _, u := range m.CPUUsages() {
		sum += u
	}
	return Sample{
		CPUUsage:  sum / 100.0,
		UsedMB:    float64(m.UsedMemory()) / bytesPerMB,
		TotalMB:   float64(m.TotalMemory()) / bytesPerMB,
		Timestamp: strftime.Format(timeFormat, now),
	}
}

// Format renders the status line. Memory is shown in gigabytes with one
// decimal, CPU five wide with two decimals; fields are joined by a dimmed
// "|" span understood by the host's status renderer.
func Format(s Sample, separatorColor string) string {
	sep := fmt.Sprintf(` <span color="%s">|</span> `, separatorColor)
	return fmt.Sprintf("MEM: %.1f/%.1f%sCPU: %5.2f%s%s",
		s.UsedMB/1024, s.TotalMB/1024,
		sep,
		s.CPUUsage,
		sep,
		s.Timestamp,
	)
}

// ValidateTimeFormat checks that a strftime pattern is understood.
func ValidateTimeFormat(pattern string) error {
	if _, err := strftime.Layout(pattern); err != nil {
		return fmt.Errorf("invalid time format %q: %w", pattern, err)
	}
	return nil
}

// DurationUntilMultiple returns how long until the wall clock is next an
// exact multiple of period (counted from the Unix epoch). It returns 0 when
// now is already on a boundary.
func DurationUntilMultiple(now time.Time, period time.Duration) time.Duration {
	if period <= 0 {
		return 0
	}
	rem := time.Duration(now.UnixNano() % int64(period))
	if rem < 0 {
		rem += period
	}
	if rem == 0 {
		return 0
	}
	return period - rem
}
