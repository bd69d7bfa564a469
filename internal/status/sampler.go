package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmylchreest/deskrc/internal/host"
)

// refreshTimeout bounds a single metrics refresh so a slow /proc read cannot
// hold the dispatch thread.
const refreshTimeout = 500 * time.Millisecond

// Publisher receives the formatted status line.
type Publisher func(text string)

// Options configures a Sampler.
type Options struct {
	Period         time.Duration
	TimeFormat     string
	SeparatorColor string
	// Now returns the current local time. Defaults to time.Now.
	Now func() time.Time
}

// Sampler refreshes metrics and republishes the status line.
type Sampler struct {
	metrics Metrics
	publish Publisher
	logger  *slog.Logger
	opts    Options

	last  string
	timer host.Timer
}

// NewSampler creates a Sampler. Zero option fields take the defaults.
func NewSampler(metrics Metrics, publish Publisher, opts Options, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = DefaultTimeFormat
	}
	if opts.SeparatorColor == "" {
		opts.SeparatorColor = DefaultSeparatorColor
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sampler{
		metrics: metrics,
		publish: publish,
		logger:  logger,
		opts:    opts,
	}
}

// SampleAndPublish refreshes the snapshot, formats it and publishes it.
// A failed refresh is logged and the previous snapshot is used.
func (s *Sampler) SampleAndPublish() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := s.metrics.Refresh(ctx); err != nil {
		s.logger.Warn("failed to refresh metrics", "error", err)
	}

	sample := TakeSample(s.metrics, s.opts.Now(), s.opts.TimeFormat)
	text := Format(sample, s.opts.SeparatorColor)
	s.last = text
	s.publish(text)
}

// Last returns the most recently published line.
func (s *Sampler) Last() string {
	return s.last
}

// Period returns the tick period.
func (s *Sampler) Period() time.Duration {
	return s.opts.Period
}

// Start publishes once immediately, then arms the host timer so that the
// first tick lands on the next wall-clock multiple of the period and later
// ticks follow at a fixed rate.
func (s *Sampler) Start(h host.Host) {
	s.SampleAndPublish()

	initial := DurationUntilMultiple(s.opts.Now(), s.opts.Period)
	s.timer = h.Timer(TimerName)
	s.timer.OnTick(s.SampleAndPublish)
	s.timer.Repeated(initial, s.opts.Period)
	s.logger.Debug("status timer armed", "initial", initial, "period", s.opts.Period)
}

// Stop cancels the timer armed by Start.
func (s *Sampler) Stop() {
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
}
