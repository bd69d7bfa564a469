package eventloop

import (
	"sync"
	"time"

	"github.com/jmylchreest/deskrc/internal/host"
)

// Timer is a wall-clock timer whose ticks are delivered on a Loop.
// It implements host.Timer.
type Timer struct {
	name string
	loop *Loop

	mu     sync.Mutex
	onTick func()
	gen    uint64
	stopCh chan struct{}
}

var _ host.Timer = (*Timer)(nil)

// NewTimer creates an unarmed timer posting its ticks to l.
func (l *Loop) NewTimer(name string) *Timer {
	return &Timer{name: name, loop: l}
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

// OnTick sets the tick callback. It runs on the loop.
func (t *Timer) OnTick(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTick = fn
}

// Repeated arms the timer: the first tick fires after initial, then every
// period at a fixed rate. Re-arming replaces the previous schedule.
func (t *Timer) Repeated(initial, period time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	t.stopCh = make(chan struct{})
	go t.run(t.gen, t.stopCh, initial, period)
}

// Cancel disarms the timer. Ticks already queued on the loop are dropped.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.gen++
}

// Armed reports whether the timer has a live schedule.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopCh != nil
}

func (t *Timer) stopLocked() {
	if t.stopCh != nil {
		close(t.stopCh)
		t.stopCh = nil
	}
}

func (t *Timer) run(gen uint64, stopCh <-chan struct{}, initial, period time.Duration) {
	first := time.NewTimer(initial)
	defer first.Stop()

	select {
	case <-stopCh:
		return
	case <-first.C:
		t.post(gen)
	}

	if period <= 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !t.post(gen) {
				return
			}
		}
	}
}

// post queues one tick for generation gen.
func (t *Timer) post(gen uint64) bool {
	return t.loop.Post(func() {
		t.mu.Lock()
		current := t.gen == gen
		fn := t.onTick
		t.mu.Unlock()

		if current && fn != nil {
			fn()
		}
	})
}
