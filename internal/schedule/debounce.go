package schedule

import (
	"sync"
	"time"
)

// Debouncer runs only the last of a burst of triggers, once the burst has
// been quiet for the configured delay. Work that already started is not
// cancelled by a later trigger.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending *Task
	stopped bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending.Stop()
	d.pending = After(d.delay, fn)
}

// Stop drops the pending call, if any, and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending.Stop()
	d.pending = nil
}
