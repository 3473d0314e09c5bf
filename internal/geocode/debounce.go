package geocode

import (
	"sync"
	"time"
)

// DefaultDebounce is how long a search query must sit unchanged before it is
// sent upstream.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer coalesces rapid calls into one: each Call resets the timer, and
// only the last function runs once the delay elapses without another call.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Call schedules fn, cancelling any previously scheduled call.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
