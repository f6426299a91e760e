package alarm

import (
	"math"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

// Timer measures the elapsed time since Start. A zero Timer uses time.Now.
type Timer struct {
	now     Clock
	started time.Time
	running bool
}

// NewTimer returns a stopped timer reading from clock. A nil clock means
// time.Now.
func NewTimer(clock Clock) *Timer {
	return &Timer{now: clock}
}

func (t *Timer) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

// Start (re)starts the timer.
func (t *Timer) Start() {
	t.started = t.clock()
	t.running = true
}

// Stop returns the elapsed time and resets the timer.
func (t *Timer) Stop() time.Duration {
	d := t.Elapsed()
	t.running = false
	t.started = time.Time{}
	return d
}

// Running reports whether the timer has been started and not stopped.
func (t *Timer) Running() bool { return t.running }

// Elapsed returns the time since Start, or zero when stopped.
func (t *Timer) Elapsed() time.Duration {
	if !t.running {
		return 0
	}
	return t.clock().Sub(t.started)
}

// Milliseconds converts d to milliseconds rounded to two decimals.
func Milliseconds(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}
