// Package alarm implements the hysteresis state machine that turns a noisy
// per-frame measurement into debounced, one-shot notifications.
package alarm

import "time"

const (
	DefaultCoolDown  = 2 * time.Second
	DefaultTimeLimit = 10 * time.Second
)

// Alarm escalates to a notification only after danger has persisted for
// the time limit, and returns to normal only after the cooldown has passed
// without danger. Not safe for concurrent use.
type Alarm struct {
	isDanger  func(int) bool
	coolDown  time.Duration
	timeLimit time.Duration

	status  Status
	warmUp  *Timer
	alert   *Timer
	cooling *Timer
}

// Option configures an Alarm.
type Option func(*Alarm)

// WithClock makes all alarm timers read from clock.
func WithClock(clock Clock) Option {
	return func(a *Alarm) {
		a.warmUp = NewTimer(clock)
		a.alert = NewTimer(clock)
		a.cooling = NewTimer(clock)
	}
}

// New creates an alarm in the Normal state.
func New(isDanger func(int) bool, coolDown, timeLimit time.Duration, opts ...Option) *Alarm {
	a := &Alarm{
		isDanger:  isDanger,
		coolDown:  coolDown,
		timeLimit: timeLimit,
		status:    Normal,
		warmUp:    NewTimer(nil),
		alert:     NewTimer(nil),
		cooling:   NewTimer(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Status returns the current state without advancing the machine.
func (a *Alarm) Status() Status { return a.status }

// Manage advances the state machine with this frame's measurement and
// returns the new state. AlarmWithNotification is held for exactly one call.
func (a *Alarm) Manage(measure int) Status {
	danger := a.isDanger(measure)

	switch a.status {
	case Normal:
		if danger {
			a.warmUp.Start()
			a.status = WarmUp
		}
	case WarmUp:
		a.status = a.handle(danger, a.warmUp, WarmUp, Normal, AlarmWithNotification)
	case AlarmWithNotification:
		a.cooling.Stop()
		a.alert.Start()
		a.status = AlarmAlreadyNotified
	case AlarmAlreadyNotified:
		a.status = a.handle(danger, a.alert, AlarmAlreadyNotified, Normal, Normal)
	}
	return a.status
}

func (a *Alarm) handle(danger bool, timer *Timer, current, previous, next Status) Status {
	if danger {
		a.cooling.Stop()
		if timer.Elapsed() > a.timeLimit {
			timer.Stop()
			return next
		}
		return current
	}

	if !a.cooling.Running() {
		a.cooling.Start()
		return current
	}
	if a.cooling.Elapsed() > a.coolDown {
		a.cooling.Stop()
		return previous
	}
	return current
}
