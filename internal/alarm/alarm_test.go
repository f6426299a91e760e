package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func overLimit(limit int) func(int) bool {
	return func(v int) bool { return v > limit }
}

func TestTimer(t *testing.T) {
	clock := newFakeClock()
	timer := NewTimer(clock.Now)

	assert.False(t, timer.Running())
	assert.Zero(t, timer.Elapsed())

	timer.Start()
	clock.Advance(1500 * time.Millisecond)
	assert.True(t, timer.Running())
	assert.Equal(t, 1500*time.Millisecond, timer.Elapsed())

	assert.Equal(t, 1500*time.Millisecond, timer.Stop())
	assert.False(t, timer.Running())
	assert.Zero(t, timer.Elapsed())
}

func TestMilliseconds(t *testing.T) {
	assert.Equal(t, 12.35, Milliseconds(12345678*time.Nanosecond))
	assert.Equal(t, 0.0, Milliseconds(0))
}

func TestStatusPayload(t *testing.T) {
	assert.Equal(t, 0, Normal.Value())
	assert.Equal(t, 1, WarmUp.Value())
	assert.Equal(t, 3, AlarmWithNotification.Value())
	assert.Equal(t, 4, AlarmAlreadyNotified.Value())

	assert.Equal(t, "NORMAL", Normal.String())
	assert.Equal(t, "ALARM", AlarmAlreadyNotified.String())
	assert.Equal(t, AlarmWithNotification.Color(), AlarmAlreadyNotified.Color())
	assert.NotEqual(t, Normal.Color(), WarmUp.Color())
	assert.True(t, AlarmAlreadyNotified.Alarming())
	assert.False(t, WarmUp.Alarming())
}

func TestAlarmStaysNormalWithoutDanger(t *testing.T) {
	clock := newFakeClock()
	a := New(overLimit(5), 2*time.Second, 10*time.Second, WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		assert.Equal(t, Normal, a.Manage(3))
	}
}

func TestAlarmFullCycle(t *testing.T) {
	clock := newFakeClock()
	a := New(overLimit(5), 2*time.Second, 10*time.Second, WithClock(clock.Now))

	require.Equal(t, WarmUp, a.Manage(7))

	// danger persists, but not beyond the limit yet
	clock.Advance(10 * time.Second)
	assert.Equal(t, WarmUp, a.Manage(7), "limit is strict")

	clock.Advance(time.Millisecond)
	assert.Equal(t, AlarmWithNotification, a.Manage(7))

	// notification is one-shot
	assert.Equal(t, AlarmAlreadyNotified, a.Manage(7))
	assert.Equal(t, AlarmAlreadyNotified, a.Manage(7))

	// quiet: first quiet frame starts the cooldown
	assert.Equal(t, AlarmAlreadyNotified, a.Manage(0))
	clock.Advance(2 * time.Second)
	assert.Equal(t, AlarmAlreadyNotified, a.Manage(0), "cooldown is strict")
	clock.Advance(time.Millisecond)
	assert.Equal(t, Normal, a.Manage(0))
}

func TestAlarmWarmUpCoolsDown(t *testing.T) {
	clock := newFakeClock()
	a := New(overLimit(5), 2*time.Second, 10*time.Second, WithClock(clock.Now))

	require.Equal(t, WarmUp, a.Manage(6))
	clock.Advance(3 * time.Second)
	assert.Equal(t, WarmUp, a.Manage(0))
	clock.Advance(2100 * time.Millisecond)
	assert.Equal(t, Normal, a.Manage(0))
}

func TestAlarmDangerResetsCooldown(t *testing.T) {
	clock := newFakeClock()
	a := New(overLimit(5), 2*time.Second, 10*time.Second, WithClock(clock.Now))

	require.Equal(t, WarmUp, a.Manage(6))
	assert.Equal(t, WarmUp, a.Manage(0)) // cooldown started
	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, WarmUp, a.Manage(6)) // cooldown stopped
	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, WarmUp, a.Manage(0)) // cooldown restarted from zero
	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, WarmUp, a.Manage(0))
	clock.Advance(600 * time.Millisecond)
	assert.Equal(t, Normal, a.Manage(0))
}

func TestAlarmNotificationEmittedOncePerEpisode(t *testing.T) {
	clock := newFakeClock()
	a := New(overLimit(0), time.Second, 3*time.Second, WithClock(clock.Now))

	// 5s of danger: warm-up ends at 3.1s, the alert timer runs out at 6.3s.
	notifications := 0
	for i := 0; i < 50; i++ {
		if a.Manage(1) == AlarmWithNotification {
			notifications++
		}
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 1, notifications)
	require.Equal(t, AlarmAlreadyNotified, a.Status())

	// danger is gone: back to normal after the cooldown, and nothing else
	notifications = 0
	for i := 0; i < 30; i++ {
		if a.Manage(0) == AlarmWithNotification {
			notifications++
		}
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 0, notifications)
	assert.Equal(t, Normal, a.Status())
}

func TestAlarmRearmsUnderContinuousDanger(t *testing.T) {
	clock := newFakeClock()
	a := New(overLimit(0), time.Second, 3*time.Second, WithClock(clock.Now))

	// 10s of continuous danger: notified at 3.1s, alert expires at 6.3s,
	// warm-up restarts at 6.4s and notifies again at 9.5s.
	var at []time.Duration
	for i := 0; i < 100; i++ {
		prev := a.Status()
		got := a.Manage(1)
		if got == AlarmWithNotification {
			at = append(at, time.Duration(i)*100*time.Millisecond)
		}
		if prev == AlarmWithNotification {
			assert.Equal(t, AlarmAlreadyNotified, got)
		}
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, []time.Duration{3100 * time.Millisecond, 9500 * time.Millisecond}, at)
}

func TestAlarmZoneScenarioSequence(t *testing.T) {
	type transition struct {
		At     time.Duration
		Status Status
	}

	clock := newFakeClock()
	a := New(overLimit(5), 2*time.Second, 10*time.Second, WithClock(clock.Now))

	// six people for 11s, then an empty zone, one frame every 100ms
	var got []transition
	prev := a.Status()
	for step := 0; step <= 140; step++ {
		elapsed := time.Duration(step) * 100 * time.Millisecond
		count := 0
		if elapsed < 11*time.Second {
			count = 6
		}
		if s := a.Manage(count); s != prev {
			got = append(got, transition{elapsed, s})
			prev = s
		}
		clock.Advance(100 * time.Millisecond)
	}

	want := []transition{
		{0, WarmUp},
		{10100 * time.Millisecond, AlarmWithNotification},
		{10200 * time.Millisecond, AlarmAlreadyNotified},
		{13100 * time.Millisecond, Normal},
	}
	assert.Equal(t, want, got)
}
