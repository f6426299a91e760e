// Package solutions implements the stateful per-frame scenario processors:
// dwell zones, parking slots, door crossings and raised hands.
package solutions

import (
	"errors"
	"math"
	"time"

	"fvgvision-worker-go/internal/alarm"
	"fvgvision-worker-go/internal/geometry"
	"fvgvision-worker-go/internal/models"
)

// ErrNilObject is returned when the object list contains a nil entry.
var ErrNilObject = errors.New("nil detected object")

// initialMinTime is reported as the minimum while every object in the
// region has just entered.
const initialMinTime = 1_000_000

// Option configures a scenario processor.
type Option func(*options)

type options struct {
	clock alarm.Clock
}

// WithClock makes the processor and its alarm read time from clock.
func WithClock(clock alarm.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DwellResult summarizes one dwell evaluation. Times are whole seconds.
type DwellResult struct {
	Status  alarm.Status
	Count   int
	MinTime int
	MaxTime int
	AvgTime int
}

// dwellTracker remembers when each tracked object entered its region and
// derives per-object dwell times from it.
type dwellTracker struct {
	categories models.CategorySet
	timer      *alarm.Timer
	entered    map[int]time.Duration
	alarm      *alarm.Alarm
}

func newDwellTracker(categories models.CategorySet, dangerLimit int, coolDown, timeLimit time.Duration, o options) *dwellTracker {
	isDanger := func(n int) bool { return n > dangerLimit }
	t := &dwellTracker{
		categories: categories,
		timer:      alarm.NewTimer(o.clock),
		entered:    make(map[int]time.Duration),
		alarm:      alarm.New(isDanger, coolDown, timeLimit, alarm.WithClock(o.clock)),
	}
	t.timer.Start()
	return t
}

// evaluate runs one dwell pass. match returns the index of the region
// containing the point, or -1.
func (d *dwellTracker) evaluate(objects []*models.DetectedObject, match func(geometry.Point) int) (DwellResult, error) {
	if err := checkObjects(objects); err != nil {
		return DwellResult{Status: d.alarm.Status()}, err
	}

	now := d.timer.Elapsed()
	seen := make(map[int]struct{}, len(objects))

	var count, total int
	minTime, maxTime := initialMinTime, 0
	for _, obj := range objects {
		if !d.categories.Has(obj.Class) {
			continue
		}
		seen[obj.ID] = struct{}{}

		if match(geometry.Pt(obj.GroundPoint())) < 0 {
			obj.InZone = false
			obj.TimeInZone = 0
			delete(d.entered, obj.ID)
			continue
		}

		obj.InZone = true
		count++
		start, ok := d.entered[obj.ID]
		if !ok {
			start = now
			d.entered[obj.ID] = start
		}
		obj.TimeInZone = roundSeconds(now - start)

		if obj.TimeInZone > 0 {
			total += obj.TimeInZone
			if obj.TimeInZone > maxTime {
				maxTime = obj.TimeInZone
			}
			if obj.TimeInZone < minTime {
				minTime = obj.TimeInZone
			}
		}
	}

	for id := range d.entered {
		if _, ok := seen[id]; !ok {
			delete(d.entered, id)
		}
	}

	res := DwellResult{Count: count}
	if count > 0 {
		res.MaxTime = maxTime
		res.AvgTime = roundEven(float64(total) / float64(count))
		res.MinTime = minTime
	}
	res.Status = d.alarm.Manage(count)
	return res, nil
}

// tracked returns the number of objects with a recorded entry time.
func (d *dwellTracker) tracked() int { return len(d.entered) }

func checkObjects(objects []*models.DetectedObject) error {
	for _, obj := range objects {
		if obj == nil {
			return ErrNilObject
		}
	}
	return nil
}

func roundSeconds(d time.Duration) int {
	return roundEven(d.Seconds())
}

func roundEven(v float64) int {
	return int(math.RoundToEven(v))
}
