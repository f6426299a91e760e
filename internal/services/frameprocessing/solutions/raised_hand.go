package solutions

import (
	"math"

	"fvgvision-worker-go/internal/alarm"
	"fvgvision-worker-go/internal/models"
)

const raisedArmTolerance = 30

// HandResult reports how many people have a raised hand in this frame.
type HandResult struct {
	Status alarm.Status
	Count  int
}

// RaisedHand flags people holding a forearm close to vertical with the
// wrist above the head.
type RaisedHand struct {
	alarm *alarm.Alarm
}

// NewRaisedHand builds a raised hand processor with the default alarm
// timings.
func NewRaisedHand(opts ...Option) *RaisedHand {
	o := buildOptions(opts)
	return &RaisedHand{
		alarm: alarm.New(func(n int) bool { return n > 0 }, alarm.DefaultCoolDown, alarm.DefaultTimeLimit, alarm.WithClock(o.clock)),
	}
}

// Evaluate sets RaisedHands on each person and feeds the count to the alarm.
func (r *RaisedHand) Evaluate(objects []*models.DetectedObject) (HandResult, error) {
	if err := checkObjects(objects); err != nil {
		return HandResult{Status: r.alarm.Status()}, err
	}

	count := 0
	for _, obj := range objects {
		if obj.Class != models.CategoryPerson {
			continue
		}
		obj.RaisedHands = hasRaisedHand(obj)
		if obj.RaisedHands {
			count++
		}
	}
	return HandResult{Status: r.alarm.Manage(count), Count: count}, nil
}

func hasRaisedHand(obj *models.DetectedObject) bool {
	// the last visible head landmark wins
	var refX, refY int
	for _, k := range []int{models.KeypointNose, models.KeypointLeftEye, models.KeypointRightEye, models.KeypointLeftEar, models.KeypointRightEar} {
		if x, y := obj.KeypointPx(k); x != 0 || y != 0 {
			refX, refY = x, y
		}
	}
	if refX == 0 {
		return false
	}

	arms := [][2]int{
		{models.KeypointLeftElbow, models.KeypointLeftWrist},
		{models.KeypointRightElbow, models.KeypointRightWrist},
	}
	for _, arm := range arms {
		ex, ey := obj.KeypointPx(arm[0])
		wx, wy := obj.KeypointPx(arm[1])
		if ex == 0 || ey == 0 || wx == 0 || wy == 0 {
			continue
		}
		angle := int(math.RoundToEven(math.Atan2(float64(wy-ey), float64(wx-ex)) * 180 / math.Pi))
		if abs(-90-angle) <= raisedArmTolerance && wy < refY {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
