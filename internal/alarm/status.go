package alarm

import "fvgvision-worker-go/internal/models"

// Status is the state of an alarm.
type Status int

const (
	Normal                Status = 0
	WarmUp                Status = 1
	AlarmWithNotification Status = 3
	AlarmAlreadyNotified  Status = 4
)

// Value returns the numeric code reported downstream.
func (s Status) Value() int { return int(s) }

// Color returns the BGR color used when drawing the status.
func (s Status) Color() models.Color {
	switch s {
	case WarmUp:
		return models.Color{B: 0, G: 255, R: 255}
	case AlarmWithNotification, AlarmAlreadyNotified:
		return models.Color{B: 0, G: 0, R: 255}
	default:
		return models.Color{B: 255, G: 255, R: 255}
	}
}

func (s Status) String() string {
	switch s {
	case Normal:
		return "NORMAL"
	case WarmUp:
		return "WARMUP"
	case AlarmWithNotification:
		return "ALARM_WITH_NOTIFICATION"
	case AlarmAlreadyNotified:
		return "ALARM"
	default:
		return "UNKNOWN"
	}
}

// Alarming reports whether the status is one of the alarm states.
func (s Status) Alarming() bool {
	return s == AlarmWithNotification || s == AlarmAlreadyNotified
}
