package notification

import (
	"time"

	"github.com/google/uuid"

	"fvgvision-worker-go/internal/services/aggregation"
)

const (
	dateFormat = "2006-01-02 15:04:05.000"

	messageTypeMessage = "MESSAGE"
	messageTypeAlert   = "ALERT"

	intervalWrap = 1_000_000
)

// Alert ids and types.
const (
	AlertPeopleInZone = 1
	AlertRaisedHand   = 2

	alertTypePeopleInZone = "people in zone"
	alertTypeRaisedHand   = "raised hand"
)

// Message is the periodic statistics notification.
type Message struct {
	MessageType   string `json:"message_type"`
	MessageID     string `json:"message_id"`
	IntervalID    int    `json:"interval_id"`
	IntervalStart string `json:"interval_start"`
	IntervalEnd   string `json:"interval_end"`

	AvgPeopleDown int `json:"avg_people_down"`

	MaxPeople int `json:"max_people"`
	MinPeople int `json:"min_people"`
	AvgPeople int `json:"avg_people"`

	AvgBikes int `json:"avg_bikes"`

	MaxCars int `json:"max_cars"`
	MinCars int `json:"min_cars"`
	AvgCars int `json:"avg_cars"`

	MaxPeopleInZone int `json:"max_people_in_zone"`
	MinPeopleInZone int `json:"min_people_in_zone"`
	AvgPeopleInZone int `json:"avg_people_in_zone"`

	MaxTimeInZone int `json:"max_time_in_zone"`
	MinTimeInZone int `json:"min_time_in_zone"`
	AvgTimeInZone int `json:"avg_time_in_zone"`

	SumEntrances int `json:"sum_entrances"`
	SumExits     int `json:"sum_exits"`

	DeviceID string `json:"device_id"`
	CameraID string `json:"camera_id"`
	ModelID  string `json:"model_id"`
}

// Alert is sent once per alarm that reaches the notification state.
type Alert struct {
	MessageType string `json:"message_type"`
	MessageID   string `json:"message_id"`
	AlertID     int    `json:"alert_id"`
	AlertType   string `json:"alert_type"`
	DeviceID    string `json:"device_id"`
	Time        string `json:"time"`
}

func (c *Client) buildMessage(intervalID int, start, end time.Time, s aggregation.Snapshot) Message {
	return Message{
		MessageType:     messageTypeMessage,
		MessageID:       uuid.NewString(),
		IntervalID:      intervalID,
		IntervalStart:   start.Format(dateFormat),
		IntervalEnd:     end.Format(dateFormat),
		MaxPeople:       s.MaxPeople,
		MinPeople:       s.MinPeople,
		AvgPeople:       s.AvgPeople,
		AvgBikes:        s.AvgBikes,
		MaxCars:         s.MaxCars,
		MinCars:         s.MinCars,
		AvgCars:         s.AvgCars,
		MaxPeopleInZone: s.MaxPeopleInZone,
		MinPeopleInZone: s.MinPeopleInZone,
		AvgPeopleInZone: s.AvgPeopleInZone,
		MaxTimeInZone:   s.MaxTimeInZone,
		MinTimeInZone:   s.MinTimeInZone,
		AvgTimeInZone:   s.AvgTimeInZone,
		SumEntrances:    s.Entrances,
		SumExits:        s.Exits,
		DeviceID:        c.deviceID,
		CameraID:        c.cameraID,
		ModelID:         c.modelID,
	}
}

func (c *Client) buildAlert(id int, alertType string, now time.Time) Alert {
	return Alert{
		MessageType: messageTypeAlert,
		MessageID:   uuid.NewString(),
		AlertID:     id,
		AlertType:   alertType,
		DeviceID:    c.deviceID,
		Time:        now.Format(dateFormat),
	}
}
