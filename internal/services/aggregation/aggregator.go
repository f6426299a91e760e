// Package aggregation accumulates per-frame statistics over a reporting
// window.
package aggregation

import (
	"time"

	"fvgvision-worker-go/internal/models"
)

// Aggregator collects per-frame measurements between two flushes. It is
// owned by the frame processing goroutine; consumers work on a Clone.
type Aggregator struct {
	People       IntMeasure
	Bikes        IntMeasure
	Cars         IntMeasure
	PeopleInZone IntMeasure
	RaisedHands  IntMeasure

	DoorEntered int
	DoorLeft    int

	MinTimeInZone int
	MaxTimeInZone int
	AvgTimeInZone int

	SourceFrameInterval time.Duration

	Acquisition FloatMeasure
	Processing  FloatMeasure
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// MeasureObjects counts people, bicycles and cars in the frame.
func (a *Aggregator) MeasureObjects(objects []*models.DetectedObject) {
	var people, bikes, cars int
	for _, obj := range objects {
		if obj == nil {
			continue
		}
		switch obj.Class {
		case models.CategoryPerson:
			people++
		case models.CategoryBicycle:
			bikes++
		case models.CategoryCar:
			cars++
		}
	}
	a.People.Add(people)
	a.Bikes.Add(bikes)
	a.Cars.Add(cars)
}

// MeasureInZone records the zone occupancy and the latest dwell statistics.
func (a *Aggregator) MeasureInZone(count, minTime, maxTime, avgTime int) {
	a.PeopleInZone.Add(count)
	a.MinTimeInZone = minTime
	a.MaxTimeInZone = maxTime
	a.AvgTimeInZone = avgTime
}

// MeasureDoor accumulates the door crossings of one frame.
func (a *Aggregator) MeasureDoor(entering, leaving int) {
	a.DoorEntered += entering
	a.DoorLeft += leaving
}

func (a *Aggregator) MeasureRaisedHands(count int) { a.RaisedHands.Add(count) }

// MeasureAcquisition records the time spent getting the frame, in ms.
func (a *Aggregator) MeasureAcquisition(ms float64) { a.Acquisition.Add(ms) }

// MeasureProcessing records the time spent processing the frame, in ms.
func (a *Aggregator) MeasureProcessing(ms float64) { a.Processing.Add(ms) }

// AggregationSize is the number of processed frames in the window.
func (a *Aggregator) AggregationSize() int { return a.Processing.Len() }

// Clear empties every series and zeroes the door counters.
func (a *Aggregator) Clear() {
	a.People.Clear()
	a.Bikes.Clear()
	a.Cars.Clear()
	a.PeopleInZone.Clear()
	a.RaisedHands.Clear()
	a.DoorEntered = 0
	a.DoorLeft = 0
	a.MinTimeInZone = 0
	a.MaxTimeInZone = 0
	a.AvgTimeInZone = 0
	a.Acquisition.Clear()
	a.Processing.Clear()
}

// Clone returns a deep copy safe to hand to another goroutine.
func (a *Aggregator) Clone() *Aggregator {
	return &Aggregator{
		People:              a.People.Clone(),
		Bikes:               a.Bikes.Clone(),
		Cars:                a.Cars.Clone(),
		PeopleInZone:        a.PeopleInZone.Clone(),
		RaisedHands:         a.RaisedHands.Clone(),
		DoorEntered:         a.DoorEntered,
		DoorLeft:            a.DoorLeft,
		MinTimeInZone:       a.MinTimeInZone,
		MaxTimeInZone:       a.MaxTimeInZone,
		AvgTimeInZone:       a.AvgTimeInZone,
		SourceFrameInterval: a.SourceFrameInterval,
		Acquisition:         a.Acquisition.Clone(),
		Processing:          a.Processing.Clone(),
	}
}

// Snapshot is the flattened view of a window, shared by notifications,
// benchmark rows and the stats API.
type Snapshot struct {
	Frames int `json:"frames"`

	MaxPeople int `json:"max_people"`
	MinPeople int `json:"min_people"`
	AvgPeople int `json:"avg_people"`
	AvgBikes  int `json:"avg_bikes"`
	MaxCars   int `json:"max_cars"`
	MinCars   int `json:"min_cars"`
	AvgCars   int `json:"avg_cars"`

	MaxPeopleInZone int `json:"max_people_in_zone"`
	MinPeopleInZone int `json:"min_people_in_zone"`
	AvgPeopleInZone int `json:"avg_people_in_zone"`
	MaxTimeInZone   int `json:"max_time_in_zone"`
	MinTimeInZone   int `json:"min_time_in_zone"`
	AvgTimeInZone   int `json:"avg_time_in_zone"`

	RaisedHands int `json:"raised_hands"`
	Entrances   int `json:"sum_entrances"`
	Exits       int `json:"sum_exits"`

	SourceFrameIntervalMs float64 `json:"source_frame_interval_ms"`
	AvgAcquisitionMs      float64 `json:"avg_acquisition_ms"`
	AvgProcessingMs       float64 `json:"avg_processing_ms"`
}

// Snapshot derives the window statistics.
func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		Frames:                a.AggregationSize(),
		MaxPeople:             a.People.Max(),
		MinPeople:             a.People.Min(),
		AvgPeople:             a.People.Average(),
		AvgBikes:              a.Bikes.Average(),
		MaxCars:               a.Cars.Max(),
		MinCars:               a.Cars.Min(),
		AvgCars:               a.Cars.Average(),
		MaxPeopleInZone:       a.PeopleInZone.Max(),
		MinPeopleInZone:       a.PeopleInZone.Min(),
		AvgPeopleInZone:       a.PeopleInZone.Average(),
		MaxTimeInZone:         a.MaxTimeInZone,
		MinTimeInZone:         a.MinTimeInZone,
		AvgTimeInZone:         a.AvgTimeInZone,
		RaisedHands:           a.RaisedHands.Max(),
		Entrances:             a.DoorEntered,
		Exits:                 a.DoorLeft,
		SourceFrameIntervalMs: float64(a.SourceFrameInterval) / float64(time.Millisecond),
		AvgAcquisitionMs:      a.Acquisition.Average(),
		AvgProcessingMs:       a.Processing.Average(),
	}
}
