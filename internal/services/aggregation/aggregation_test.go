package aggregation

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"fvgvision-worker-go/internal/models"
)

func TestIntMeasureEmpty(t *testing.T) {
	var m IntMeasure
	assert.Zero(t, m.Average())
	assert.Zero(t, m.Min())
	assert.Zero(t, m.Max())
	assert.Zero(t, m.Sum())
	assert.Zero(t, m.Last())
	assert.Zero(t, m.Len())
}

func TestIntMeasure(t *testing.T) {
	var m IntMeasure
	for _, v := range []int{3, 1, 4, 1, 5} {
		m.Add(v)
	}
	assert.Equal(t, 14, m.Sum())
	assert.Equal(t, 3, m.Average()) // 2.8
	assert.Equal(t, 1, m.Min())
	assert.Equal(t, 5, m.Max())
	assert.Equal(t, 5, m.Last())
	assert.Equal(t, 5, m.Len())

	var half IntMeasure
	half.Add(2)
	half.Add(3)
	assert.Equal(t, 2, half.Average(), "2.5 rounds to even")
}

func TestFloatMeasure(t *testing.T) {
	var m FloatMeasure
	assert.Zero(t, m.Average())
	assert.Zero(t, m.Min())
	assert.Zero(t, m.Max())

	m.Add(10.123)
	m.Add(20.456)
	m.Add(5)
	assert.InDelta(t, 35.579, m.Sum(), 1e-9)
	assert.Equal(t, 11.86, m.Average())
	assert.Equal(t, 5.0, m.Min())
	assert.Equal(t, 20.456, m.Max())
	assert.Equal(t, 5.0, m.Last())
}

func TestMeasureCloneIsIndependent(t *testing.T) {
	var m IntMeasure
	m.Add(1)
	c := m.Clone()
	m.Clear()
	m.Add(9)
	assert.Equal(t, 1, c.Last())
	assert.Equal(t, 1, c.Len())
}

func TestMeasureObjects(t *testing.T) {
	agg := New()
	agg.MeasureObjects([]*models.DetectedObject{
		{Class: models.CategoryPerson},
		{Class: models.CategoryPerson},
		{Class: models.CategoryCar},
		{Class: models.CategoryTruck},
		nil,
	})
	assert.Equal(t, 2, agg.People.Last())
	assert.Equal(t, 0, agg.Bikes.Last())
	assert.Equal(t, 1, agg.Cars.Last())
}

func TestAggregatorCloneAndClear(t *testing.T) {
	agg := New()
	agg.SourceFrameInterval = 40 * time.Millisecond
	agg.MeasureObjects([]*models.DetectedObject{{Class: models.CategoryPerson}})
	agg.MeasureInZone(2, 1, 7, 4)
	agg.MeasureDoor(1, 0)
	agg.MeasureDoor(2, 1)
	agg.MeasureRaisedHands(1)
	agg.MeasureAcquisition(40)
	agg.MeasureProcessing(12.5)

	snapshot := agg.Clone()
	agg.Clear()

	assert.Equal(t, 1, snapshot.AggregationSize())
	assert.Equal(t, 3, snapshot.DoorEntered)
	assert.Equal(t, 1, snapshot.DoorLeft)
	assert.Equal(t, 1, snapshot.RaisedHands.Len())

	assert.Zero(t, agg.AggregationSize())
	assert.Zero(t, agg.DoorEntered)
	assert.Zero(t, agg.RaisedHands.Len(), "raised hands are cleared too")
	assert.Zero(t, agg.People.Len())
	assert.Equal(t, 40*time.Millisecond, agg.SourceFrameInterval, "declared interval survives a flush")
}

func TestSnapshot(t *testing.T) {
	agg := New()
	agg.SourceFrameInterval = 40 * time.Millisecond
	for _, n := range []int{1, 3} {
		objs := make([]*models.DetectedObject, n)
		for i := range objs {
			objs[i] = &models.DetectedObject{Class: models.CategoryPerson}
		}
		agg.MeasureObjects(objs)
		agg.MeasureProcessing(10)
		agg.MeasureAcquisition(40)
	}
	agg.MeasureInZone(1, 2, 8, 5)
	agg.MeasureDoor(4, 2)

	want := Snapshot{
		Frames:                2,
		MaxPeople:             3,
		MinPeople:             1,
		AvgPeople:             2,
		MaxPeopleInZone:       1,
		MinPeopleInZone:       1,
		AvgPeopleInZone:       1,
		MaxTimeInZone:         8,
		MinTimeInZone:         2,
		AvgTimeInZone:         5,
		Entrances:             4,
		Exits:                 2,
		SourceFrameIntervalMs: 40,
		AvgAcquisitionMs:      40,
		AvgProcessingMs:       10,
	}
	if diff := cmp.Diff(want, agg.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}
