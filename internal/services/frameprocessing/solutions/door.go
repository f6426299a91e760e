package solutions

import (
	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/geometry"
	"fvgvision-worker-go/internal/models"
)

const doorCounterModulo = 1000

// DoorResult reports the crossings of one frame and the running totals.
type DoorResult struct {
	TotalEntering int
	TotalLeaving  int
	Entering      int
	Leaving       int
	PeopleInside  int
}

// Door counts objects crossing a door line. A crossing is an object seen in
// one flanking region on the previous frame and in the other region now.
type Door struct {
	regions    geometry.DoorRegions
	categories models.CategorySet

	prevEntering map[int]struct{}
	prevLeaving  map[int]struct{}

	totalEntering int
	totalLeaving  int
	peopleInside  int
}

// NewDoor builds a door processor from its configuration.
func NewDoor(cfg *config.DoorScenario) *Door {
	return &Door{
		regions:      cfg.Regions,
		categories:   cfg.Categories,
		prevEntering: map[int]struct{}{},
		prevLeaving:  map[int]struct{}{},
	}
}

// Regions returns the door line and its two flanking regions.
func (d *Door) Regions() geometry.DoorRegions { return d.regions }

// Evaluate updates crossing state with this frame's objects and sets the
// DoorEntering and DoorLeaving flags on objects that crossed.
func (d *Door) Evaluate(objects []*models.DetectedObject) (DoorResult, error) {
	if err := checkObjects(objects); err != nil {
		return d.result(0, 0), err
	}

	entering := map[int]struct{}{}
	leaving := map[int]struct{}{}
	var enteredNow, leftNow int

	for _, obj := range objects {
		if !d.categories.Has(obj.Class) {
			continue
		}
		obj.DoorEntering = false
		obj.DoorLeaving = false
		pt := geometry.Pt(obj.GroundPoint())

		switch {
		case d.regions.Enter.Contains(pt):
			entering[obj.ID] = struct{}{}
			if _, ok := d.prevLeaving[obj.ID]; ok {
				delete(d.prevLeaving, obj.ID)
				d.peopleInside++
				d.totalEntering = (d.totalEntering + 1) % doorCounterModulo
				enteredNow++
				obj.DoorEntering = true
			}
		case d.regions.Leaving.Contains(pt):
			leaving[obj.ID] = struct{}{}
			if _, ok := d.prevEntering[obj.ID]; ok {
				delete(d.prevEntering, obj.ID)
				if d.peopleInside > 0 {
					d.peopleInside--
				}
				d.totalLeaving = (d.totalLeaving + 1) % doorCounterModulo
				leftNow++
				obj.DoorLeaving = true
			}
		}
	}

	d.prevEntering = entering
	d.prevLeaving = leaving
	return d.result(enteredNow, leftNow), nil
}

func (d *Door) result(entering, leaving int) DoorResult {
	return DoorResult{
		TotalEntering: d.totalEntering,
		TotalLeaving:  d.totalLeaving,
		Entering:      entering,
		Leaving:       leaving,
		PeopleInside:  d.peopleInside,
	}
}
