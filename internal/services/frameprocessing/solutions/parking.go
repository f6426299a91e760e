package solutions

import (
	"fmt"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/geometry"
	"fvgvision-worker-go/internal/models"
)

// Parking is a dwell tracker over several slot polygons. It also records
// which slots are occupied in the current frame.
type Parking struct {
	slots   []geometry.Polygon
	busy    []bool
	tracker *dwellTracker
}

// NewParking builds a parking processor from its configuration.
func NewParking(cfg *config.ParkingScenario, opts ...Option) (*Parking, error) {
	if len(cfg.Polygons) == 0 {
		return nil, fmt.Errorf("parking: %w", geometry.ErrInvalidPolygon)
	}
	for i, p := range cfg.Polygons {
		if len(p) < 3 {
			return nil, fmt.Errorf("parking slot %d: %w", i, geometry.ErrInvalidPolygon)
		}
	}
	o := buildOptions(opts)
	return &Parking{
		slots:   cfg.Polygons,
		busy:    make([]bool, len(cfg.Polygons)),
		tracker: newDwellTracker(cfg.Categories, cfg.DangerLimit, cfg.CoolDown, cfg.TimeLimit, o),
	}, nil
}

// Slots returns the slot outlines.
func (p *Parking) Slots() []geometry.Polygon { return p.slots }

// Busy reports whether slot i was occupied in the last evaluation.
func (p *Parking) Busy(i int) bool {
	return i >= 0 && i < len(p.busy) && p.busy[i]
}

// Evaluate updates dwell state and slot occupancy. An object counts towards
// the first slot that contains it.
func (p *Parking) Evaluate(objects []*models.DetectedObject) (DwellResult, error) {
	for i := range p.busy {
		p.busy[i] = false
	}
	return p.tracker.evaluate(objects, func(pt geometry.Point) int {
		for i, slot := range p.slots {
			if slot.Contains(pt) {
				p.busy[i] = true
				return i
			}
		}
		return -1
	})
}
