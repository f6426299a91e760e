package solutions

import (
	"fmt"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/geometry"
	"fvgvision-worker-go/internal/models"
)

// Zone tracks how long objects of the configured classes stay inside a
// single polygon and raises an alarm when too many are inside.
type Zone struct {
	polygon geometry.Polygon
	tracker *dwellTracker
}

// NewZone builds a zone processor from its configuration.
func NewZone(cfg *config.ZoneScenario, opts ...Option) (*Zone, error) {
	if len(cfg.Polygon) < 3 {
		return nil, fmt.Errorf("zone: %w", geometry.ErrInvalidPolygon)
	}
	o := buildOptions(opts)
	return &Zone{
		polygon: cfg.Polygon,
		tracker: newDwellTracker(cfg.Categories, cfg.DangerLimit, cfg.CoolDown, cfg.TimeLimit, o),
	}, nil
}

// Polygon returns the zone outline.
func (z *Zone) Polygon() geometry.Polygon { return z.polygon }

// Evaluate updates dwell state with this frame's objects. It sets InZone and
// TimeInZone on every object of a configured class.
func (z *Zone) Evaluate(objects []*models.DetectedObject) (DwellResult, error) {
	return z.tracker.evaluate(objects, func(p geometry.Point) int {
		if z.polygon.Contains(p) {
			return 0
		}
		return -1
	})
}
