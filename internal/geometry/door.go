package geometry

import (
	"fmt"
	"math"
)

// DoorRegions are the two quadrilaterals flanking a door line.
type DoorRegions struct {
	Line    [2]Point
	Enter   Polygon
	Leaving Polygon
}

// NewDoorRegions derives the enter and leaving regions from the door line
// A-B. Each region extends half the line length to one side of the line.
func NewDoorRegions(a, b Point) (DoorRegions, error) {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return DoorRegions{}, fmt.Errorf("%w: door line has zero length", ErrInvalidPolygon)
	}
	length := norm / 2
	sx, sy := -dy/norm, dx/norm

	offset := func(p Point, sign float64) Point {
		return Point{
			X: int(float64(p.X) + sign*sx*length),
			Y: int(float64(p.Y) + sign*sy*length),
		}
	}
	c := offset(b, 1)
	d := offset(b, -1)
	e := offset(a, 1)
	f := offset(a, -1)

	return DoorRegions{
		Line:    [2]Point{a, b},
		Leaving: Polygon{a, b, c, e},
		Enter:   Polygon{f, d, b, a},
	}, nil
}

// ParseDoorRegions parses "ax,ay|bx,by" and derives the door regions.
func ParseDoorRegions(value string) (DoorRegions, error) {
	points, err := ParsePoints(value)
	if err != nil {
		return DoorRegions{}, err
	}
	if len(points) != 2 {
		return DoorRegions{}, fmt.Errorf("%w: door needs 2 points, got %d", ErrInvalidPolygon, len(points))
	}
	return NewDoorRegions(points[0], points[1])
}
