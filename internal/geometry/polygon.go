// Package geometry holds the integer plane geometry used by the scenario
// processors: polygons, point membership and door region derivation.
package geometry

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// ErrInvalidPolygon is returned for coordinate strings that do not describe
// a polygon.
var ErrInvalidPolygon = errors.New("invalid polygon")

// Point is a pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Polygon is a closed ring of vertices. The last vertex connects back to
// the first.
type Polygon []Point

// Test reports the position of p relative to the polygon: 1 inside,
// 0 on an edge or vertex, -1 outside.
func (poly Polygon) Test(p Point) int {
	if len(poly) == 0 {
		return -1
	}
	pv := gocv.NewPointVectorFromPoints(poly.ImagePoints())
	defer pv.Close()

	switch d := gocv.PointPolygonTest(pv, image.Pt(p.X, p.Y), false); {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}

// ImagePoints converts the vertices for the OpenCV bindings.
func (poly Polygon) ImagePoints() []image.Point {
	pts := make([]image.Point, len(poly))
	for i, p := range poly {
		pts[i] = image.Pt(p.X, p.Y)
	}
	return pts
}

// Contains reports whether p is inside or on the boundary.
func (poly Polygon) Contains(p Point) bool {
	return poly.Test(p) >= 0
}

// Centroid returns the vertex average, used to place labels and icons.
func (poly Polygon) Centroid() Point {
	if len(poly) == 0 {
		return Point{}
	}
	var sx, sy int
	for _, p := range poly {
		sx += p.X
		sy += p.Y
	}
	return Point{X: sx / len(poly), Y: sy / len(poly)}
}

// Bounds returns the top-left and bottom-right corners of the bounding box.
func (poly Polygon) Bounds() (Point, Point) {
	if len(poly) == 0 {
		return Point{}, Point{}
	}
	lo, hi := poly[0], poly[0]
	for _, p := range poly[1:] {
		lo.X, lo.Y = minInt(lo.X, p.X), minInt(lo.Y, p.Y)
		hi.X, hi.Y = maxInt(hi.X, p.X), maxInt(hi.Y, p.Y)
	}
	return lo, hi
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ParsePoints parses "x,y|x,y|..." into points.
func ParsePoints(value string) ([]Point, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: empty coordinates", ErrInvalidPolygon)
	}
	parts := strings.Split(value, "|")
	points := make([]Point, 0, len(parts))
	for _, part := range parts {
		xy := strings.Split(strings.TrimSpace(part), ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("%w: bad point %q", ErrInvalidPolygon, part)
		}
		x, err := strconv.Atoi(strings.TrimSpace(xy[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: bad x in %q", ErrInvalidPolygon, part)
		}
		y, err := strconv.Atoi(strings.TrimSpace(xy[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: bad y in %q", ErrInvalidPolygon, part)
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points, nil
}

// ParsePolygon parses "x,y|x,y|x,y|..." into a polygon of at least three
// vertices.
func ParsePolygon(value string) (Polygon, error) {
	points, err := ParsePoints(value)
	if err != nil {
		return nil, err
	}
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 points, got %d", ErrInvalidPolygon, len(points))
	}
	return Polygon(points), nil
}

// ParsePolygonList parses "[x,y|...][x,y|...]" into a list of polygons.
func ParsePolygonList(value string) ([]Polygon, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")
	if value == "" {
		return nil, fmt.Errorf("%w: empty polygon list", ErrInvalidPolygon)
	}
	var polys []Polygon
	for i, raw := range strings.Split(value, "][") {
		poly, err := ParsePolygon(raw)
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		polys = append(polys, poly)
	}
	return polys, nil
}
