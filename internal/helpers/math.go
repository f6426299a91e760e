package helpers

import (
	"image"
	"math"
)

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

func polar(center image.Point, radius int, degrees float64) image.Point {
	rad := degrees * math.Pi / 180
	return image.Pt(center.X+int(float64(radius)*math.Cos(rad)), center.Y-int(float64(radius)*math.Sin(rad)))
}
