package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() Polygon {
	return Polygon{Pt(0, 0), Pt(100, 0), Pt(100, 100), Pt(0, 100)}
}

func TestPolygonTest(t *testing.T) {
	poly := square()

	tests := []struct {
		name string
		p    Point
		want int
	}{
		{"inside", Pt(50, 50), 1},
		{"outside", Pt(150, 50), -1},
		{"on edge", Pt(100, 40), 0},
		{"on vertex", Pt(0, 0), 0},
		{"above", Pt(50, -1), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, poly.Test(tt.p))
		})
	}

	assert.True(t, poly.Contains(Pt(100, 100)), "boundary counts as inside")
	assert.Equal(t, -1, Polygon(nil).Test(Pt(0, 0)))
}

func TestImagePoints(t *testing.T) {
	want := []image.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	assert.Equal(t, want, square().ImagePoints())
	assert.Empty(t, Polygon(nil).ImagePoints())
}

func TestPolygonTestConcave(t *testing.T) {
	// U shape opening upwards
	u := Polygon{Pt(0, 0), Pt(30, 0), Pt(30, 70), Pt(70, 70), Pt(70, 0), Pt(100, 0), Pt(100, 100), Pt(0, 100)}

	assert.Equal(t, -1, u.Test(Pt(50, 30)), "inside the notch")
	assert.Equal(t, 1, u.Test(Pt(15, 30)))
	assert.Equal(t, 1, u.Test(Pt(50, 90)))
}

func TestCentroidAndBounds(t *testing.T) {
	poly := Polygon{Pt(10, 20), Pt(30, 20), Pt(30, 60), Pt(10, 60)}
	assert.Equal(t, Pt(20, 40), poly.Centroid())

	lo, hi := poly.Bounds()
	assert.Equal(t, Pt(10, 20), lo)
	assert.Equal(t, Pt(30, 60), hi)
}

func TestParsePolygon(t *testing.T) {
	poly, err := ParsePolygon("10,10|200, 10|200,200|10,200")
	require.NoError(t, err)
	assert.Equal(t, Polygon{Pt(10, 10), Pt(200, 10), Pt(200, 200), Pt(10, 200)}, poly)

	_, err = ParsePolygon("10,10|20,20")
	assert.ErrorIs(t, err, ErrInvalidPolygon)

	_, err = ParsePolygon("10,10|x,20|30,30")
	assert.ErrorIs(t, err, ErrInvalidPolygon)

	_, err = ParsePolygon("")
	assert.ErrorIs(t, err, ErrInvalidPolygon)
}

func TestParsePolygonList(t *testing.T) {
	polys, err := ParsePolygonList("[0,0|10,0|10,10|0,10][20,0|30,0|30,10|20,10]")
	require.NoError(t, err)
	require.Len(t, polys, 2)
	assert.Equal(t, Pt(20, 0), polys[1][0])

	_, err = ParsePolygonList("[0,0|10,0]")
	assert.ErrorIs(t, err, ErrInvalidPolygon)
}

func TestDoorRegions(t *testing.T) {
	door, err := ParseDoorRegions("0,0|100,0")
	require.NoError(t, err)

	assert.Equal(t, Polygon{Pt(0, 0), Pt(100, 0), Pt(100, 50), Pt(0, 50)}, door.Leaving)
	assert.Equal(t, Polygon{Pt(0, -50), Pt(100, -50), Pt(100, 0), Pt(0, 0)}, door.Enter)

	assert.True(t, door.Enter.Contains(Pt(50, -20)))
	assert.False(t, door.Leaving.Contains(Pt(50, -20)))
	assert.True(t, door.Leaving.Contains(Pt(50, 20)))

	_, err = ParseDoorRegions("5,5|5,5")
	assert.ErrorIs(t, err, ErrInvalidPolygon)

	_, err = ParseDoorRegions("0,0|1,1|2,2")
	assert.ErrorIs(t, err, ErrInvalidPolygon)
}
