package aggregation

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// IntMeasure is an append-only series of integer samples. Every derived
// value of an empty series is zero.
type IntMeasure struct {
	values []int
}

func (m *IntMeasure) Add(v int) { m.values = append(m.values, v) }
func (m *IntMeasure) Clear()    { m.values = m.values[:0] }
func (m *IntMeasure) Len() int  { return len(m.values) }

func (m *IntMeasure) Sum() int {
	total := 0
	for _, v := range m.values {
		total += v
	}
	return total
}

// Average rounds half to even.
func (m *IntMeasure) Average() int {
	if len(m.values) == 0 {
		return 0
	}
	return int(math.RoundToEven(float64(m.Sum()) / float64(len(m.values))))
}

func (m *IntMeasure) Min() int {
	if len(m.values) == 0 {
		return 0
	}
	out := m.values[0]
	for _, v := range m.values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

func (m *IntMeasure) Max() int {
	if len(m.values) == 0 {
		return 0
	}
	out := m.values[0]
	for _, v := range m.values[1:] {
		if v > out {
			out = v
		}
	}
	return out
}

func (m *IntMeasure) Last() int {
	if len(m.values) == 0 {
		return 0
	}
	return m.values[len(m.values)-1]
}

// Clone returns an independent copy.
func (m *IntMeasure) Clone() IntMeasure {
	return IntMeasure{values: append([]int(nil), m.values...)}
}

// FloatMeasure is an append-only series of float samples, typically
// milliseconds.
type FloatMeasure struct {
	values []float64
}

func (m *FloatMeasure) Add(v float64) { m.values = append(m.values, v) }
func (m *FloatMeasure) Clear()        { m.values = m.values[:0] }
func (m *FloatMeasure) Len() int      { return len(m.values) }

func (m *FloatMeasure) Sum() float64 {
	return floats.Sum(m.values)
}

// Average is rounded to two decimals.
func (m *FloatMeasure) Average() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return round2(m.Sum() / float64(len(m.values)))
}

func (m *FloatMeasure) Min() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return floats.Min(m.values)
}

func (m *FloatMeasure) Max() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return floats.Max(m.values)
}

func (m *FloatMeasure) Last() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return m.values[len(m.values)-1]
}

// Clone returns an independent copy.
func (m *FloatMeasure) Clone() FloatMeasure {
	return FloatMeasure{values: append([]float64(nil), m.values...)}
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
