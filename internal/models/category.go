package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCategory is returned when a configured category name does not
// match any supported class.
var ErrUnknownCategory = errors.New("unknown category")

// Category is a COCO class id supported by the worker.
type Category int

const (
	CategoryPerson     Category = 0
	CategoryBicycle    Category = 1
	CategoryCar        Category = 2
	CategoryMotorcycle Category = 3
	CategoryBus        Category = 5
	CategoryTruck      Category = 7
)

// Color is a BGR triple as used by OpenCV.
type Color struct {
	B, G, R uint8
}

var categoryLabels = map[Category]string{
	CategoryPerson:     "person",
	CategoryBicycle:    "bicycle",
	CategoryCar:        "car",
	CategoryMotorcycle: "motorcycle",
	CategoryBus:        "bus",
	CategoryTruck:      "truck",
}

var categoryColors = map[Category]Color{
	CategoryPerson:     {209, 209, 0},
	CategoryBicycle:    {47, 139, 237},
	CategoryCar:        {42, 237, 139},
	CategoryMotorcycle: {56, 0, 255},
	CategoryBus:        {169, 10, 150},
	CategoryTruck:      {169, 255, 143},
}

// AllCategories lists the supported classes in id order.
func AllCategories() []Category {
	return []Category{CategoryPerson, CategoryBicycle, CategoryCar, CategoryMotorcycle, CategoryBus, CategoryTruck}
}

// Label returns the class name, or "unknown".
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return "unknown"
}

// Color returns the drawing color of the class. Unknown classes are white.
func (c Category) Color() Color {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return Color{255, 255, 255}
}

// Known reports whether c is a supported class.
func (c Category) Known() bool {
	_, ok := categoryLabels[c]
	return ok
}

func (c Category) String() string { return c.Label() }

// CategorySet is a set of classes.
type CategorySet map[Category]struct{}

// NewCategorySet builds a set from the given classes.
func NewCategorySet(cats ...Category) CategorySet {
	s := make(CategorySet, len(cats))
	for _, c := range cats {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether c is in the set.
func (s CategorySet) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

// IDs returns the class ids in ascending order.
func (s CategorySet) IDs() []int {
	ids := make([]int, 0, len(s))
	for _, c := range AllCategories() {
		if s.Has(c) {
			ids = append(ids, int(c))
		}
	}
	return ids
}

// ParseCategories parses "ALL" or a "|" separated list of class names.
func ParseCategories(value string) (CategorySet, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "ALL") {
		return NewCategorySet(AllCategories()...), nil
	}

	set := CategorySet{}
	for _, name := range strings.Split(value, "|") {
		name = strings.ToLower(strings.TrimSpace(name))
		found := false
		for c, l := range categoryLabels {
			if l == name {
				set[c] = struct{}{}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
		}
	}
	return set, nil
}
