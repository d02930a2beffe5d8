// Package geo provides the geographic bounding-box model shared by all
// connectors and the traversal engine. Coordinates are geographic degrees
// (EPSG:4326), ordered [west, south, east, north].
package geo

import (
	"fmt"

	"github.com/lodestar-gis/lodestar/pkg/errors"
)

// BBox is an axis-aligned rectangle in geographic coordinates.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// NewBBox builds a BBox from a [west, south, east, north] slice.
func NewBBox(coords []float64) (BBox, error) {
	if len(coords) < 4 {
		return BBox{}, &errors.ValidationError{
			Field:   "bbox",
			Value:   coords,
			Message: fmt.Sprintf("expected 4 coordinates, got %d", len(coords)),
		}
	}
	b := BBox{West: coords[0], South: coords[1], East: coords[2], North: coords[3]}
	if b.West > b.East || b.South > b.North {
		return BBox{}, &errors.ValidationError{
			Field:   "bbox",
			Value:   coords,
			Message: "west/south must not exceed east/north",
		}
	}
	return b, nil
}

// IsZero reports whether the box is the zero value, used to mean "no
// spatial constraint".
func (b BBox) IsZero() bool {
	return b == BBox{}
}

// Slice returns the box as [west, south, east, north].
func (b BBox) Slice() []float64 {
	return []float64{b.West, b.South, b.East, b.North}
}

// Intersects reports whether two boxes overlap. Edge-touching rectangles
// count as overlapping: the test uses non-strict inequalities.
func (b BBox) Intersects(other BBox) bool {
	return !(other.East < b.West || other.West > b.East ||
		other.North < b.South || other.South > b.North)
}

// Contains reports whether other lies entirely inside b.
func (b BBox) Contains(other BBox) bool {
	return other.West >= b.West && other.East <= b.East &&
		other.South >= b.South && other.North <= b.North
}

// String renders the box in [west, south, east, north] order.
func (b BBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.West, b.South, b.East, b.North)
}
