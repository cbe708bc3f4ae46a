package trace

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNotFound is returned when a timestamp has no snapshot.
	ErrNotFound = errors.New("trace: snapshot not found")
	// ErrInvalidTrace is returned by pre-flight validation and by builders
	// rejecting malformed object states.
	ErrInvalidTrace = errors.New("trace: invalid world trace")
)

// BoundingBox is an axis-aligned box. 2D boxes leave Z at zero on both
// corners.
type BoundingBox struct {
	Min r3.Vec
	Max r3.Vec
}

// NewBoundingBox2D builds a planar box from its corners.
func NewBoundingBox2D(minX, minY, maxX, maxY float64) *BoundingBox {
	return &BoundingBox{
		Min: r3.Vec{X: minX, Y: minY},
		Max: r3.Vec{X: maxX, Y: maxY},
	}
}

// Rect returns the XY projection of the box.
func (b BoundingBox) Rect() r2.Box {
	return r2.Box{
		Min: r2.Vec{X: b.Min.X, Y: b.Min.Y},
		Max: r2.Vec{X: b.Max.X, Y: b.Max.Y},
	}
}

// ObjectState is one tracked entity at one instant.
type ObjectState struct {
	Name      string
	Timestamp float64
	Position  r3.Vec
	BBox      *BoundingBox // nil when the sensor gave no extent
}

// Planar returns the XY projection of the object's position.
func (o ObjectState) Planar() r2.Vec {
	return r2.Vec{X: o.Position.X, Y: o.Position.Y}
}
