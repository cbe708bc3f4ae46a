// Package testutil provides shared trace fixtures for calculator and
// engine tests.
package testutil

import (
	"testing"

	"github.com/banshee-data/qsrtrace/internal/trace"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a planar position used by Track.
type Point struct{ X, Y float64 }

// BoxState returns an object state with a 2D bounding box, positioned at
// the box centre.
func BoxState(name string, ts, minX, minY, maxX, maxY float64) trace.ObjectState {
	return trace.ObjectState{
		Name:      name,
		Timestamp: ts,
		Position:  r3.Vec{X: (minX + maxX) / 2, Y: (minY + maxY) / 2},
		BBox:      trace.NewBoundingBox2D(minX, minY, maxX, maxY),
	}
}

// PointState returns an object state without extent.
func PointState(name string, ts, x, y float64) trace.ObjectState {
	return trace.ObjectState{Name: name, Timestamp: ts, Position: r3.Vec{X: x, Y: y}}
}

// Track returns one point state per position, at timestamps 0, 1, 2, ...
func Track(name string, pts ...Point) []trace.ObjectState {
	states := make([]trace.ObjectState, len(pts))
	for i, p := range pts {
		states[i] = PointState(name, float64(i), p.X, p.Y)
	}
	return states
}

// NewTrace builds a trace from states, failing the test on any error.
func NewTrace(t testing.TB, states ...trace.ObjectState) *trace.Trace {
	t.Helper()
	tr := trace.New()
	require.NoError(t, tr.AddAll(states...), "build trace")
	return tr
}

// Tracks concatenates several tracks into one trace.
func Tracks(t testing.TB, tracks ...[]trace.ObjectState) *trace.Trace {
	t.Helper()
	var all []trace.ObjectState
	for _, tr := range tracks {
		all = append(all, tr...)
	}
	return NewTrace(t, all...)
}
