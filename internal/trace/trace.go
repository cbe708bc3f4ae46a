package trace

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Snapshot is the world at one timestamp: entity name to object state.
type Snapshot struct {
	Timestamp float64
	objects   map[string]ObjectState
}

func newSnapshot(ts float64) *Snapshot {
	return &Snapshot{Timestamp: ts, objects: make(map[string]ObjectState)}
}

// Object returns the state of the named entity.
func (s *Snapshot) Object(name string) (ObjectState, bool) {
	o, ok := s.objects[name]
	return o, ok
}

// Has reports whether every name is present in the snapshot.
func (s *Snapshot) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := s.objects[n]; !ok {
			return false
		}
	}
	return true
}

// Names returns the entity names present, sorted.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.objects))
	for n := range s.objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entities in the snapshot.
func (s *Snapshot) Len() int { return len(s.objects) }

// Trace is the time-indexed collection of snapshots.
type Trace struct {
	frames map[float64]*Snapshot
}

// New returns an empty trace.
func New() *Trace {
	return &Trace{frames: make(map[float64]*Snapshot)}
}

// Add inserts an object state into the snapshot for its timestamp,
// creating the snapshot on first use. A name may appear only once per
// snapshot.
func (t *Trace) Add(o ObjectState) error {
	if math.IsNaN(o.Timestamp) || math.IsInf(o.Timestamp, 0) {
		return fmt.Errorf("%w: object %q has non-finite timestamp", ErrInvalidTrace, o.Name)
	}
	snap, ok := t.frames[o.Timestamp]
	if !ok {
		snap = newSnapshot(o.Timestamp)
		t.frames[o.Timestamp] = snap
	}
	if _, dup := snap.objects[o.Name]; dup {
		return fmt.Errorf("%w: duplicate object %q at t=%g", ErrInvalidTrace, o.Name, o.Timestamp)
	}
	snap.objects[o.Name] = o
	return nil
}

// AddAll is Add over a slice, stopping at the first error.
func (t *Trace) AddAll(states ...ObjectState) error {
	for _, o := range states {
		if err := t.Add(o); err != nil {
			return err
		}
	}
	return nil
}

// SortedTimestamps returns the timestamps present in strictly increasing
// order.
func (t *Trace) SortedTimestamps() []float64 {
	ts := make([]float64, 0, len(t.frames))
	for k := range t.frames {
		ts = append(ts, k)
	}
	sort.Float64s(ts)
	return ts
}

// SnapshotAt returns the snapshot for ts or ErrNotFound.
func (t *Trace) SnapshotAt(ts float64) (*Snapshot, error) {
	snap, ok := t.frames[ts]
	if !ok {
		return nil, fmt.Errorf("%w: t=%g", ErrNotFound, ts)
	}
	return snap, nil
}

// Len returns the number of snapshots.
func (t *Trace) Len() int { return len(t.frames) }

// Validate is the pre-flight check run before any relation computation.
// It rejects empty traces, entity names that cannot be used in an
// entity-key, non-finite coordinates, inverted bounding boxes and states
// filed under the wrong snapshot.
func (t *Trace) Validate() error {
	if t == nil || len(t.frames) == 0 {
		return fmt.Errorf("%w: trace is empty", ErrInvalidTrace)
	}
	for _, ts := range t.SortedTimestamps() {
		snap := t.frames[ts]
		for _, name := range snap.Names() {
			o := snap.objects[name]
			if err := validateObject(ts, o); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateObject(ts float64, o ObjectState) error {
	switch {
	case o.Name == "":
		return fmt.Errorf("%w: unnamed object at t=%g", ErrInvalidTrace, ts)
	case strings.Contains(o.Name, ","):
		return fmt.Errorf("%w: object name %q contains ','", ErrInvalidTrace, o.Name)
	case o.Timestamp != ts:
		return fmt.Errorf("%w: object %q carries t=%g inside snapshot t=%g", ErrInvalidTrace, o.Name, o.Timestamp, ts)
	}
	if !finite(o.Position) {
		return fmt.Errorf("%w: object %q at t=%g has non-finite position", ErrInvalidTrace, o.Name, ts)
	}
	if b := o.BBox; b != nil {
		if !finite(b.Min) || !finite(b.Max) {
			return fmt.Errorf("%w: object %q at t=%g has non-finite bounding box", ErrInvalidTrace, o.Name, ts)
		}
		if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
			return fmt.Errorf("%w: object %q at t=%g has inverted bounding box", ErrInvalidTrace, o.Name, ts)
		}
	}
	return nil
}

func finite(v r3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
