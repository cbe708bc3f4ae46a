package trace

import (
	"encoding/json"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"
)

// File is the on-disk JSON shape of a world trace.
type File struct {
	Frames []FrameJSON `json:"frames"`
}

// FrameJSON is one snapshot in the JSON trace format.
type FrameJSON struct {
	Timestamp float64      `json:"timestamp"`
	Objects   []ObjectJSON `json:"objects"`
}

// ObjectJSON is one object state in the JSON trace format. The extent is
// given either as sizes centred on the position or as an explicit box.
type ObjectJSON struct {
	Name  string    `json:"name"`
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Z     float64   `json:"z,omitempty"`
	XSize *float64  `json:"xsize,omitempty"`
	YSize *float64  `json:"ysize,omitempty"`
	ZSize *float64  `json:"zsize,omitempty"`
	BBox  *BBoxJSON `json:"bbox,omitempty"`
}

// BBoxJSON holds explicit box corners, 2 or 3 values each.
type BBoxJSON struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// Decode reads a JSON world trace.
func Decode(r io.Reader) (*Trace, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse trace JSON: %w", err)
	}
	return f.Build()
}

// Build converts the decoded file into a Trace.
func (f File) Build() (*Trace, error) {
	t := New()
	for _, fr := range f.Frames {
		for _, oj := range fr.Objects {
			o, err := oj.state(fr.Timestamp)
			if err != nil {
				return nil, err
			}
			if err := t.Add(o); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func (oj ObjectJSON) state(ts float64) (ObjectState, error) {
	o := ObjectState{
		Name:      oj.Name,
		Timestamp: ts,
		Position:  r3.Vec{X: oj.X, Y: oj.Y, Z: oj.Z},
	}
	switch {
	case oj.BBox != nil:
		minV, err := vec(oj.BBox.Min)
		if err != nil {
			return o, fmt.Errorf("%w: object %q bbox.min: %v", ErrInvalidTrace, oj.Name, err)
		}
		maxV, err := vec(oj.BBox.Max)
		if err != nil {
			return o, fmt.Errorf("%w: object %q bbox.max: %v", ErrInvalidTrace, oj.Name, err)
		}
		o.BBox = &BoundingBox{Min: minV, Max: maxV}
	case (oj.XSize == nil) != (oj.YSize == nil):
		return o, fmt.Errorf("%w: object %q needs both xsize and ysize", ErrInvalidTrace, oj.Name)
	case oj.XSize != nil:
		half := r3.Vec{X: *oj.XSize / 2, Y: *oj.YSize / 2}
		if oj.ZSize != nil {
			half.Z = *oj.ZSize / 2
		}
		o.BBox = &BoundingBox{Min: r3.Sub(o.Position, half), Max: r3.Add(o.Position, half)}
		if oj.ZSize == nil {
			o.BBox.Min.Z, o.BBox.Max.Z = 0, 0
		}
	}
	return o, nil
}

func vec(v []float64) (r3.Vec, error) {
	switch len(v) {
	case 2:
		return r3.Vec{X: v[0], Y: v[1]}, nil
	case 3:
		return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return r3.Vec{}, fmt.Errorf("expected 2 or 3 coordinates, got %d", len(v))
	}
}
