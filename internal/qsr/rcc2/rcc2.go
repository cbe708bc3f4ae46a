// Package rcc2 implements the two-label region connection calculus over
// axis-aligned 2D bounding boxes.
//
// RCC2 is the coarsest member of the RCC family: every relation of the
// eight-label RCC8 other than "disconnected" collapses into "connected".
package rcc2

import (
	"fmt"
	"runtime"

	"github.com/banshee-data/qsrtrace/internal/qsr"
	"github.com/banshee-data/qsrtrace/internal/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"
)

// Relation labels.
const (
	Disconnected = "dc"
	Connected    = "c"
)

// Calculator is the stateless RCC2 calculator. The zero value is ready to
// use.
type Calculator struct {
	qsr.Dyadic
}

// New returns an RCC2 calculator.
func New() *Calculator { return &Calculator{} }

// ID returns qsr.RCC2.
func (*Calculator) ID() qsr.ID { return qsr.RCC2 }

// Vocabulary returns the two RCC2 labels.
func (*Calculator) Vocabulary() []string { return []string{Disconnected, Connected} }

// Relate classifies two boxes. Boxes sharing only an edge or a corner are
// connected.
func Relate(a, b r2.Box) string {
	if a.Max.X < b.Min.X || b.Max.X < a.Min.X ||
		a.Max.Y < b.Min.Y || b.Max.Y < a.Min.Y {
		return Disconnected
	}
	return Connected
}

// ValidateRequest checks that every entity the request will evaluate has a
// bounding box.
func (c *Calculator) ValidateRequest(req *qsr.Request) error {
	for _, ts := range req.Trace.SortedTimestamps() {
		snap, err := req.Trace.SnapshotAt(ts)
		if err != nil {
			return err
		}
		for _, k := range qsr.Resolve(c, req, snap) {
			for _, name := range k.Names() {
				if o, _ := snap.Object(name); o.BBox == nil {
					return fmt.Errorf("%w: object %q at t=%g has no bounding box", trace.ErrInvalidTrace, name, ts)
				}
			}
		}
	}
	return nil
}

type relation struct {
	key   qsr.Key
	label string
}

// Compute classifies every resolved pair at every timestamp. Timestamps are
// independent, so they are evaluated in parallel and merged in order.
func (c *Calculator) Compute(tr *trace.Trace, timestamps []float64, req *qsr.Request) (*qsr.WorldTrace, error) {
	results := make([][]relation, len(timestamps))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, ts := range timestamps {
		g.Go(func() error {
			snap, err := tr.SnapshotAt(ts)
			if err != nil {
				return err
			}
			keys := qsr.Resolve(c, req, snap)
			rels := make([]relation, 0, len(keys))
			for _, k := range keys {
				names := k.Names()
				a, _ := snap.Object(names[0])
				b, _ := snap.Object(names[1])
				if a.BBox == nil || b.BBox == nil {
					return fmt.Errorf("%w: pair %s at t=%g lacks a bounding box", trace.ErrInvalidTrace, k, ts)
				}
				rels = append(rels, relation{key: k, label: Relate(a.BBox.Rect(), b.BBox.Rect())})
			}
			results[i] = rels
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := qsr.NewWorldTrace(qsr.RCC2)
	for i, ts := range timestamps {
		for _, r := range results[i] {
			out.Add(ts, r.key, qsr.RCC2, r.label)
		}
	}
	return out, nil
}
