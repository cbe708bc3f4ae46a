// Package qtc implements the qualitative trajectory calculus over pairs of
// moving entities.
//
// For each ordered pair and each pair of consecutive timestamps the full
// qualifier tuple is derived from the entities' displacements, projected to
// the variant's slots and rendered as a glyph string ("-+", "0+-0"). A
// pair's symbol sequence records only changes: a symbol equal to the pair's
// previous emitted symbol is suppressed. Nothing is emitted at the first
// timestamp, or at a timestamp where the pair was not resolvable at both
// frames.
package qtc

import (
	"errors"
	"fmt"

	"github.com/banshee-data/qsrtrace/internal/config"
	"github.com/banshee-data/qsrtrace/internal/qsr"
	"github.com/banshee-data/qsrtrace/internal/trace"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvalidTransition is returned under strict continuity when a
// qualifier jumps directly between '-' and '+'.
var ErrInvalidTransition = errors.New("qtc: invalid qualifier transition")

// Calculator is a QTC calculator for one variant. A Calculator holds no
// per-request state and may serve concurrent requests.
type Calculator struct {
	qsr.Dyadic

	variant  variant
	vocab    []string
	defaults qsr.QTCParameters
}

// New returns a calculator for the variant tag "b", "c" or "bc".
func New(tag string) (*Calculator, error) {
	v, err := lookupVariant(tag)
	if err != nil {
		return nil, err
	}
	return &Calculator{
		variant: v,
		vocab:   v.vocabulary(),
		defaults: qsr.QTCParameters{
			DistanceThreshold: config.Empty().GetDistanceThreshold(),
			Continuity:        qsr.ContinuityNone,
		},
	}, nil
}

// ID returns the identifier of the calculator's variant.
func (c *Calculator) ID() qsr.ID { return c.variant.id }

// Variant returns the QTC type tag.
func (c *Calculator) Variant() string { return c.variant.tag }

// Vocabulary returns every symbol the variant can emit.
func (c *Calculator) Vocabulary() []string {
	return append([]string(nil), c.vocab...)
}

// Defaults returns the parameters used when a request carries none.
func (c *Calculator) Defaults() qsr.QTCParameters { return c.defaults }

// Configure applies a parsed configuration document to the defaults.
func (c *Calculator) Configure(cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", c.ID(), err)
	}
	c.defaults = qsr.QTCParameters{
		QuantisationFactor: cfg.GetQuantisationFactor(),
		DistanceThreshold:  cfg.GetDistanceThreshold(),
		Continuity:         qsr.Continuity(cfg.GetContinuity()),
	}
	return nil
}

func (c *Calculator) params(req *qsr.Request) qsr.QTCParameters {
	if req.Parameters.QTC != nil {
		return *req.Parameters.QTC
	}
	return c.defaults
}

// ValidateRequest checks the effective QTC parameters.
func (c *Calculator) ValidateRequest(req *qsr.Request) error {
	return c.params(req).Validate()
}

// pairState is what the fold remembers about one pair: the last emitted
// symbol and the qualifiers it was built from.
type pairState struct {
	symbol     string
	qualifiers []Qualifier
}

// runState is the fold accumulator threaded from one timestep to the next.
// step never mutates the state it is given.
type runState map[qsr.Key]pairState

type emission struct {
	key    qsr.Key
	symbol string
}

// Compute folds over consecutive timestamp pairs in ascending order.
func (c *Calculator) Compute(tr *trace.Trace, timestamps []float64, req *qsr.Request) (*qsr.WorldTrace, error) {
	p := c.params(req)
	out := qsr.NewWorldTrace(c.ID())

	state := runState{}
	for i := 1; i < len(timestamps); i++ {
		prev, err := tr.SnapshotAt(timestamps[i-1])
		if err != nil {
			return nil, err
		}
		cur, err := tr.SnapshotAt(timestamps[i])
		if err != nil {
			return nil, err
		}

		keys := qsr.ResolveWindow(c, req, prev, cur)
		var emitted []emission
		state, emitted, err = c.step(state, keys, prev, cur, p)
		if err != nil {
			return nil, err
		}
		for _, e := range emitted {
			out.Add(cur.Timestamp, e.key, c.ID(), e.symbol)
		}
	}
	return out, nil
}

// step derives the symbols for one timestep and returns the next state.
func (c *Calculator) step(state runState, keys []qsr.Key, prev, cur *trace.Snapshot, p qsr.QTCParameters) (runState, []emission, error) {
	next := make(runState, len(state)+len(keys))
	for k, s := range state {
		next[k] = s
	}

	var emitted []emission
	for _, k := range keys {
		names := k.Names()
		k0, k1, ok := positions(prev, cur, names[0])
		if !ok {
			continue
		}
		l0, l1, ok := positions(prev, cur, names[1])
		if !ok {
			continue
		}

		tuple := Derive(k0, k1, l0, l1, p.QuantisationFactor)
		qs := project(tuple, c.variant.pick(r2.Norm(r2.Sub(l1, k1)), p.DistanceThreshold))
		sym := symbol(qs)

		last, seen := state[k]
		if seen && last.symbol == sym {
			continue
		}
		if seen && p.Continuity == qsr.ContinuityStrict {
			if slot, ok := discontinuity(last.qualifiers, qs); ok {
				return nil, nil, fmt.Errorf("%w: pair %s at t=%g: %s -> %s jumps qualifier %d",
					ErrInvalidTransition, k, cur.Timestamp, last.symbol, sym, slot)
			}
		}
		next[k] = pairState{symbol: sym, qualifiers: qs}
		emitted = append(emitted, emission{key: k, symbol: sym})
	}
	return next, emitted, nil
}

func positions(prev, cur *trace.Snapshot, name string) (r2.Vec, r2.Vec, bool) {
	a, ok := prev.Object(name)
	if !ok {
		return r2.Vec{}, r2.Vec{}, false
	}
	b, ok := cur.Object(name)
	if !ok {
		return r2.Vec{}, r2.Vec{}, false
	}
	return a.Planar(), b.Planar(), true
}

// discontinuity reports the first shared slot whose qualifier flips sign
// without passing through stable.
func discontinuity(from, to []Qualifier) (int, bool) {
	n := min(len(from), len(to))
	for i := 0; i < n; i++ {
		if from[i]*to[i] < 0 {
			return i, true
		}
	}
	return 0, false
}
