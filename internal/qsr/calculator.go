package qsr

import (
	"fmt"

	"github.com/banshee-data/qsrtrace/internal/config"
	"github.com/banshee-data/qsrtrace/internal/trace"
)

// Calculator is the capability set every relation calculator implements.
type Calculator interface {
	// ID is the calculator's unique identifier.
	ID() ID
	// Vocabulary is the fixed set of labels the calculator can emit.
	Vocabulary() []string
	// DefaultKeys is the selection rule used when no override applies.
	DefaultKeys(names []string) []Key
	// Admit narrows override keys that survived the presence checks.
	Admit(keys []Key) []Key
	// Compute produces this calculator's fragment of the output. The
	// timestamps are processed in the given ascending order. Keys the
	// calculator chooses to skip are simply absent from the fragment.
	Compute(tr *trace.Trace, timestamps []float64, req *Request) (*WorldTrace, error)
}

// RequestValidator is implemented by calculators with parameters to check
// before any computation begins.
type RequestValidator interface {
	ValidateRequest(req *Request) error
}

// Postprocessor is implemented by calculators that rewrite their fragment
// after Compute. Calculators without it return Compute's output as is.
type Postprocessor interface {
	Postprocess(out *WorldTrace, tr *trace.Trace, timestamps []float64, req *Request) (*WorldTrace, error)
}

// Configurable is implemented by calculators whose defaults can be set from
// a parsed configuration document.
type Configurable interface {
	Configure(cfg *config.Config) error
}

// Preflight runs every input-validation check for c against req: the world
// trace, the overrides that govern c, and c's own parameter checks.
func Preflight(c Calculator, req *Request) error {
	if req == nil {
		return fmt.Errorf("%s: nil request", c.ID())
	}
	if err := req.Trace.Validate(); err != nil {
		return fmt.Errorf("%s: %w", c.ID(), err)
	}
	if sel, ok := req.For[c.ID()]; ok {
		if err := sel.Validate(); err != nil {
			return fmt.Errorf("%s: override for %s: %w", c.ID(), c.ID(), err)
		}
	}
	if req.ForAll != nil {
		if err := req.ForAll.Validate(); err != nil {
			return fmt.Errorf("%s: override for %s: %w", c.ID(), AllCalculators, err)
		}
	}
	if v, ok := c.(RequestValidator); ok {
		if err := v.ValidateRequest(req); err != nil {
			return fmt.Errorf("%s: %w", c.ID(), err)
		}
	}
	return nil
}

// Execute computes and postprocesses c's fragment. Callers must have run
// Preflight first.
func Execute(c Calculator, req *Request) (*WorldTrace, error) {
	timestamps := req.Trace.SortedTimestamps()
	out, err := c.Compute(req.Trace, timestamps, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.ID(), err)
	}
	if p, ok := c.(Postprocessor); ok {
		out, err = p.Postprocess(out, req.Trace, timestamps, req)
		if err != nil {
			return nil, fmt.Errorf("%s: postprocess: %w", c.ID(), err)
		}
	}
	return out, nil
}

// Run drives one calculator end to end: Preflight, then Execute.
func Run(c Calculator, req *Request) (*WorldTrace, error) {
	if err := Preflight(c, req); err != nil {
		return nil, err
	}
	return Execute(c, req)
}
