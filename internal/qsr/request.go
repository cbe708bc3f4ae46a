package qsr

import (
	"fmt"
	"strings"

	"github.com/banshee-data/qsrtrace/internal/trace"
)

// Continuity names how QTC treats qualifier jumps between consecutive
// emitted symbols.
type Continuity string

const (
	// ContinuityNone accepts every transition.
	ContinuityNone Continuity = "none"
	// ContinuityStrict fails the request when any qualifier jumps directly
	// between '-' and '+'.
	ContinuityStrict Continuity = "strict"
)

// QTCParameters are the request-level QTC settings. They replace the
// calculator's configured defaults as a whole.
type QTCParameters struct {
	// QuantisationFactor is the displacement magnitude below which a
	// qualifier is treated as stable.
	QuantisationFactor float64
	// DistanceThreshold switches qtcbcs between the b projection (pair
	// farther apart) and the c projection (pair within the threshold).
	DistanceThreshold float64
	Continuity        Continuity
}

// Validate checks the parameter ranges.
func (p QTCParameters) Validate() error {
	if p.QuantisationFactor < 0 {
		return fmt.Errorf("%w: quantisation_factor must be non-negative, got %g", ErrInvalidParameter, p.QuantisationFactor)
	}
	if p.DistanceThreshold < 0 {
		return fmt.Errorf("%w: distance_threshold must be non-negative, got %g", ErrInvalidParameter, p.DistanceThreshold)
	}
	switch p.Continuity {
	case "", ContinuityNone, ContinuityStrict:
	default:
		return fmt.Errorf("%w: continuity %q", ErrInvalidParameter, p.Continuity)
	}
	return nil
}

// Parameters groups the typed per-calculator parameters of a request.
// A nil member means "use the calculator's configured defaults".
type Parameters struct {
	QTC *QTCParameters
}

// Selection is an explicit candidate set of entity-keys.
type Selection struct {
	Keys []Key
}

// NewSelection builds a selection from keys.
func NewSelection(keys ...Key) Selection {
	return Selection{Keys: keys}
}

// Validate rejects empty keys and keys with empty member names.
func (s Selection) Validate() error {
	for i, k := range s.Keys {
		if !k.valid() {
			return fmt.Errorf("%w: element %d (%q) is not a name or name tuple", ErrMalformedSelection, i, string(k))
		}
	}
	return nil
}

// ParseSelection converts a decoded, untyped override value into a
// Selection. The value must be a list whose elements are names or lists
// of names.
func ParseSelection(v any) (Selection, error) {
	var items []any
	switch vv := v.(type) {
	case []any:
		items = vv
	case []string:
		for _, s := range vv {
			items = append(items, s)
		}
	case [][]string:
		for _, s := range vv {
			items = append(items, s)
		}
	default:
		return Selection{}, fmt.Errorf("%w: expected a list, got %T", ErrMalformedSelection, v)
	}

	sel := Selection{Keys: make([]Key, 0, len(items))}
	for i, item := range items {
		k, err := parseKey(item)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: element %d: %v", ErrMalformedSelection, i, err)
		}
		sel.Keys = append(sel.Keys, k)
	}
	if err := sel.Validate(); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

func parseKey(item any) (Key, error) {
	switch it := item.(type) {
	case string:
		return keyOf(it)
	case []string:
		return keyOf(it...)
	case []any:
		names := make([]string, 0, len(it))
		for _, n := range it {
			s, ok := n.(string)
			if !ok {
				return "", fmt.Errorf("tuple member must be a string, got %T", n)
			}
			names = append(names, s)
		}
		return keyOf(names...)
	default:
		return "", fmt.Errorf("must be a string or a list of strings, got %T", item)
	}
}

// keyOf joins names into a key. A name holding the key separator would
// change the key's arity, so it is refused.
func keyOf(names ...string) (Key, error) {
	for _, n := range names {
		if strings.Contains(n, ",") {
			return "", fmt.Errorf("name %q contains ','", n)
		}
	}
	return NewKey(names...), nil
}

// Request is one relation request.
type Request struct {
	Trace *trace.Trace
	// QSRs lists the calculators to run.
	QSRs []ID
	// For holds calculator-scoped overrides.
	For map[ID]Selection
	// ForAll is the global override; nil when absent.
	ForAll     *Selection
	Parameters Parameters
}

// override returns the selection that governs id, trying the
// calculator-scoped override first and the global one second.
func (r *Request) override(id ID) (Selection, bool) {
	lookups := []func() (Selection, bool){
		func() (Selection, bool) {
			s, ok := r.For[id]
			return s, ok
		},
		func() (Selection, bool) {
			if r.ForAll == nil {
				return Selection{}, false
			}
			return *r.ForAll, true
		},
	}
	for _, lookup := range lookups {
		if s, ok := lookup(); ok {
			return s, true
		}
	}
	return Selection{}, false
}
