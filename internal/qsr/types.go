package qsr

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnknownCalculator is returned when a request names an identifier
	// with no registered calculator.
	ErrUnknownCalculator = errors.New("qsr: unknown calculator")
	// ErrMalformedSelection is returned for entity-selection overrides that
	// are not a flat collection of names and/or ordered name tuples.
	ErrMalformedSelection = errors.New("qsr: malformed entity selection")
	// ErrInvalidParameter is returned for out-of-range calculator
	// parameters.
	ErrInvalidParameter = errors.New("qsr: invalid calculator parameter")
)

// ID identifies a calculator. It keys relation values in the output and
// scopes per-calculator overrides in a request.
type ID string

// Registered calculator identifiers.
const (
	RCC2   ID = "rcc2"
	QTCBS  ID = "qtcbs"
	QTCCS  ID = "qtccs"
	QTCBCS ID = "qtcbcs"
)

// AllCalculators is the reserved scope of a global override. It is never a
// calculator identifier.
const AllCalculators ID = "for_all_qsrs"

// Key is an entity-key: one entity name, or an ordered tuple of names
// joined by commas ("A,B").
type Key string

// NewKey joins names into an entity-key.
func NewKey(names ...string) Key {
	return Key(strings.Join(names, ","))
}

// Names splits the key into its member names.
func (k Key) Names() []string {
	if k == "" {
		return nil
	}
	return strings.Split(string(k), ",")
}

// Arity is the number of member names.
func (k Key) Arity() int {
	if k == "" {
		return 0
	}
	return strings.Count(string(k), ",") + 1
}

func (k Key) valid() bool {
	for _, n := range k.Names() {
		if n == "" {
			return false
		}
	}
	return k != ""
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}

// AllOrderedPairs returns every ordered pair of distinct names. It is the
// default selection rule of the dyadic calculators.
func AllOrderedPairs(names []string) []Key {
	if len(names) < 2 {
		return nil
	}
	keys := make([]Key, 0, len(names)*(len(names)-1))
	for _, a := range names {
		for _, b := range names {
			if a != b {
				keys = append(keys, NewKey(a, b))
			}
		}
	}
	return keys
}

// AdmitPairs keeps only keys naming two distinct entities.
func AdmitPairs(keys []Key) []Key {
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		names := k.Names()
		if len(names) == 2 && names[0] != names[1] {
			out = append(out, k)
		}
	}
	return out
}

// Dyadic supplies the selection capabilities shared by pairwise
// calculators. Embed it to get all-ordered-pairs defaults and self-pair
// exclusion.
type Dyadic struct{}

// DefaultKeys returns every ordered pair of distinct names.
func (Dyadic) DefaultKeys(names []string) []Key { return AllOrderedPairs(names) }

// Admit drops single names, self-pairs and tuples of other arities.
func (Dyadic) Admit(keys []Key) []Key { return AdmitPairs(keys) }
