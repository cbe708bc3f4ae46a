package qtc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/qsrtrace/internal/qsr"
)

// ErrUnknownVariant is returned for QTC type tags other than b, c and bc.
var ErrUnknownVariant = errors.New("qtc: unknown variant")

var (
	slotsB = []int{SlotDistanceK, SlotDistanceL}
	slotsC = []int{SlotDistanceK, SlotDistanceL, SlotSideK, SlotSideL}
)

// variant is one QTC projection of the full tuple.
type variant struct {
	tag string
	id  qsr.ID
	// pick chooses the slots for one symbol given the pair's current
	// separation and the distance threshold.
	pick func(dist, threshold float64) []int
	// slotSets lists every slot selection pick can return, for vocabulary
	// enumeration.
	slotSets [][]int
}

var variants = map[string]variant{
	"b": {
		tag:      "b",
		id:       qsr.QTCBS,
		pick:     func(float64, float64) []int { return slotsB },
		slotSets: [][]int{slotsB},
	},
	"c": {
		tag:      "c",
		id:       qsr.QTCCS,
		pick:     func(float64, float64) []int { return slotsC },
		slotSets: [][]int{slotsC},
	},
	"bc": {
		tag: "bc",
		id:  qsr.QTCBCS,
		pick: func(dist, threshold float64) []int {
			if dist <= threshold {
				return slotsC
			}
			return slotsB
		},
		slotSets: [][]int{slotsB, slotsC},
	},
}

func lookupVariant(tag string) (variant, error) {
	v, ok := variants[tag]
	if !ok {
		return variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, tag)
	}
	return v, nil
}

// TagForID maps a calculator identifier to its QTC type tag.
func TagForID(id qsr.ID) (string, bool) {
	for tag, v := range variants {
		if v.id == id {
			return tag, true
		}
	}
	return "", false
}

// project selects slots from t.
func project(t Tuple, slots []int) []Qualifier {
	qs := make([]Qualifier, len(slots))
	for i, s := range slots {
		qs[i] = t[s]
	}
	return qs
}

// symbol concatenates the glyphs of qs.
func symbol(qs []Qualifier) string {
	var b strings.Builder
	b.Grow(len(qs))
	for _, q := range qs {
		b.WriteString(q.String())
	}
	return b.String()
}

// combinations returns every n-long sequence over qualifierValues, in
// lexicographic order of (-, 0, +).
func combinations(n int) [][]Qualifier {
	out := [][]Qualifier{{}}
	for i := 0; i < n; i++ {
		next := make([][]Qualifier, 0, len(out)*len(qualifierValues))
		for _, prefix := range out {
			for _, q := range qualifierValues {
				c := make([]Qualifier, len(prefix), len(prefix)+1)
				copy(c, prefix)
				next = append(next, append(c, q))
			}
		}
		out = next
	}
	return out
}

// vocabulary enumerates every symbol the variant can emit.
func (v variant) vocabulary() []string {
	var vocab []string
	for _, slots := range v.slotSets {
		for _, qs := range combinations(len(slots)) {
			vocab = append(vocab, symbol(qs))
		}
	}
	return vocab
}
