package qtc

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Qualifier is one ternary QTC component.
type Qualifier int8

// Qualifier values. The distance qualifiers read Toward/Stable/Away and the
// side qualifiers read Left/OnLine/Right; both share one encoding.
const (
	Toward Qualifier = -1
	Stable Qualifier = 0
	Away   Qualifier = 1

	Left   = Toward
	OnLine = Stable
	Right  = Away
)

var qualifierValues = []Qualifier{Toward, Stable, Away}

// String returns the QTC glyph: '-', '0' or '+'.
func (q Qualifier) String() string {
	switch {
	case q < 0:
		return "-"
	case q > 0:
		return "+"
	default:
		return "0"
	}
}

// Canonical slot indices of the full tuple.
const (
	SlotDistanceK = iota // k moving toward or away from l
	SlotDistanceL        // l moving toward or away from k
	SlotSideK            // k moving left or right of the k->l line
	SlotSideL            // l moving left or right of the l->k line
)

// Tuple is the full qualifier tuple of one pair between two frames.
type Tuple [4]Qualifier

// Derive computes the tuple for pair (k, l) from their positions at the
// previous frame (k0, l0) and the current one (k1, l1). Each entity's
// displacement is projected onto the line joining the previous positions
// and onto its perpendicular; components whose magnitude does not exceed
// quantisation are stable.
func Derive(k0, k1, l0, l1 r2.Vec, quantisation float64) Tuple {
	var t Tuple
	t[SlotDistanceK], t[SlotSideK] = classify(r2.Sub(l0, k0), r2.Sub(k1, k0), quantisation)
	t[SlotDistanceL], t[SlotSideL] = classify(r2.Sub(k0, l0), r2.Sub(l1, l0), quantisation)
	return t
}

// classify returns the distance and side qualifiers of displacement disp
// relative to the reference direction ref (pointing at the other entity).
func classify(ref, disp r2.Vec, quantisation float64) (dist, side Qualifier) {
	n := r2.Norm(ref)
	if n == 0 {
		// Co-located: any movement increases the separation and there is
		// no reference line to be left or right of.
		if r2.Norm(disp) > quantisation {
			return Away, OnLine
		}
		return Stable, OnLine
	}
	unit := r2.Scale(1/n, ref)
	along := r2.Dot(disp, unit)
	across := r2.Cross(unit, disp)
	return ternary(-along, quantisation), ternary(-across, quantisation)
}

// ternary maps v to -1/0/+1 with a dead band of ±q.
func ternary(v, q float64) Qualifier {
	switch {
	case math.Abs(v) <= q:
		return Stable
	case v < 0:
		return -1
	default:
		return 1
	}
}
