package qsr

import "github.com/banshee-data/qsrtrace/internal/trace"

// Resolve returns the entity-keys that c evaluates at one snapshot.
//
// The first matching rule wins: a calculator-scoped override, then the
// global override, then the calculator's default rule. Override keys are
// kept only when every member entity is present in the snapshot, and the
// survivors pass through the calculator's Admit hook. Duplicates are
// dropped; override order is otherwise preserved.
func Resolve(c Calculator, req *Request, snap *trace.Snapshot) []Key {
	if snap == nil || snap.Len() == 0 {
		return nil
	}
	sel, ok := req.override(c.ID())
	if !ok {
		return c.DefaultKeys(snap.Names())
	}

	seen := make(map[Key]struct{}, len(sel.Keys))
	present := make([]Key, 0, len(sel.Keys))
	for _, k := range sel.Keys {
		if _, dup := seen[k]; dup {
			continue
		}
		if snap.Has(k.Names()...) {
			seen[k] = struct{}{}
			present = append(present, k)
		}
	}
	return c.Admit(present)
}

// ResolveWindow returns the keys resolvable at every snapshot of a window.
// Each snapshot is resolved independently and only the intersection is
// kept, in the order of the first snapshot.
func ResolveWindow(c Calculator, req *Request, snaps ...*trace.Snapshot) []Key {
	if len(snaps) == 0 {
		return nil
	}
	keys := Resolve(c, req, snaps[0])
	for _, snap := range snaps[1:] {
		if len(keys) == 0 {
			return nil
		}
		next := make(map[Key]struct{})
		for _, k := range Resolve(c, req, snap) {
			next[k] = struct{}{}
		}
		kept := keys[:0]
		for _, k := range keys {
			if _, ok := next[k]; ok {
				kept = append(kept, k)
			}
		}
		keys = kept
	}
	return keys
}
