package qsr

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Value maps calculator identifier to the label it emitted.
type Value map[ID]string

// Entry is one emitted label in a per-key sequence.
type Entry struct {
	Timestamp float64
	Label     string
}

// WorldTrace is the output of a request: timestamp to entity-key to
// relation values. It is not safe for concurrent mutation.
type WorldTrace struct {
	// QSRs lists the calculators whose fragments were merged in.
	QSRs    []ID
	entries map[float64]map[Key]Value
}

// NewWorldTrace returns an empty trace for the given calculators.
func NewWorldTrace(ids ...ID) *WorldTrace {
	return &WorldTrace{
		QSRs:    append([]ID(nil), ids...),
		entries: make(map[float64]map[Key]Value),
	}
}

// Add records label for (ts, k, id), replacing any previous label.
func (w *WorldTrace) Add(ts float64, k Key, id ID, label string) {
	byKey, ok := w.entries[ts]
	if !ok {
		byKey = make(map[Key]Value)
		w.entries[ts] = byKey
	}
	v, ok := byKey[k]
	if !ok {
		v = make(Value, 1)
		byKey[k] = v
	}
	v[id] = label
}

// Label returns the label id emitted for k at ts.
func (w *WorldTrace) Label(ts float64, k Key, id ID) (string, bool) {
	l, ok := w.entries[ts][k][id]
	return l, ok
}

// Timestamps returns the timestamps with at least one entry, ascending.
func (w *WorldTrace) Timestamps() []float64 {
	ts := make([]float64, 0, len(w.entries))
	for t := range w.entries {
		ts = append(ts, t)
	}
	sort.Float64s(ts)
	return ts
}

// Keys returns the entity-keys with entries at ts, sorted.
func (w *WorldTrace) Keys(ts float64) []Key {
	byKey := w.entries[ts]
	keys := make([]Key, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// AllKeys returns every entity-key appearing anywhere in the trace, sorted.
func (w *WorldTrace) AllKeys() []Key {
	seen := make(map[Key]struct{})
	for _, byKey := range w.entries {
		for k := range byKey {
			seen[k] = struct{}{}
		}
	}
	keys := make([]Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// At returns a copy of the entries at ts.
func (w *WorldTrace) At(ts float64) map[Key]Value {
	byKey := w.entries[ts]
	out := make(map[Key]Value, len(byKey))
	for k, v := range byKey {
		cp := make(Value, len(v))
		for id, l := range v {
			cp[id] = l
		}
		out[k] = cp
	}
	return out
}

// Len returns the total number of emitted labels.
func (w *WorldTrace) Len() int {
	n := 0
	for _, byKey := range w.entries {
		for _, v := range byKey {
			n += len(v)
		}
	}
	return n
}

// Sequence returns the labels id emitted for k, in time order.
func (w *WorldTrace) Sequence(k Key, id ID) []Entry {
	var seq []Entry
	for _, ts := range w.Timestamps() {
		if l, ok := w.entries[ts][k][id]; ok {
			seq = append(seq, Entry{Timestamp: ts, Label: l})
		}
	}
	return seq
}

// Merge folds other into w. Fragments from different calculators never
// share a (timestamp, key, calculator) slot; a collision with a different
// label is an error.
func (w *WorldTrace) Merge(other *WorldTrace) error {
	if other == nil {
		return nil
	}
	for ts, byKey := range other.entries {
		for k, v := range byKey {
			for id, l := range v {
				if prev, ok := w.Label(ts, k, id); ok && prev != l {
					return fmt.Errorf("merge conflict at t=%g key=%s qsr=%s: %q vs %q", ts, k, id, prev, l)
				}
				w.Add(ts, k, id, l)
			}
		}
	}
	for _, id := range other.QSRs {
		if !w.hasQSR(id) {
			w.QSRs = append(w.QSRs, id)
		}
	}
	return nil
}

func (w *WorldTrace) hasQSR(id ID) bool {
	for _, have := range w.QSRs {
		if have == id {
			return true
		}
	}
	return false
}

type frameJSON struct {
	Timestamp float64          `json:"timestamp"`
	QSRs      map[string]Value `json:"qsrs"`
}

type worldTraceJSON struct {
	QSRs  []ID        `json:"qsrs"`
	Trace []frameJSON `json:"trace"`
}

// MarshalJSON encodes the trace as time-ordered frames.
func (w *WorldTrace) MarshalJSON() ([]byte, error) {
	out := worldTraceJSON{QSRs: w.QSRs, Trace: make([]frameJSON, 0, len(w.entries))}
	for _, ts := range w.Timestamps() {
		fr := frameJSON{Timestamp: ts, QSRs: make(map[string]Value, len(w.entries[ts]))}
		for k, v := range w.entries[ts] {
			fr.QSRs[string(k)] = v
		}
		out.Trace = append(out.Trace, fr)
	}
	return json.Marshal(out)
}
