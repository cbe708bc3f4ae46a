package qsr

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/banshee-data/qsrtrace/internal/testutil"
	"github.com/banshee-data/qsrtrace/internal/trace"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldTraceAccessors(t *testing.T) {
	t.Parallel()

	w := NewWorldTrace(RCC2)
	w.Add(1, "A,B", RCC2, "c")
	w.Add(0, "A,B", RCC2, "dc")
	w.Add(0, "B,A", RCC2, "dc")

	assert.Equal(t, []float64{0, 1}, w.Timestamps())
	assert.Equal(t, []Key{"A,B", "B,A"}, w.Keys(0))
	assert.Equal(t, []Key{"A,B", "B,A"}, w.AllKeys())
	assert.Equal(t, 3, w.Len())

	l, ok := w.Label(1, "A,B", RCC2)
	require.True(t, ok)
	assert.Equal(t, "c", l)
	_, ok = w.Label(1, "B,A", RCC2)
	assert.False(t, ok)

	assert.Equal(t, []Entry{{0, "dc"}, {1, "c"}}, w.Sequence("A,B", RCC2))

	// At returns a copy.
	at := w.At(0)
	at["A,B"][RCC2] = "mutated"
	l, _ = w.Label(0, "A,B", RCC2)
	assert.Equal(t, "dc", l)
}

func TestWorldTraceMerge(t *testing.T) {
	t.Parallel()

	a := NewWorldTrace(RCC2)
	a.Add(0, "A,B", RCC2, "dc")
	a.Add(1, "A,B", RCC2, "c")

	b := NewWorldTrace(QTCBS)
	b.Add(1, "A,B", QTCBS, "-0")

	ab := NewWorldTrace()
	require.NoError(t, ab.Merge(a))
	require.NoError(t, ab.Merge(b))

	ba := NewWorldTrace()
	require.NoError(t, ba.Merge(b))
	require.NoError(t, ba.Merge(a))

	for _, ts := range []float64{0, 1} {
		if diff := cmp.Diff(ab.At(ts), ba.At(ts)); diff != "" {
			t.Errorf("merge not commutative at t=%g (-ab +ba):\n%s", ts, diff)
		}
	}
	assert.Equal(t, Value{RCC2: "c", QTCBS: "-0"}, ab.At(1)["A,B"])
	assert.ElementsMatch(t, []ID{RCC2, QTCBS}, ab.QSRs)

	conflict := NewWorldTrace(RCC2)
	conflict.Add(0, "A,B", RCC2, "c")
	assert.Error(t, ab.Merge(conflict))
	assert.NoError(t, ab.Merge(nil))
}

func TestWorldTraceJSON(t *testing.T) {
	t.Parallel()

	w := NewWorldTrace(RCC2)
	w.Add(1, "A,B", RCC2, "c")
	w.Add(0, "A,B", RCC2, "dc")

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"qsrs": ["rcc2"],
		"trace": [
			{"timestamp": 0, "qsrs": {"A,B": {"rcc2": "dc"}}},
			{"timestamp": 1, "qsrs": {"A,B": {"rcc2": "c"}}}
		]
	}`, string(data))
}

type postCalc struct {
	pairCalc
	validateErr error
}

func (p postCalc) ValidateRequest(*Request) error { return p.validateErr }

func (p postCalc) Postprocess(out *WorldTrace, _ *trace.Trace, _ []float64, _ *Request) (*WorldTrace, error) {
	out.Add(-1, "post", p.id, "done")
	return out, nil
}

func TestRun(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTrace(t,
		testutil.PointState("A", 0, 0, 0),
		testutil.PointState("B", 0, 1, 0),
		testutil.PointState("A", 1, 0, 0),
	)

	t.Run("computes and postprocesses", func(t *testing.T) {
		t.Parallel()
		out, err := Run(postCalc{pairCalc: pairCalc{id: "p"}}, &Request{Trace: tr})
		require.NoError(t, err)
		assert.Equal(t, []Key{"A,B", "B,A"}, out.Keys(0))
		assert.Empty(t, out.Keys(1))
		l, ok := out.Label(-1, "post", "p")
		require.True(t, ok)
		assert.Equal(t, "done", l)
	})

	t.Run("calculator validation aborts", func(t *testing.T) {
		t.Parallel()
		sentinel := errors.New("bad params")
		_, err := Run(postCalc{pairCalc: pairCalc{id: "p"}, validateErr: sentinel}, &Request{Trace: tr})
		assert.ErrorIs(t, err, sentinel)
		assert.ErrorContains(t, err, "p:")
	})

	t.Run("malformed trace aborts", func(t *testing.T) {
		t.Parallel()
		_, err := Run(pairCalc{id: "p"}, &Request{Trace: trace.New()})
		assert.ErrorIs(t, err, trace.ErrInvalidTrace)
	})

	t.Run("malformed override aborts", func(t *testing.T) {
		t.Parallel()
		req := &Request{Trace: tr, For: map[ID]Selection{"p": {Keys: []Key{"A,"}}}}
		_, err := Run(pairCalc{id: "p"}, req)
		assert.ErrorIs(t, err, ErrMalformedSelection)

		bad := NewSelection("")
		req = &Request{Trace: tr, ForAll: &bad}
		_, err = Run(pairCalc{id: "p"}, req)
		assert.ErrorIs(t, err, ErrMalformedSelection)
		assert.ErrorContains(t, err, string(AllCalculators))
	})
}
