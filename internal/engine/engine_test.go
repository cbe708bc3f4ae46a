package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/banshee-data/qsrtrace/internal/config"
	"github.com/banshee-data/qsrtrace/internal/monitoring"
	"github.com/banshee-data/qsrtrace/internal/qsr"
	"github.com/banshee-data/qsrtrace/internal/qsr/qtc"
	"github.com/banshee-data/qsrtrace/internal/qsr/rcc2"
	"github.com/banshee-data/qsrtrace/internal/testutil"
	"github.com/banshee-data/qsrtrace/internal/trace"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioTrace(t *testing.T) *trace.Trace {
	return testutil.NewTrace(t,
		testutil.BoxState("A", 0, 0, 0, 1, 1),
		testutil.BoxState("B", 0, 2, 2, 3, 3),
		testutil.BoxState("A", 1, 0, 0, 1, 1),
		testutil.BoxState("B", 1, 0.5, 0.5, 1.5, 1.5),
		testutil.BoxState("A", 2, 0, 0, 1, 1),
		testutil.BoxState("B", 2, 0.5, 0.5, 1.5, 1.5),
	)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	e := New()
	assert.Equal(t, []qsr.ID{qsr.QTCBCS, qsr.QTCBS, qsr.QTCCS, qsr.RCC2}, e.IDs())

	for _, id := range e.IDs() {
		c, err := e.Calculator(id)
		require.NoError(t, err)
		assert.Equal(t, id, c.ID())
	}

	assert.Error(t, e.Register(qsr.RCC2, func() (qsr.Calculator, error) { return rcc2.New(), nil }))
	assert.Error(t, e.Register(qsr.AllCalculators, func() (qsr.Calculator, error) { return rcc2.New(), nil }))
	assert.Error(t, e.Register("nil", nil))
	assert.Empty(t, NewEmpty().IDs())
}

func TestComputeScenario(t *testing.T) {
	t.Parallel()

	out, err := New().Compute(&qsr.Request{Trace: scenarioTrace(t), QSRs: []qsr.ID{qsr.RCC2, qsr.QTCBS}})
	require.NoError(t, err)

	assert.Equal(t, []qsr.Entry{{Timestamp: 0, Label: "dc"}, {Timestamp: 1, Label: "c"}, {Timestamp: 2, Label: "c"}},
		out.Sequence("A,B", qsr.RCC2))
	// B moved toward A between t=0 and t=1, then stopped.
	assert.Equal(t, []qsr.Entry{{Timestamp: 1, Label: "0-"}, {Timestamp: 2, Label: "00"}},
		out.Sequence("A,B", qsr.QTCBS))
	assert.Equal(t, qsr.Value{qsr.RCC2: "c", qsr.QTCBS: "0-"}, out.At(1)["A,B"])
	assert.Equal(t, []qsr.ID{qsr.RCC2, qsr.QTCBS}, out.QSRs)
}

func TestComputeMatchesSeparateRuns(t *testing.T) {
	t.Parallel()

	e := New()
	tr := scenarioTrace(t)

	together, err := e.Compute(&qsr.Request{Trace: tr, QSRs: []qsr.ID{qsr.RCC2, qsr.QTCBS}})
	require.NoError(t, err)

	merged := qsr.NewWorldTrace()
	for _, id := range []qsr.ID{qsr.QTCBS, qsr.RCC2} {
		alone, err := e.Compute(&qsr.Request{Trace: tr, QSRs: []qsr.ID{id}})
		require.NoError(t, err)
		require.NoError(t, merged.Merge(alone))
	}

	require.Equal(t, together.Timestamps(), merged.Timestamps())
	for _, ts := range together.Timestamps() {
		if diff := cmp.Diff(merged.At(ts), together.At(ts)); diff != "" {
			t.Errorf("t=%g mismatch (-separate +together):\n%s", ts, diff)
		}
	}
}

func TestComputeUnknownCalculator(t *testing.T) {
	t.Parallel()

	out, err := New().Compute(&qsr.Request{Trace: scenarioTrace(t), QSRs: []qsr.ID{qsr.RCC2, "xyz"}})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, qsr.ErrUnknownCalculator)
	assert.ErrorContains(t, err, "xyz")
}

func TestComputeOverrideForUnregisteredCalculator(t *testing.T) {
	t.Parallel()

	req := &qsr.Request{
		Trace: scenarioTrace(t),
		QSRs:  []qsr.ID{qsr.RCC2},
		For:   map[qsr.ID]qsr.Selection{"abc": qsr.NewSelection("A,B")},
	}
	_, err := New().Compute(req)
	assert.ErrorIs(t, err, qsr.ErrUnknownCalculator)
	assert.ErrorContains(t, err, "abc")
}

func TestComputeValidationBeforeComputation(t *testing.T) {
	t.Parallel()

	var computed sync.Map
	e := NewEmpty()
	require.NoError(t, e.Register("spy", func() (qsr.Calculator, error) {
		return spyCalc{Calculator: rcc2.New(), seen: &computed}, nil
	}))
	require.NoError(t, e.Register(qsr.QTCBS, func() (qsr.Calculator, error) { return qtc.New("b") }))

	req := &qsr.Request{
		Trace:      scenarioTrace(t),
		QSRs:       []qsr.ID{"spy", qsr.QTCBS},
		Parameters: qsr.Parameters{QTC: &qsr.QTCParameters{QuantisationFactor: -1}},
	}
	_, err := e.Compute(req)
	assert.ErrorIs(t, err, qsr.ErrInvalidParameter)
	_, ran := computed.Load("spy")
	assert.False(t, ran, "no calculator may run when validation fails")
}

type spyCalc struct {
	*rcc2.Calculator
	seen *sync.Map
}

func (s spyCalc) ID() qsr.ID { return "spy" }

func (s spyCalc) Compute(tr *trace.Trace, ts []float64, req *qsr.Request) (*qsr.WorldTrace, error) {
	s.seen.Store("spy", true)
	return qsr.NewWorldTrace("spy"), nil
}

func TestComputeFailingCalculatorAbortsRequest(t *testing.T) {
	t.Parallel()

	e := New()
	boom := errors.New("boom")
	require.NoError(t, e.Register("boom", func() (qsr.Calculator, error) {
		return failCalc{Calculator: rcc2.New(), err: boom}, nil
	}))

	out, err := e.Compute(&qsr.Request{Trace: scenarioTrace(t), QSRs: []qsr.ID{qsr.RCC2, "boom"}})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, boom)
}

type failCalc struct {
	*rcc2.Calculator
	err error
}

func (f failCalc) ID() qsr.ID { return "boom" }

func (f failCalc) Compute(*trace.Trace, []float64, *qsr.Request) (*qsr.WorldTrace, error) {
	return nil, f.err
}

func TestComputeGlobalOverride(t *testing.T) {
	t.Parallel()

	tr := testutil.NewTrace(t,
		testutil.BoxState("A", 0, 0, 0, 1, 1),
		testutil.BoxState("B", 0, 5, 5, 6, 6),
		testutil.BoxState("C", 0, 0.5, 0, 1.5, 1),
	)

	t.Run("ForAll field", func(t *testing.T) {
		t.Parallel()
		global := qsr.NewSelection("A,C")
		out, err := New().Compute(&qsr.Request{Trace: tr, QSRs: []qsr.ID{qsr.RCC2}, ForAll: &global})
		require.NoError(t, err)
		assert.Equal(t, []qsr.Key{"A,C"}, out.Keys(0))
	})

	t.Run("reserved scope in For", func(t *testing.T) {
		t.Parallel()
		req := &qsr.Request{
			Trace: tr,
			QSRs:  []qsr.ID{qsr.RCC2},
			For:   map[qsr.ID]qsr.Selection{qsr.AllCalculators: qsr.NewSelection("B,C")},
		}
		out, err := New().Compute(req)
		require.NoError(t, err)
		assert.Equal(t, []qsr.Key{"B,C"}, out.Keys(0))
		assert.Nil(t, req.ForAll, "caller's request is not modified")
	})
}

func TestConfigure(t *testing.T) {
	t.Parallel()

	tr := testutil.Tracks(t,
		testutil.Track("A", testutil.Point{X: 0, Y: 0}, testutil.Point{X: 0.2, Y: 0}),
		testutil.Track("B", testutil.Point{X: 5, Y: 0}, testutil.Point{X: 5, Y: 0}),
	)
	q := 0.5
	e := New()
	require.NoError(t, e.Configure(&config.Config{
		QSRs: []string{"qtcbs"},
		QTC:  &config.QTCConfig{QuantisationFactor: &q},
	}))

	out, err := e.Compute(&qsr.Request{Trace: tr})
	require.NoError(t, err)
	assert.Equal(t, []qsr.ID{qsr.QTCBS}, out.QSRs)
	l, _ := out.Label(1, "A,B", qsr.QTCBS)
	assert.Equal(t, "00", l)

	bad := -1.0
	assert.Error(t, e.Configure(&config.Config{QTC: &config.QTCConfig{DistanceThreshold: &bad}}))
	require.NoError(t, e.Configure(nil))
	_, err = e.Compute(&qsr.Request{Trace: tr})
	assert.ErrorIs(t, err, ErrNoCalculators)
}

func TestComputeLogsRun(t *testing.T) {
	var lines []string
	var mu sync.Mutex
	prev := monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	defer monitoring.SetLogger(prev)

	_, err := New().Compute(&qsr.Request{Trace: scenarioTrace(t), QSRs: []qsr.ID{qsr.RCC2, qsr.RCC2}})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "[run="), l)
	}
	assert.Contains(t, lines[0], "[rcc2]")
}

func TestComputeRejectsNonFiniteBox(t *testing.T) {
	t.Parallel()

	tr := trace.New()
	require.NoError(t, tr.AddAll(
		trace.ObjectState{Name: "A", BBox: trace.NewBoundingBox2D(0, 0, 1, 1)},
		trace.ObjectState{Name: "B", BBox: trace.NewBoundingBox2D(math.NaN(), math.NaN(), math.NaN(), math.NaN())},
	))

	out, err := New().Compute(&qsr.Request{Trace: tr, QSRs: []qsr.ID{qsr.RCC2}})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, trace.ErrInvalidTrace)
}

func TestComputeWithDefaultConfigFile(t *testing.T) {
	t.Parallel()

	e := New()
	require.NoError(t, e.Configure(config.MustLoadDefaultConfig()))

	out, err := e.Compute(&qsr.Request{Trace: scenarioTrace(t)})
	require.NoError(t, err)
	assert.Equal(t, []qsr.ID{qsr.RCC2, qsr.QTCBS}, out.QSRs)
	assert.Equal(t, []qsr.Entry{{Timestamp: 1, Label: "0-"}, {Timestamp: 2, Label: "00"}},
		out.Sequence("A,B", qsr.QTCBS))
}

func TestComputeNilRequest(t *testing.T) {
	t.Parallel()

	_, err := New().Compute(nil)
	assert.Error(t, err)
}
