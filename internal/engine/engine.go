// Package engine dispatches relation requests to registered calculators.
//
// A request is validated in full (unknown identifiers, overrides, the world
// trace and every calculator's parameters) before any computation starts.
// Independent calculators then run concurrently against the shared,
// read-only trace and their fragments are merged into one World QSR Trace.
// Callers get either the complete trace or a single error.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/qsrtrace/internal/config"
	"github.com/banshee-data/qsrtrace/internal/monitoring"
	"github.com/banshee-data/qsrtrace/internal/qsr"
	"github.com/banshee-data/qsrtrace/internal/qsr/qtc"
	"github.com/banshee-data/qsrtrace/internal/qsr/rcc2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoCalculators is returned when neither the request nor the
// configuration names a calculator.
var ErrNoCalculators = errors.New("engine: no calculators requested")

// Factory builds a fresh calculator for one request.
type Factory func() (qsr.Calculator, error)

// Engine is the calculator registry. It is safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	factories map[qsr.ID]Factory
	cfg       *config.Config
}

// NewEmpty returns an engine with no calculators registered.
func NewEmpty() *Engine {
	return &Engine{
		factories: make(map[qsr.ID]Factory),
		cfg:       config.Empty(),
	}
}

// New returns an engine with rcc2, qtcbs, qtccs and qtcbcs registered.
func New() *Engine {
	e := NewEmpty()
	e.mustRegister(qsr.RCC2, func() (qsr.Calculator, error) { return rcc2.New(), nil })
	for _, id := range []qsr.ID{qsr.QTCBS, qsr.QTCCS, qsr.QTCBCS} {
		tag, _ := qtc.TagForID(id)
		e.mustRegister(id, func() (qsr.Calculator, error) { return qtc.New(tag) })
	}
	return e
}

func (e *Engine) mustRegister(id qsr.ID, f Factory) {
	if err := e.Register(id, f); err != nil {
		panic(err)
	}
}

// Register adds a calculator factory under id.
func (e *Engine) Register(id qsr.ID, f Factory) error {
	if id == "" || id == qsr.AllCalculators {
		return fmt.Errorf("engine: %q is not a valid calculator identifier", id)
	}
	if f == nil {
		return fmt.Errorf("engine: nil factory for %q", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.factories[id]; dup {
		return fmt.Errorf("engine: calculator %q already registered", id)
	}
	e.factories[id] = f
	return nil
}

// IDs returns the registered identifiers, sorted.
func (e *Engine) IDs() []qsr.ID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]qsr.ID, 0, len(e.factories))
	for id := range e.factories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Configure installs a parsed configuration document. It is applied to
// every calculator built afterwards.
func (e *Engine) Configure(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Empty()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	return nil
}

// Calculator builds and configures the calculator registered under id.
func (e *Engine) Calculator(id qsr.ID) (qsr.Calculator, error) {
	e.mu.RLock()
	f, ok := e.factories[id]
	cfg := e.cfg
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", qsr.ErrUnknownCalculator, id)
	}

	c, err := f()
	if err != nil {
		return nil, fmt.Errorf("engine: build %s: %w", id, err)
	}
	if conf, ok := c.(qsr.Configurable); ok {
		if err := conf.Configure(cfg); err != nil {
			return nil, fmt.Errorf("engine: configure %s: %w", id, err)
		}
	}
	return c, nil
}

// Compute runs every calculator named by req and merges their output.
func (e *Engine) Compute(req *qsr.Request) (*qsr.WorldTrace, error) {
	if req == nil {
		return nil, errors.New("engine: nil request")
	}
	start := time.Now()
	logf := monitoring.RunLogger(uuid.NewString())

	req, ids, err := e.normalise(req)
	if err != nil {
		return nil, err
	}

	calcs := make([]qsr.Calculator, 0, len(ids))
	for _, id := range ids {
		c, err := e.Calculator(id)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, c)
	}
	for _, c := range calcs {
		if err := qsr.Preflight(c, req); err != nil {
			return nil, err
		}
	}
	logf("computing %v over %d timestamps", ids, req.Trace.Len())

	fragments := make([]*qsr.WorldTrace, len(calcs))
	var g errgroup.Group
	for i, c := range calcs {
		g.Go(func() error {
			out, err := qsr.Execute(c, req)
			if err != nil {
				return err
			}
			fragments[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logf("request failed: %v", err)
		return nil, err
	}

	merged := qsr.NewWorldTrace(ids...)
	for _, f := range fragments {
		if err := merged.Merge(f); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}
	logf("emitted %d relations in %s", merged.Len(), time.Since(start))
	return merged, nil
}

// normalise resolves the calculator list, folds a For[AllCalculators]
// entry into the global override and rejects overrides scoped to
// unregistered calculators. The caller's request is not modified.
func (e *Engine) normalise(req *qsr.Request) (*qsr.Request, []qsr.ID, error) {
	ids := req.QSRs
	if len(ids) == 0 {
		e.mu.RLock()
		for _, s := range e.cfg.GetQSRs() {
			ids = append(ids, qsr.ID(s))
		}
		e.mu.RUnlock()
	}
	if len(ids) == 0 {
		return nil, nil, ErrNoCalculators
	}

	seen := make(map[qsr.ID]struct{}, len(ids))
	uniq := make([]qsr.ID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			uniq = append(uniq, id)
		}
	}

	out := *req
	out.QSRs = uniq
	out.For = make(map[qsr.ID]qsr.Selection, len(req.For))

	e.mu.RLock()
	defer e.mu.RUnlock()
	for id, sel := range req.For {
		if id == qsr.AllCalculators {
			if out.ForAll == nil {
				s := sel
				out.ForAll = &s
			}
			continue
		}
		if _, ok := e.factories[id]; !ok {
			return nil, nil, fmt.Errorf("override scope: %w: %q", qsr.ErrUnknownCalculator, id)
		}
		out.For[id] = sel
	}
	return &out, uniq, nil
}
