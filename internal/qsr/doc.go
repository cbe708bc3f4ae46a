// Package qsr owns the relation calculator contract.
//
// Responsibilities: calculator identifiers and entity-keys, the typed
// relation request with its entity-selection overrides, per-timestep
// entity-key resolution, the World QSR Trace that calculators emit, and
// the Preflight/Execute/Run orchestration that drives one calculator.
//
// Concrete calculators live in sub-packages (rcc2, qtc) and depend on this
// package, never the other way round. The registry that maps identifiers
// to calculators lives in internal/engine.
package qsr
