// Package trace owns the input data model: object states grouped into
// per-timestamp world snapshots, and the time-ordered world trace built
// from them.
//
// A Trace is produced by the caller and is read-only to the relation
// calculators. It may be shared freely across concurrent calculator runs
// once it has been built.
//
// No relation logic is allowed in this package.
package trace
