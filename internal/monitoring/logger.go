package monitoring

import (
	"log"
	"sync"
)

var (
	mu   sync.RWMutex
	logf = log.Printf
)

// Logf writes a diagnostic line through the current logger. It defaults to
// log.Printf and is safe to call from concurrent calculator runs.
func Logf(format string, v ...interface{}) {
	mu.RLock()
	f := logf
	mu.RUnlock()
	f(format, v...)
}

// SetLogger replaces the package logger and returns the previous one so
// tests can restore it. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) func(format string, v ...interface{}) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	mu.Lock()
	prev := logf
	logf = f
	mu.Unlock()
	return prev
}

// RunLogger returns a logger that prefixes every line with a run ID, so
// interleaved lines from concurrent requests can be told apart.
func RunLogger(runID string) func(format string, v ...interface{}) {
	prefix := "[run=" + runID + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
