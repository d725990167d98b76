// Package runtime stands in for the surrounding workflow engine spec.md treats as an
// external collaborator: it is a thin registration point scope entry points consult for
// a default result store and a default run logger, never a scheduler or policy engine.
package runtime

import (
	"log/slog"
	"sync"

	"github.com/flowforge/txncoord/store"
)

var (
	mu           sync.RWMutex
	defaultStore store.Store
	runLogger    *slog.Logger
)

// RegisterDefaultStore sets the store scope entry points fall back to when a
// transaction has a Key but no explicit Store. Passing nil clears the registration.
func RegisterDefaultStore(s store.Store) {
	mu.Lock()
	defer mu.Unlock()
	defaultStore = s
}

// DefaultStore returns the registered default store, if any.
func DefaultStore() (store.Store, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return defaultStore, defaultStore != nil
}

// RegisterRunLogger sets the logger scope entry points fall back to when no explicit
// logger was supplied, representing the run-scoped logger a workflow engine would hand
// to task code it invokes. Passing nil clears the registration.
func RegisterRunLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	runLogger = l
}

// RunLogger returns the registered ambient run logger, if any.
func RunLogger() (*slog.Logger, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return runLogger, runLogger != nil
}
