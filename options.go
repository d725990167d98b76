package txn

import (
	"log/slog"
	"time"

	"github.com/flowforge/txncoord/store"
)

// Options configures a scope entry point (Run or Go). Unset fields take the defaults
// described in spec.md's configuration table: CommitMode/IsolationLevel inherit from
// the ambient parent transaction (falling back to Lazy/ReadCommitted at the root);
// Store, when nil and Key is set, is resolved from the ambient runtime; WriteOnCommit,
// when nil, defaults to true.
type Options struct {
	// Key identifies the persisted record. Leaving it empty disables persistence and
	// locking for this transaction.
	Key string
	// Store is the backing result store. If nil and Key is set, the ambient runtime's
	// default store (txn/runtime.DefaultStore) is used.
	Store store.Store
	// CommitMode controls when the state machine commits at scope exit.
	CommitMode CommitMode
	// IsolationLevel controls whether a per-key serializable lock is taken.
	IsolationLevel IsolationLevel
	// Overwrite, when false, makes the scope short-circuit at begin if a record already
	// exists at Key: Stage becomes a no-op and Commit skips the store write.
	Overwrite bool
	// WriteOnCommit, when false, makes commit run hooks and advance state without
	// writing the staged value to the store. Defaults to true when nil.
	WriteOnCommit *bool
	// Logger overrides the logger resolution order described in spec.md §6.
	Logger *slog.Logger
	// LockTTL bounds how long an acquired serializable lock is held before the store
	// may consider it abandoned. Defaults to Defaults.LockTTL.
	LockTTL time.Duration
	// LockRetries bounds the number of contention-backoff attempts made to acquire a
	// serializable lock before failing with a LockAcquisitionFailure error. Defaults to
	// Defaults.LockRetries.
	LockRetries uint64
}

func (o Options) writeOnCommit() bool {
	if o.WriteOnCommit == nil {
		return true
	}
	return *o.WriteOnCommit
}

// Defaults holds the package-wide tunables a host process can override via
// environment variables at startup, the way the teacher's SOP_LOG_LEVEL overrides the
// logging default. Only LockTTL and LockRetries are applied to transactions;
// CommitMode and IsolationLevel are loaded but not consulted, so a root transaction
// with those unset always resolves to Lazy and ReadCommitted.
type Defaults struct {
	CommitMode     CommitMode
	IsolationLevel IsolationLevel
	LockTTL        time.Duration
	LockRetries    uint64
}

// defaultDefaults is the built-in fallback before any environment override is applied.
var defaultDefaults = Defaults{
	CommitMode:     Lazy,
	IsolationLevel: ReadCommitted,
	LockTTL:        30 * time.Second,
	LockRetries:    5,
}
