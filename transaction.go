package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flowforge/txncoord/store"
	"github.com/sethvargo/go-retry"
)

// Transaction is the central entity of the coordinator: it holds lifecycle state, a
// staged value, registered hooks, adopted children, a store handle and the key/holder
// pair used to address it there. A Transaction is owned by a single flow of control —
// the goroutine that entered it and whatever hooks it runs — and is not safe to share
// across goroutines concurrently, matching the scope described in spec.md §3.
type Transaction struct {
	mu sync.Mutex

	key            string
	store          store.Store
	commitMode     CommitMode
	isolationLevel IsolationLevel
	overwrite      bool
	writeOnCommit  bool
	logger         *slog.Logger

	state           TransactionState
	stagedValue     any
	onCommitHooks   []Hook
	onRollbackHooks []Hook
	children        []*Transaction
	storedValues    map[string]any

	holder      store.Holder
	lockHeld    bool
	lockTTL     time.Duration
	lockRetries uint64

	// shortCircuited is set by begin when overwrite is false and a record already
	// exists at key. It suppresses Stage and the commit-time store write without
	// otherwise affecting the state machine: per the testable scenario for this path,
	// the body may still run and on-commit hooks still fire exactly once through the
	// ordinary Commit call, only the persistence step and any staged value are
	// skipped. state only becomes Committed when Commit actually runs, keeping a
	// second Commit call correctly idempotent.
	shortCircuited bool

	parent  *Transaction
	entered bool
}

// newTransaction builds a Transaction in the PENDING state from resolved scope options.
// It never touches the store or the ambient context; that happens in prepare/begin.
func newTransaction(opts Options, defaults Defaults, logger *slog.Logger) *Transaction {
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaults.LockTTL
	}
	lockRetries := opts.LockRetries
	if lockRetries == 0 {
		lockRetries = defaults.LockRetries
	}
	return &Transaction{
		key:            opts.Key,
		store:          opts.Store,
		commitMode:     opts.CommitMode,
		isolationLevel: opts.IsolationLevel,
		overwrite:      opts.Overwrite,
		writeOnCommit:  opts.writeOnCommit(),
		logger:         logger,
		state:          Pending,
		holder:         newHolder(),
		lockTTL:        lockTTL,
		lockRetries:    lockRetries,
	}
}

// State returns the transaction's current lifecycle position.
func (t *Transaction) State() TransactionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Key returns the transaction's persistence key, or "" if persistence is disabled.
func (t *Transaction) Key() string {
	return t.key
}

// Holder returns the lock/attribution identity this transaction presents to its store.
func (t *Transaction) Holder() store.Holder {
	return t.holder
}

// prepare asserts the transaction has not already been entered, resolves an unset
// commit mode or isolation level from parent (defaulting to Lazy/ReadCommitted at the
// root), validates the store supports the resolved isolation level, and advances state
// to ACTIVE. The parent reference is captured here and never re-derived from the
// ambient context stack later, per the Design Note on parent discovery after reset.
func (t *Transaction) prepare(ctx context.Context, parent *Transaction) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entered {
		return newError(Reentry, t.key, errors.New("transaction already entered"))
	}

	t.parent = parent
	if t.commitMode == CommitModeUnset {
		if parent != nil {
			t.commitMode = parent.commitMode
		} else {
			t.commitMode = Lazy
		}
	}
	if t.isolationLevel == IsolationUnset {
		if parent != nil {
			t.isolationLevel = parent.isolationLevel
		} else {
			t.isolationLevel = ReadCommitted
		}
	}

	if t.store != nil && t.key != "" && !t.store.SupportsIsolationLevel(t.isolationLevel) {
		return newError(Configuration, t.isolationLevel,
			fmt.Errorf("store does not support isolation level %s", t.isolationLevel))
	}

	t.state = Active
	t.entered = true
	return nil
}

// begin acquires the serializable lock, if applicable, then marks the transaction
// short-circuited if overwrite is false and a record already exists at key — stage
// becomes a no-op and commit will skip the write, but hooks still run. state is left
// unchanged; it becomes COMMITTED only when Commit runs.
func (t *Transaction) begin(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isolationLevel == Serializable && t.store != nil && t.key != "" {
		if err := t.acquireLockLocked(ctx); err != nil {
			return err
		}
	}

	if !t.overwrite && t.store != nil && t.key != "" {
		exists, err := t.store.Exists(ctx, t.key)
		if err != nil {
			return err
		}
		if exists {
			t.shortCircuited = true
		}
	}
	return nil
}

func (t *Transaction) acquireLockLocked(ctx context.Context) error {
	err := retryWithBackoff(ctx, t.lockRetries, func(ctx context.Context) error {
		if err := t.store.AcquireLock(ctx, t.key, t.holder, t.lockTTL); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return newError(LockAcquisitionFailure, t.key, err)
	}
	t.lockHeld = true
	return nil
}

// releaseLockLocked is idempotent and safe to call on every terminal path, including
// ones that never acquired a lock.
func (t *Transaction) releaseLockLocked(ctx context.Context) {
	if !t.lockHeld {
		return
	}
	if err := t.store.ReleaseLock(ctx, t.key, t.holder); err != nil {
		t.logger.Error("failed to release lock", "key", t.key, "error", err)
	}
	t.lockHeld = false
}

// Stage replaces the staged value and appends the given hooks, unless the transaction
// is already COMMITTED or was short-circuited by begin's overwrite=false path, in which
// case it is a no-op. Repeated calls replace the value but always append hooks.
func (t *Transaction) Stage(value any, onCommit, onRollback []Hook) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Committed || t.shortCircuited {
		return
	}
	t.stagedValue = value
	t.onCommitHooks = append(t.onCommitHooks, onCommit...)
	t.onRollbackHooks = append(t.onRollbackHooks, onRollback...)
	t.state = Staged
}

// Read returns the record stored under key attributed to this transaction's holder, or
// nil if persistence is disabled (no store or no key).
func (t *Transaction) Read(ctx context.Context) (*store.ResultRecord, error) {
	t.mu.Lock()
	st, key, holder := t.store, t.key, t.holder
	t.mu.Unlock()

	if st == nil || key == "" {
		return nil, nil
	}
	return st.Read(ctx, key, holder)
}

// Commit is idempotent: it returns false once the transaction is already terminal.
// Otherwise it commits children in insertion order, runs on-commit hooks in
// registration order, persists the staged value if configured, and advances to
// COMMITTED. A hook or persistence failure is logged and substituted with a rollback —
// the failure never propagates to the caller, matching the commit-time recovery policy.
func (t *Transaction) Commit(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commitLocked(ctx)
}

func (t *Transaction) commitLocked(ctx context.Context) bool {
	if t.state.terminal() {
		t.releaseLockLocked(ctx)
		return false
	}

	for _, child := range t.children {
		child.Commit(ctx)
	}

	for _, h := range t.onCommitHooks {
		if err := t.runHook(ctx, h, "commit"); err != nil {
			t.logger.Error("commit hook failed, rolling back", "key", t.key, "error", err)
			_, _ = t.rollbackLocked(ctx)
			return false
		}
	}

	if t.store != nil && t.key != "" && t.writeOnCommit && !t.shortCircuited {
		if err := t.persistLocked(ctx); err != nil {
			t.logger.Warn("failed to persist staged value, rolling back", "key", t.key, "error", err)
			_, _ = t.rollbackLocked(ctx)
			return false
		}
	}

	t.state = Committed
	t.releaseLockLocked(ctx)
	return true
}

func (t *Transaction) persistLocked(ctx context.Context) error {
	switch v := t.stagedValue.(type) {
	case store.ResultRecord:
		return t.store.PersistResultRecord(ctx, &v, t.holder)
	case *store.ResultRecord:
		return t.store.PersistResultRecord(ctx, v, t.holder)
	default:
		return t.store.Write(ctx, t.key, t.stagedValue, t.holder)
	}
}

// Rollback is idempotent: it returns false once the transaction is already terminal.
// Otherwise it runs on-rollback hooks in reverse registration order, advances to
// ROLLED_BACK, then rolls back children in reverse insertion order. A rollback hook
// failure is propagated to the caller, wrapped, after the state transition has already
// happened; the lock is always released regardless of hook outcome.
func (t *Transaction) Rollback(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackLocked(ctx)
}

func (t *Transaction) rollbackLocked(ctx context.Context) (bool, error) {
	if t.state.terminal() {
		t.releaseLockLocked(ctx)
		return false, nil
	}

	var hookErr error
	for i := len(t.onRollbackHooks) - 1; i >= 0; i-- {
		if err := t.runHook(ctx, t.onRollbackHooks[i], "rollback"); err != nil && hookErr == nil {
			hookErr = err
		}
	}

	t.state = RolledBack

	for i := len(t.children) - 1; i >= 0; i-- {
		t.children[i].Rollback(ctx)
	}

	t.releaseLockLocked(ctx)

	if hookErr != nil {
		return false, fmt.Errorf("transaction %q rollback: %w", t.key, hookErr)
	}
	return true, nil
}

// reset removes self from the ambient stack (a no-op here, since the context.Context
// the caller holds already reverts to the prior frame once this scope's derived context
// goes out of use) and, if a parent was captured at prepare time, adopts self as the
// parent's child and, if this transaction ended ROLLED_BACK, propagates rollback to the
// parent.
func (t *Transaction) reset(ctx context.Context) error {
	t.mu.Lock()
	parent := t.parent
	rolledBack := t.state == RolledBack
	t.mu.Unlock()

	if parent == nil {
		return nil
	}
	parent.adopt(t)
	if rolledBack {
		_, err := parent.Rollback(ctx)
		return err
	}
	return nil
}

func (t *Transaction) adopt(child *Transaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children = append(t.children, child)
}

// Set overwrites the local stored-value entry under name. The stored value is not
// copied on the way in; only Get copies, on the way out.
func (t *Transaction) Set(name string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.storedValues == nil {
		t.storedValues = make(map[string]any)
	}
	t.storedValues[name] = value
}

// Get returns a deep copy of the local entry under name, if present; otherwise it
// delegates to the parent captured at prepare time. With no local entry, no parent, and
// no def, it fails with an UnknownKey error. A caller must call Set to persist any
// change made to the returned value — mutating it has no effect on the transaction.
func (t *Transaction) Get(name string, def ...any) (any, error) {
	t.mu.Lock()
	if v, ok := t.storedValues[name]; ok {
		t.mu.Unlock()
		return deepCopy(v), nil
	}
	parent := t.parent
	t.mu.Unlock()

	if parent != nil {
		return parent.Get(name, def...)
	}
	if len(def) > 0 {
		return def[0], nil
	}
	return nil, newError(UnknownKey, name, errors.New("no stored value and no default given"))
}
