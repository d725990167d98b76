package txn

import (
	"context"
	"fmt"

	"github.com/flowforge/txncoord/runtime"
	"github.com/flowforge/txncoord/store"
)

// Body is user code run inside a transaction's scope. It receives the context carrying
// the ambient transaction (retrievable via Current) and the transaction itself.
type Body func(ctx context.Context, tx *Transaction) error

// resolveScopeStore implements the two shared scope-entry steps from spec.md §4.5: fall
// back to the ambient runtime's default store when key is set but store is not, then
// clear an inherited null metadata sink via copy-on-write so the handle this
// transaction uses never silently keeps an ineffective metadata sink.
func resolveScopeStore(opts Options) (store.Store, error) {
	st := opts.Store
	if st == nil && opts.Key != "" {
		if s, ok := runtime.DefaultStore(); ok {
			st = s
		}
	}
	if st == nil {
		return nil, nil
	}
	if st.MetadataStorage().Kind() == store.MetadataStorageKindNull {
		st = st.WithMetadataStorage(nil)
	}
	return st, nil
}

// Run is the blocking scope entry point: it constructs a transaction, enters it on the
// calling goroutine, runs body synchronously, and exits per the scope-exit decision
// table before returning. A cooperative child committed by Run's exit path is driven to
// completion inline — the Go analogue needs no local event-loop runner, since every
// Store method already blocks on ctx the way the source's local-runner fallback would.
func Run(ctx context.Context, opts Options, body Body) error {
	st, err := resolveScopeStore(opts)
	if err != nil {
		return err
	}
	opts.Store = st

	logger := resolveLogger(opts.Logger, runtime.RunLogger)
	defaults := LoadDefaults()

	parent := Current(ctx)
	tx := newTransaction(opts, defaults, logger)

	if err := tx.prepare(ctx, parent); err != nil {
		return err
	}
	if err := tx.begin(ctx); err != nil {
		_, _ = tx.Rollback(ctx)
		return err
	}

	scopedCtx := push(ctx, tx)
	bodyErr := body(scopedCtx, tx)

	return exitScope(ctx, tx, bodyErr)
}

// exitScope applies the scope-exit decision table from spec.md §4.1: an exception
// always rolls back; otherwise behavior depends on commit mode and whether a parent
// exists. reset always runs last, adopting this transaction into its parent (and, if
// it ended rolled back, propagating rollback to it) regardless of which branch fired.
func exitScope(ctx context.Context, tx *Transaction, bodyErr error) error {
	hasParent := tx.parent != nil

	if bodyErr != nil {
		_, rbErr := tx.Rollback(ctx)
		if resetErr := tx.reset(ctx); resetErr != nil && rbErr == nil {
			rbErr = resetErr
		}
		if rbErr != nil {
			return newError(CallerFailure, tx.key, fmt.Errorf("%w (rollback: %v)", bodyErr, rbErr))
		}
		return newError(CallerFailure, tx.key, bodyErr)
	}

	switch tx.commitMode {
	case Eager:
		tx.Commit(ctx)
	case Off:
		if !hasParent {
			tx.Rollback(ctx)
		}
	case Lazy:
		if !hasParent {
			tx.Commit(ctx)
		}
	}

	return tx.reset(ctx)
}

// Go is the cooperative scope entry point. Its blocking/suspension distinction
// collapses onto Run in this port: every Store and Hook call already takes a
// context.Context for cancellation, so there is no separate coroutine state machine to
// drive — offloading declared-blocking hooks to the worker pool (see taskrunner.go) is
// the one place cooperative scheduling still matters, handled inside runHook via
// runOffloaded rather than by a second Transaction implementation. This also resolves the
// open question on a blocking commit driving a cooperative child to completion: since
// goroutines are preemptible by the Go scheduler rather than a single-threaded event
// loop, there is no nested-loop reentrancy hazard left to guard against — a child's
// Commit/Rollback simply blocks the calling goroutine until the child's own store and
// hook calls return, pool-backed or not.
func Go(ctx context.Context, opts Options, body Body) <-chan error {
	result := make(chan error, 1)
	pool := poolFromContext(ctx)
	if pool == nil {
		go func() { result <- Run(ctx, opts, body) }()
		return result
	}
	pool.Submit(func() {
		result <- Run(ctx, opts, body)
	})
	return result
}
