// Package txn implements a nested transaction coordinator for workflow
// orchestration runtimes: a bounded scope within which a result is staged,
// persisted on success, and rolled back on failure, with user-registered
// hooks run at commit and rollback time.
//
// The package does not implement distributed consensus, cross-process two
// phase commit, or durability guarantees beyond what a concrete store
// provides. It does not schedule work; it only brackets it. Concrete result
// stores live in txn/store and its subpackages; the surrounding runtime that
// opens scopes around task executions is represented only by the thin
// collaborator interface in txn/runtime.
package txn

// Timeout model
//
// Acquiring the store's serializable lock, which happens in begin, is bounded
// by two limits: the caller-supplied context deadline/cancellation, and the
// transaction's lock retry count (Fibonacci backoff between attempts).
// Acquisition gives up at whichever limit is reached first. Locks are acquired with a holder token scoped to
// the transaction's lifetime and are always released on every terminal path,
// including a failed commit or rollback.
