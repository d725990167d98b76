// Package store defines the contract a result store and lock manager must satisfy to
// back a txn.Transaction. Concrete backends (txn/store/memory, txn/store/redis) are
// pluggable implementations; the surrounding workflow engine and its storage subsystem
// are external collaborators this package only describes, not implements in full.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned by a LockManager's AcquireLock when key is currently held by
// a different holder. Callers retry acquisition through retryWithBackoff rather than
// treating this as terminal.
var ErrLockHeld = errors.New("store: lock held by another holder")

// Holder is the identity token a transaction presents to a Store for lock ownership
// and read/write attribution. It lives in this package, rather than txn, so the
// adapter contract has no dependency back on the transaction package.
type Holder string

// NewHolder returns a new randomly generated holder token.
func NewHolder() Holder {
	return Holder(uuid.NewString())
}

// IsNil reports whether h is the zero-value holder.
func (h Holder) IsNil() bool {
	return h == ""
}

// ResultRecord is a typed wrapper carrying a value together with the persistence
// metadata (key, codec hints) a store's record-persist path recognizes specially.
type ResultRecord struct {
	Key      string
	Value    any
	Metadata map[string]string
}

// LockKey names a single exclusive lock slot together with the holder that currently
// claims it, mirroring the lock-key shape used across the backends this contract is
// grounded on.
type LockKey struct {
	Key    string
	Holder Holder
}

// MetadataStorageKind distinguishes a real metadata sink from a null one. A null sink
// must never be inherited silently from a surrounding context — see WithMetadataStorage.
type MetadataStorageKind int

const (
	MetadataStorageKindNormal MetadataStorageKind = iota
	MetadataStorageKindNull
)

// MetadataStorage is the sink a store uses for ResultRecord metadata. A store that
// does not support metadata persistence returns a NullMetadataStorage.
type MetadataStorage interface {
	Kind() MetadataStorageKind
}

// NullMetadataStorage is the zero-effort MetadataStorage every store falls back to when
// none is configured.
type NullMetadataStorage struct{}

// DefaultMetadataStorage is the real, non-null MetadataStorage a Store installs on
// itself via WithMetadataStorage(nil): it means "persist ResultRecord.Metadata through
// the store's own write path" (the envelope every backend already round-trips), as
// opposed to NullMetadataStorage's "metadata is discarded." A handle whose sink is
// cleared this way always reports MetadataStorageKindNormal afterward, never Null.
type DefaultMetadataStorage struct{}

func (DefaultMetadataStorage) Kind() MetadataStorageKind { return MetadataStorageKindNormal }

func (NullMetadataStorage) Kind() MetadataStorageKind { return MetadataStorageKindNull }

// LockManager is the cooperative exclusive-lock half of the store contract, used when
// a transaction's isolation level is Serializable. AcquireLock must be safe under
// re-entry by the same holder failing to acquire twice is not required to be
// idempotent, but ReleaseLock must always be idempotent.
type LockManager interface {
	AcquireLock(ctx context.Context, key string, holder Holder, ttl time.Duration) error
	ReleaseLock(ctx context.Context, key string, holder Holder) error
}

// Store is the full adapter contract a transaction requires of an external result
// store. Every method already takes a context.Context, so a single implementation
// serves both the blocking and the cooperative scope entry points -- Go's context
// cancellation is the natural analogue of the source's separate sync/async method
// pairs (acquire_lock/aacquire_lock, read/aread, ...).
type Store interface {
	LockManager

	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string, holder Holder) (*ResultRecord, error)
	Write(ctx context.Context, key string, value any, holder Holder) error
	PersistResultRecord(ctx context.Context, record *ResultRecord, holder Holder) error

	SupportsIsolationLevel(level IsolationLevel) bool

	MetadataStorage() MetadataStorage
	// WithMetadataStorage returns a copy of the store with its metadata sink replaced.
	// Scope entry points call this with nil to clear a null metadata sink inherited
	// from a surrounding context, per spec: a handle must never silently keep an
	// ineffective metadata sink.
	WithMetadataStorage(ms MetadataStorage) Store
}

// IsolationLevel mirrors txn.IsolationLevel without importing the txn package, keeping
// this package dependency-free of the coordinator it serves.
type IsolationLevel int

const (
	IsolationUnset IsolationLevel = iota
	ReadCommitted
	Serializable
)

func (l IsolationLevel) String() string {
	switch l {
	case ReadCommitted:
		return "read-committed"
	case Serializable:
		return "serializable"
	default:
		return "unset"
	}
}
