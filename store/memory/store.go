// Package memory provides an in-process Store implementation backed by a guarded map,
// the reference adapter and the primary test vehicle for txn's state machine. The scope
// entry points never fall back to it on their own; it is used only when passed as a
// store or registered as the runtime's default store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/flowforge/txncoord/store"
)

type entry struct {
	value  any
	record *store.ResultRecord
}

type lock struct {
	holder store.Holder
}

// Store is a map-backed store.Store. It supports both isolation levels: READ_COMMITTED
// trivially (no locking performed), SERIALIZABLE via an in-process per-key table of lock
// holders; acquiring a key held by another holder fails at once rather than waiting.
// A zero Store is not usable; construct one with New.
type Store struct {
	mu sync.Mutex

	data  map[string]entry
	locks map[string]lock

	metadata store.MetadataStorage
}

// New returns a ready-to-use Store with no metadata sink configured.
func New() *Store {
	return &Store{
		data:     make(map[string]entry),
		locks:    make(map[string]lock),
		metadata: store.NullMetadataStorage{},
	}
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *Store) Read(ctx context.Context, key string, holder store.Holder) (*store.ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	if e.record != nil {
		rec := *e.record
		return &rec, nil
	}
	return &store.ResultRecord{Key: key, Value: e.value}, nil
}

func (s *Store) Write(ctx context.Context, key string, value any, holder store.Holder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: value}
	return nil
}

func (s *Store) PersistResultRecord(ctx context.Context, record *store.ResultRecord, holder store.Holder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := *record
	s.data[rec.Key] = entry{value: rec.Value, record: &rec}
	return nil
}

// AcquireLock grants key to holder if unheld, or if already held by the same holder
// (idempotent re-acquire within a single transaction's lifetime). Contention returns an
// error for the caller's retry loop to back off and try again.
func (s *Store) AcquireLock(ctx context.Context, key string, holder store.Holder, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok && l.holder != holder {
		return store.ErrLockHeld
	}
	s.locks[key] = lock{holder: holder}
	return nil
}

// ReleaseLock is idempotent: releasing an unheld lock, or one held by a different
// holder than the caller claims, is not an error.
func (s *Store) ReleaseLock(ctx context.Context, key string, holder store.Holder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok && l.holder == holder {
		delete(s.locks, key)
	}
	return nil
}

func (s *Store) SupportsIsolationLevel(level store.IsolationLevel) bool {
	switch level {
	case store.IsolationUnset, store.ReadCommitted, store.Serializable:
		return true
	default:
		return false
	}
}

func (s *Store) MetadataStorage() store.MetadataStorage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

// WithMetadataStorage returns a shallow copy of s sharing the same underlying data and
// lock tables but with its own metadata sink, so clearing a null sink on one handle
// never affects a sibling handle obtained before the copy. Passing nil installs
// store.DefaultMetadataStorage — a genuinely non-null sink backed by this store's own
// PersistResultRecord path — rather than reinstating NullMetadataStorage, so the clear
// is observable: MetadataStorage().Kind() reports Normal afterward, never Null again.
func (s *Store) WithMetadataStorage(ms store.MetadataStorage) store.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ms == nil {
		ms = store.DefaultMetadataStorage{}
	}
	return &sharedStore{Store: s, metadata: ms}
}

// sharedStore overrides MetadataStorage on top of a shared Store without copying its
// data or lock tables, so every copy-on-write handle still observes the same records.
type sharedStore struct {
	*Store
	metadata store.MetadataStorage
}

func (s *sharedStore) MetadataStorage() store.MetadataStorage {
	return s.metadata
}

func (s *sharedStore) WithMetadataStorage(ms store.MetadataStorage) store.Store {
	if ms == nil {
		ms = store.DefaultMetadataStorage{}
	}
	return &sharedStore{Store: s.Store, metadata: ms}
}
