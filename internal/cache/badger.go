package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// durableKeyPrefix versions the on-disk format so a schema change never
// deserializes stale bytes; bumping it orphans old entries, which expire
// via TTL on their own.
const durableKeyPrefix = "graph/v1/"

// Durable is the interface the tiered store needs from its second tier,
// kept narrow so tests can substitute an in-memory fake.
type Durable interface {
	load(key string) (*Entry, error)
	save(key string, e *Entry) error
}

// BadgerStore persists cache entries in an embedded BadgerDB with a fixed
// TTL. Expiry is enforced by Badger itself: expired keys come back as
// ErrKeyNotFound, which reads treat as a miss.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadger opens (or creates) a Badger database at dir.
func OpenBadger(dir string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db at %s: %w", dir, err)
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func durableKey(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return []byte(durableKeyPrefix + hex.EncodeToString(sum[:]))
}

func (s *BadgerStore) load(key string) (*Entry, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(durableKey(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("durable cache read: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// Undecodable entries are treated as absent; they age out via TTL.
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *BadgerStore) save(key string, e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("durable cache encode: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(durableKey(key), raw).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("durable cache write: %w", err)
	}
	return nil
}
