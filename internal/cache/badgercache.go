package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// badgerKeyPrefix namespaces cache entries within a shared BadgerDB
// instance, versioned so a future on-disk format change can't collide
// with entries written by an older build.
const badgerKeyPrefix = "jsdeminify/cache/v1/"

// badgerDefaultTTL bounds how long an entry survives without being
// refreshed by a new Put, enforced by BadgerDB's own GC rather than
// application-level expiry checks.
const badgerDefaultTTL = 30 * 24 * time.Hour

// BadgerCache is an alternate Store backed by an embedded BadgerDB
// instance, for large repositories where one-file-per-function would
// create an unwieldy number of cache directory entries. Grounded on the
// same embedded-KV, gob-encoded, TTL'd design as the teacher's tool
// embedding cache (BadgerRouterCacheStore).
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerCache opens (or creates) a BadgerDB database at dir.
func NewBadgerCache(dir string, ttl time.Duration) (*BadgerCache, error) {
	if ttl <= 0 {
		ttl = badgerDefaultTTL
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger db at %q: %w", dir, err)
	}
	return &BadgerCache{db: db, ttl: ttl}, nil
}

// Close releases the underlying BadgerDB instance. Callers own the
// BadgerCache's lifecycle the way the teacher's own db wrapper expects
// callers to own theirs.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

func (c *BadgerCache) Get(key string) (Entry, bool, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: badger get %q: %w", key, err)
	}

	entry, err := gobDecodeEntry(raw)
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return entry, true, nil
}

func (c *BadgerCache) Put(entry Entry) error {
	raw, err := gobEncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", entry.Hash, err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(badgerKeyPrefix+entry.Hash), raw).WithTTL(c.ttl)
		return txn.SetEntry(e)
	})
}

func gobEncodeEntry(entry Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecodeEntry(raw []byte) (Entry, error) {
	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}
