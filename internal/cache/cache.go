// Package cache implements CompressionCache (spec §4.5): a persistent,
// fingerprint-keyed artifact store with TTL, backed by BadgerDB. The
// transaction shape and prefix-iteration pattern are adapted from the
// teacher's services/trace/graph/snapshot.go; the native-TTL entry and
// graceful-degradation philosophy are adapted from
// services/trace/agent/routing/router_cache.go.
package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Metadata is the advisory cache-record metadata from spec §3: used by the
// browser collaborator, never consulted for retrieval correctness.
type Metadata struct {
	PromptName        string
	PromptContentHash string
	Model             string
	Provider          string
}

type record struct {
	Artifact  string
	Metadata  Metadata
	CreatedAt int64
	ExpiresAt int64
}

// Cache is a persistent, linearizable-per-key fingerprint store.
//
// Description:
//
//	Stores gob-encoded records under BadgerDB, keyed by the fingerprint
//	strings internal/compressor derives from a symbol's identity. A set(k,v)
//	followed by try_get(k) in the same happens-before chain returns v or a
//	later write — Badger's own transaction isolation gives us this for
//	free. Every method degrades gracefully on a nil *Cache (miss/no-op
//	instead of a panic), so a caller that opted out of caching never needs
//	a separate code path.
//
// Thread Safety: Safe for concurrent use across goroutines; Badger handles
// its own internal locking.
type Cache struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) a Badger store at dir.
//
// Description:
//
//	Following the teacher's graceful-degradation philosophy, callers that
//	cannot tolerate a cache should treat a non-nil error here as fatal;
//	callers that can tolerate running without a cache may choose to log and
//	proceed with a nil *Cache.
//
// Inputs:
//   - dir: Directory for Badger's LSM tree and value log. Created if absent.
//   - logger: Used for warnings on degraded reads/writes. Falls back to
//     slog.Default() if nil.
//
// Outputs:
//   - *Cache: The opened store.
//   - error: Non-nil if Badger fails to open dir.
func Open(dir string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: opening badger store at %s: %w", dir, err)
	}
	return &Cache{db: db, logger: logger}, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// TryGet is an idempotent read.
//
// Description:
//
//	Looks up key and decodes its gob record. A missing key, a corrupt
//	record, or any Badger read failure is uniformly treated as a miss per
//	spec §4.5 — callers never distinguish "not cached" from "cache
//	degraded" and simply recompute.
//
// Inputs:
//   - key: The fingerprint string to look up.
//
// Outputs:
//   - string: The cached artifact, valid only when the second value is true.
//   - bool: true on a live, decodable hit; false on any miss or failure.
//
// Thread Safety: Safe for concurrent use.
func (c *Cache) TryGet(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	var artifact string
	found := false
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var rec record
			dec := gob.NewDecoder(bytes.NewReader(val))
			if err := dec.Decode(&rec); err != nil {
				c.logger.Warn("cache: corrupt record treated as miss", slog.String("key", key), slog.String("error", err.Error()))
				return nil
			}
			artifact = rec.Artifact
			found = true
			return nil
		})
	})
	if err != nil {
		c.logger.Warn("cache: read failed, degrading to miss", slog.String("key", key), slog.String("error", err.Error()))
		return "", false
	}
	return artifact, found
}

// Set durably writes key->artifact, overwriting any existing value.
//
// Description:
//
//	Encodes artifact plus advisory Metadata and timestamps as a gob record
//	and writes it with a native Badger TTL entry, so expired records are
//	reclaimed by Badger itself rather than by an explicit sweep. A write
//	failure is not fatal to the caller's pipeline — the next run simply
//	recomputes — but the error is still returned so Compressor can apply
//	its own logging/tracing around it per spec §4.6's failure policy.
//
// Inputs:
//   - key: The fingerprint string to write under.
//   - artifact: The value to cache.
//   - ttl: Time until Badger expires the entry.
//   - metadata: Advisory fields consulted by tooling, never by TryGet.
//
// Outputs:
//   - error: Non-nil on encode or Badger write failure.
//
// Thread Safety: Safe for concurrent use.
func (c *Cache) Set(key, artifact string, ttl time.Duration, metadata Metadata) error {
	if c == nil {
		return nil
	}
	now := time.Now()
	rec := record{
		Artifact:  artifact,
		Metadata:  metadata,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("cache: encoding record for %s: %w", key, err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), buf.Bytes()).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// Exists reports whether key has a live (non-expired) entry, without
// decoding its value.
func (c *Cache) Exists(key string) bool {
	if c == nil {
		return false
	}
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	return err == nil
}

// InvalidatePattern removes every key matching pattern.
//
// Description:
//
//	Supports exactly two shapes: a trailing "*" (e.g. "optimization_foo_*")
//	triggers Badger's native prefix iteration and deletes every key sharing
//	that prefix; any other pattern is deleted as a single exact key. A "*"
//	appearing anywhere other than the final character is not a glob — it is
//	matched literally, like any other byte — so callers that need "every
//	symbol in file X" must invalidate each symbol's exact fingerprint
//	themselves rather than relying on a mid-string wildcard (see
//	internal/compressor's UpdateHierarchy).
//
// Inputs:
//   - pattern: An exact key, or a prefix followed by a single trailing "*".
//
// Outputs:
//   - error: Non-nil on a Badger transaction failure. A not-found exact key
//     is not an error.
//
// Thread Safety: Safe for concurrent use.
func (c *Cache) InvalidatePattern(pattern string) error {
	if c == nil {
		return nil
	}
	prefix, isPrefix := strings.CutSuffix(pattern, "*")
	if !isPrefix {
		return c.db.Update(func(txn *badger.Txn) error {
			err := txn.Delete([]byte(pattern))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		})
	}

	return c.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Size reports the approximate on-disk size in bytes across Badger's LSM
// tree and value log.
func (c *Cache) Size() (int64, error) {
	if c == nil {
		return 0, nil
	}
	lsm, vlog := c.db.Size()
	return lsm + vlog, nil
}

// Compact runs Badger's value-log garbage collection. A nil error and a
// "didn't run" ErrNoRewrite are both treated as success — there was simply
// nothing worth compacting.
func (c *Cache) Compact() error {
	if c == nil {
		return nil
	}
	err := c.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Clear removes every key in the store.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	return c.db.DropAll()
}
