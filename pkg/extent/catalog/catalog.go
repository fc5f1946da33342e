// Package catalog implements the durable extent metadata catalog
// (spec §4.D): a BadgerDB-backed mapping from extent id to its
// placement, size, and last-modify time, with point lookup, paged list,
// delete, and full iteration for garbage collection.
//
// The key namespace uses a prefixed-key design: a primary record keyed
// by id ("e:<id>") and a secondary ordering keyed by an internal
// monotonic sequence ("s:<sequence>" -> id) so paged iteration does not
// require scanning or sorting the primary index.
package catalog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/azstorecore/core/pkg/extent"
)

const (
	prefixExtent   = "e:"
	prefixSequence = "s:"
	keySeqCounter  = "meta:seqcounter"
)

func keyExtent(id string) []byte {
	return []byte(prefixExtent + id)
}

func keySequence(seq uint64) []byte {
	b := make([]byte, len(prefixSequence)+8)
	copy(b, prefixSequence)
	binary.BigEndian.PutUint64(b[len(prefixSequence):], seq)
	return b
}

func sequenceFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(prefixSequence):])
}

func encodeRecord(r *extent.Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode record: %w", err)
	}
	return b, nil
}

func decodeRecord(b []byte) (*extent.Record, error) {
	var r extent.Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("catalog: decode record: %w", err)
	}
	return &r, nil
}

// Catalog is the BadgerDB-backed extent metadata catalog. A single
// instance owns one BadgerDB handle; the Service Properties Store
// (pkg/serviceprops) may share the same handle under its own key prefix.
type Catalog struct {
	db  *badger.DB
	seq atomic.Uint64
}

// Options configures how the catalog opens its backing store.
type Options struct {
	// Path is the BadgerDB directory. Empty means in-memory (tests).
	Path string
	// InMemory forces badger.DefaultOptions("").WithInMemory(true),
	// ignoring Path. Used by catalog/properties tests per SPEC_FULL §8.
	InMemory bool
}

// Open opens (creating if necessary) the extent metadata catalog and
// rebuilds the in-memory sequence counter from the "s:" key range. It
// does not sync to disk itself; store.Open calls Sync once afterwards.
func Open(opts Options) (*Catalog, error) {
	var badgerOpts badger.Options
	if opts.InMemory || opts.Path == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.recoverSequence(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// recoverSequence scans the "s:" key range for the highest sequence seen
// and primes the in-memory counter so newly inserted records continue
// the monotonic order across restarts.
func (c *Catalog) recoverSequence() error {
	var maxSeq uint64
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixSequence)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			seq := sequenceFromKey(it.Item().Key())
			if seq > maxSeq {
				maxSeq = seq
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("catalog: recover sequence: %w", err)
	}
	c.seq.Store(maxSeq)
	return nil
}

// Close flushes and closes the catalog. Safe to call once.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DB returns the underlying BadgerDB handle so the Service Properties
// Store can share it under its own key prefix instead of opening a
// second database.
func (c *Catalog) DB() *badger.DB {
	return c.db
}

// Sync forces BadgerDB to flush its value log, used by the autosave
// ticker (spec §4.D: "autosaved at a fixed cadence").
func (c *Catalog) Sync() error {
	return c.db.Sync()
}

// Size returns the catalog's on-disk footprint (LSM tree plus value
// log), for the catalog_size gauge. Zero for in-memory catalogs.
func (c *Catalog) Size() int64 {
	lsm, vlog := c.db.Size()
	return lsm + vlog
}

// Upsert inserts the record if its id is absent, assigning a fresh
// sequence; otherwise updates size, lastModifyMs, destinationId, and
// relativePath while preserving the original sequence.
func (c *Catalog) Upsert(ctx context.Context, r extent.Record) error {
	if err := ctx.Err(); err != nil {
		return extent.NewOperationCancelledError(err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyExtent(r.ID))
		switch {
		case err == badger.ErrKeyNotFound:
			r.Sequence = c.seq.Add(1)
			if err := txn.Set(keySequence(r.Sequence), []byte(r.ID)); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			existing, decErr := decodeFromItem(item)
			if decErr != nil {
				return decErr
			}
			r.Sequence = existing.Sequence
		}

		encoded, err := encodeRecord(&r)
		if err != nil {
			return err
		}
		return txn.Set(keyExtent(r.ID), encoded)
	})
}

func decodeFromItem(item *badger.Item) (*extent.Record, error) {
	var r *extent.Record
	err := item.Value(func(val []byte) error {
		decoded, decErr := decodeRecord(val)
		if decErr != nil {
			return decErr
		}
		r = decoded
		return nil
	})
	return r, err
}

// Get returns the record for id, or ExtentNotFound.
func (c *Catalog) Get(ctx context.Context, id string) (*extent.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, extent.NewOperationCancelledError(err)
	}

	var record *extent.Record
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyExtent(id))
		if err == badger.ErrKeyNotFound {
			return extent.NewExtentNotFoundError(id)
		}
		if err != nil {
			return err
		}
		decoded, err := decodeFromItem(item)
		if err != nil {
			return err
		}
		record = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes the record for id. Idempotent: deleting an id that does
// not exist is not an error, matching BadgerDB's own no-op-on-missing-key
// semantics for txn.Delete (Open Question #2).
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return extent.NewOperationCancelledError(err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyExtent(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		record, err := decodeFromItem(item)
		if err != nil {
			return err
		}
		if err := txn.Delete(keyExtent(id)); err != nil {
			return err
		}
		return txn.Delete(keySequence(record.Sequence))
	})
}
