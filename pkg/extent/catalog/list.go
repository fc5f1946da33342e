package catalog

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/azstorecore/core/pkg/extent"
)

// DefaultListLimit is applied when ListFilter.Limit is zero (spec §4.D:
// "limit defaults to 5000 when omitted").
const DefaultListLimit = 5000

// ListFilter is a structured predicate over the catalog, not a query
// DSL (spec §9, Open Question resolution #1 in DESIGN.md): each field is
// an optional constraint applied in plain Go code against decoded
// records during the sequence scan.
type ListFilter struct {
	// ID, if non-empty, restricts the result to a single exact id.
	ID string

	// Before, if non-nil, restricts to records whose LastModifyMs is
	// strictly less than *Before (milliseconds since epoch). This is
	// the "queryTime - unmodifiedSeconds*1000" bound from spec §4.D.
	Before *int64

	// Marker is the opaque pagination cursor: the internal sequence of
	// the last record returned by a previous call. Nil/absent means
	// "from the start" (DESIGN.md #1).
	Marker *uint64

	// Limit caps the number of records returned. Zero means
	// DefaultListLimit.
	Limit int
}

// Page is the result of a single List call.
type Page struct {
	Records []extent.Record

	// NextMarker is present iff the page is full (len(Records) ==
	// effective limit); it equals the internal sequence of the last
	// returned record. Absent (nil) means this was the final page.
	NextMarker *uint64
}

// List performs one page of the paged enumeration described in spec
// §4.D. Matching is applied in ascending sequence order so that
// concatenating pages until NextMarker is absent yields every record
// that matched at the moment iteration began (P6), provided the catalog
// is not concurrently mutated in a way that removes matched rows.
func (c *Catalog) List(ctx context.Context, filter ListFilter) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, extent.NewOperationCancelledError(err)
	}

	if filter.ID != "" {
		record, err := c.Get(ctx, filter.ID)
		if extent.IsNotFound(err) {
			return Page{}, nil
		}
		if err != nil {
			return Page{}, err
		}
		if filter.Before != nil && record.LastModifyMs >= *filter.Before {
			return Page{}, nil
		}
		return Page{Records: []extent.Record{*record}}, nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var startSeq uint64
	if filter.Marker != nil {
		startSeq = *filter.Marker + 1
	}

	var page Page
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixSequence)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(keySequence(startSeq)); it.ValidForPrefix(opts.Prefix); it.Next() {
			seq := sequenceFromKey(it.Item().Key())

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get(keyExtent(id))
			if err == badger.ErrKeyNotFound {
				// Sequence entry outlived its record (deleted
				// concurrently); skip rather than fail the page.
				continue
			}
			if err != nil {
				return err
			}
			record, err := decodeFromItem(item)
			if err != nil {
				return err
			}

			if filter.Before != nil && record.LastModifyMs >= *filter.Before {
				continue
			}

			page.Records = append(page.Records, *record)
			if len(page.Records) == limit {
				nextMarker := seq
				page.NextMarker = &nextMarker
				break
			}
		}
		return nil
	})
	if err != nil {
		return Page{}, err
	}
	return page, nil
}

// Batch is one slice yielded by IterateAll.
type Batch struct {
	IDs []string
}

// IterateAllFunc is called once per batch during a full catalog scan.
// Returning an error stops iteration and is propagated to the caller of
// IterateAll.
type IterateAllFunc func(ctx context.Context, batch Batch) error

// IterateAllBatchSize bounds how many ids IterateAll buffers per
// callback invocation, keeping memory bounded during a GC sweep over a
// catalog far larger than DefaultListLimit.
const IterateAllBatchSize = 2000

// IterateAll performs the full, restartable-from-the-beginning scan used
// by the garbage collector (spec §4.D: "lazy sequence of id batches;
// finite; restartable from the beginning, not from an arbitrary point").
func (c *Catalog) IterateAll(ctx context.Context, fn IterateAllFunc) error {
	batch := Batch{IDs: make([]string, 0, IterateAllBatchSize)}

	flush := func() error {
		if len(batch.IDs) == 0 {
			return nil
		}
		if err := fn(ctx, batch); err != nil {
			return err
		}
		batch.IDs = batch.IDs[:0]
		return nil
	}

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixSequence)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return extent.NewOperationCancelledError(err)
			}

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			batch.IDs = append(batch.IDs, id)
			if len(batch.IDs) == IterateAllBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}
