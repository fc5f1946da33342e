// Package reader implements the Extent Reader (spec §4.C): resolves an
// extent id via the catalog, checks the requested range against the
// catalog-recorded size, opens the file read-only, and reads the range
// with a positioned ReadAt.
package reader

import (
	"context"
	"io"
	"os"

	"github.com/azstorecore/core/internal/telemetry"
	"github.com/azstorecore/core/pkg/extent"
	"github.com/azstorecore/core/pkg/extent/catalog"
	"github.com/azstorecore/core/pkg/extent/destination"
)

// Reader resolves and streams extent byte ranges.
type Reader struct {
	dests *destination.Set
	cat   *catalog.Catalog
}

// New creates a Reader over the given destination set and catalog.
func New(dests *destination.Set, cat *catalog.Catalog) *Reader {
	return &Reader{dests: dests, cat: cat}
}

// Read returns exactly count bytes starting at offset within the named
// extent. Fails with ExtentNotFound if the catalog has no such id,
// RangeExceeded if offset+count exceeds the recorded size, and IOError
// for any other filesystem failure.
func (r *Reader) Read(ctx context.Context, extentID string, offset, count int64) ([]byte, error) {
	ctx, span := telemetry.StartReadSpan(ctx, extentID, offset, int(count))
	defer span.End()

	buf, err := r.read(ctx, extentID, offset, count)
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return buf, err
}

func (r *Reader) read(ctx context.Context, extentID string, offset, count int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, extent.NewOperationCancelledError(err)
	}

	record, err := r.cat.Get(ctx, extentID)
	if err != nil {
		return nil, err
	}

	if offset < 0 || count < 0 || offset+count > record.Size {
		return nil, extent.NewRangeExceededError(extentID, offset, count, record.Size)
	}

	path, err := r.dests.Resolve(record.DestinationID, record.RelativePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, extent.NewExtentNotFoundError(extentID)
		}
		return nil, extent.NewIOError(extentID, err)
	}
	defer f.Close()

	buf := make([]byte, count)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, extent.NewIOError(extentID, err)
	}
	if int64(n) != count {
		return nil, extent.NewIOError(extentID, io.ErrUnexpectedEOF)
	}

	if err := ctx.Err(); err != nil {
		return nil, extent.NewOperationCancelledError(err)
	}

	return buf, nil
}
