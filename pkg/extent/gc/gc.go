// Package gc implements the Extent Garbage Collector (spec §4.F): it
// scans the catalog for extents no longer referenced by any blob or
// queue metadata catalog and removes both the underlying file and the
// catalog row, subject to a grace window that protects extents too
// recently written to have been referenced yet. List, group,
// check-external-reference, delete, accumulate Stats; the reference
// check is generalized to an arbitrary ReferenceSource since an extent
// may be referenced by any number of higher-level catalogs.
package gc

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/azstorecore/core/internal/logger"
	"github.com/azstorecore/core/internal/telemetry"
	"github.com/azstorecore/core/pkg/extent"
	"github.com/azstorecore/core/pkg/extent/catalog"
	"github.com/azstorecore/core/pkg/extent/destination"
)

// ReferenceSource lazily enumerates every extent id currently
// referenced by a higher-level metadata catalog (blob, queue, or any
// future consumer). IterateReferencedExtentIDs must visit every
// referenced id at least once; it may be called with large batches and
// should not hold locks across the fn call.
type ReferenceSource interface {
	IterateReferencedExtentIDs(ctx context.Context, fn func(ctx context.Context, ids []string) error) error
}

// Metrics records sweep outcomes. Matches metrics.GCMetrics; declared
// separately so this package does not import pkg/metrics.
type Metrics interface {
	ObserveSweep(scanned, deleted int, bytesReclaimed int64, errs int, duration time.Duration)
}

// Stats summarizes a single sweep.
type Stats struct {
	ExtentsScanned int
	ExtentsDeleted int
	BytesReclaimed int64
	Errors         int
}

// Options configures a Collector's sweep behavior.
type Options struct {
	// UnmodifiedWindow protects any extent whose LastModifyMs is more
	// recent than now - UnmodifiedWindow from deletion, even if it is
	// unreferenced: the reference may simply not have been written yet.
	// Default 1 hour.
	UnmodifiedWindow time.Duration

	// DryRun reports what would be deleted without deleting anything.
	DryRun bool
}

const defaultUnmodifiedWindow = time.Hour

func (o Options) withDefaults() Options {
	if o.UnmodifiedWindow <= 0 {
		o.UnmodifiedWindow = defaultUnmodifiedWindow
	}
	return o
}

// Collector runs sweeps over a catalog, refusing to run two sweeps
// concurrently.
type Collector struct {
	cat     *catalog.Catalog
	dests   *destination.Set
	source  ReferenceSource
	opts    Options
	metrics Metrics

	running atomic.Bool
}

// New creates a Collector. metrics may be nil.
func New(cat *catalog.Catalog, dests *destination.Set, source ReferenceSource, opts Options, metrics Metrics) *Collector {
	return &Collector{
		cat:     cat,
		dests:   dests,
		source:  source,
		opts:    opts.withDefaults(),
		metrics: metrics,
	}
}

// ErrSweepInProgress is returned by Sweep when a prior sweep is still
// running.
var ErrSweepInProgress = extentSweepInProgress{}

type extentSweepInProgress struct{}

func (extentSweepInProgress) Error() string { return "gc: sweep already in progress" }

// Sweep performs one full pass over the catalog. A second call while a
// sweep is already running returns ErrSweepInProgress immediately
// rather than queuing behind it.
func (c *Collector) Sweep(ctx context.Context, now time.Time) (*Stats, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrSweepInProgress
	}
	defer c.running.Store(false)

	sweepID := uuid.New().String()
	ctx, span := telemetry.StartSweepSpan(ctx, sweepID, c.opts.DryRun)
	defer span.End()

	stats, err := c.sweep(ctx, now)
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return stats, err
}

func (c *Collector) sweep(ctx context.Context, now time.Time) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	referenced, err := c.collectReferenced(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "gc: failed to collect referenced extent ids", logger.Err(err))
		stats.Errors++
		c.observe(stats, time.Since(start))
		return stats, err
	}

	cutoff := now.Add(-c.opts.UnmodifiedWindow).UnixMilli()

	err = c.cat.IterateAll(ctx, func(ctx context.Context, batch catalog.Batch) error {
		for _, id := range batch.IDs {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			stats.ExtentsScanned++

			record, err := c.cat.Get(ctx, id)
			if err != nil {
				if extent.IsNotFound(err) {
					continue
				}
				stats.Errors++
				continue
			}

			if referenced[record.ID] {
				continue
			}
			if record.LastModifyMs > cutoff {
				continue
			}

			if err := c.reclaim(ctx, record); err != nil {
				logger.WarnCtx(ctx, "gc: failed to reclaim extent",
					logger.ExtentID(record.ID), logger.DestinationID(record.DestinationID), logger.Err(err))
				stats.Errors++
				continue
			}

			stats.ExtentsDeleted++
			stats.BytesReclaimed += record.Size
		}
		return nil
	})
	if err != nil {
		stats.Errors++
	}

	logger.InfoCtx(ctx, "gc: sweep complete",
		logger.ExtentsScanned(stats.ExtentsScanned),
		logger.ExtentsDeleted(stats.ExtentsDeleted),
		logger.BytesReclaimed(stats.BytesReclaimed),
		logger.DryRun(c.opts.DryRun))

	c.observe(stats, time.Since(start))
	return stats, err
}

func (c *Collector) collectReferenced(ctx context.Context) (map[string]bool, error) {
	referenced := make(map[string]bool)
	err := c.source.IterateReferencedExtentIDs(ctx, func(_ context.Context, ids []string) error {
		for _, id := range ids {
			referenced[id] = true
		}
		return nil
	})
	return referenced, err
}

func (c *Collector) reclaim(ctx context.Context, record *extent.Record) error {
	if c.opts.DryRun {
		return nil
	}

	path, err := c.dests.Resolve(record.DestinationID, record.RelativePath)
	if err == nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return rmErr
		}
	}

	return c.cat.Delete(ctx, record.ID)
}

func (c *Collector) observe(stats *Stats, duration time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveSweep(stats.ExtentsScanned, stats.ExtentsDeleted, stats.BytesReclaimed, stats.Errors, duration)
	}
}
