// Package store is the top-level facade tying the Extent Writer Pool,
// Extent Reader, Extent Metadata Catalog, and Extent Garbage Collector
// together into the single persistence substrate (spec §4.I): one entry
// point wrapping append, read, catalog, and garbage collection.
package store

import (
	"context"
	"time"

	"github.com/azstorecore/core/internal/logger"
	"github.com/azstorecore/core/pkg/extent"
	"github.com/azstorecore/core/pkg/extent/catalog"
	"github.com/azstorecore/core/pkg/extent/destination"
	"github.com/azstorecore/core/pkg/extent/gc"
	"github.com/azstorecore/core/pkg/extent/reader"
	"github.com/azstorecore/core/pkg/extent/writer"
	"github.com/azstorecore/core/pkg/serviceprops"
)

// Options configures the facade. CatalogPath/InMemoryCatalog select the
// Extent Metadata Catalog's backing store; the rest are forwarded to
// the writer pool and garbage collector.
type Options struct {
	Destinations    []destination.Config
	CatalogPath     string
	InMemoryCatalog bool

	Writer writer.Options
	GC     gc.Options

	// GCInterval is how often the collector sweeps. Default 10 minutes
	// (see gc.defaultSweepInterval). Zero uses that default.
	GCInterval time.Duration

	// AutosaveInterval flushes the catalog to disk on a timer
	// independent of process shutdown. Default 5 seconds. The same
	// ticker evicts idle open extents from the writer pool. Negative
	// disables the ticker, and with it idle eviction (tests typically do
	// this and call Close explicitly instead).
	AutosaveInterval time.Duration
}

const defaultAutosaveInterval = 5 * time.Second

// StoreMetrics is the subset of pkg/metrics.StoreMetrics the facade
// samples on a timer. Declared here so this package does not import
// pkg/metrics.
type StoreMetrics interface {
	SetOpenExtents(n int)
	SetCatalogSize(bytes int64)
}

// Store is the opened persistence substrate: destinations, catalog,
// writer pool, reader, and garbage collector wired together and ready
// to accept traffic.
type Store struct {
	dests   *destination.Set
	cat     *catalog.Catalog
	writer  *writer.Pool
	reader  *reader.Reader
	gc      *gc.Collector
	sched   *gc.Scheduler
	props   *serviceprops.Store
	metrics StoreMetrics

	autosaveStop chan struct{}
	autosaveDone chan struct{}

	schedCtx    context.Context
	schedCancel context.CancelFunc
}

// Open performs the startup/recovery sequence (spec §4.I): open the
// destinations, open or create the catalog, prime its sequence
// counter, persist once, and return a Store ready to accept traffic.
// No reconciliation against the filesystem is performed; mismatches
// surface lazily as ExtentNotFound/IOError on read and are repaired by
// the next GC sweep.
func Open(opts Options, source gc.ReferenceSource, gcMetrics gc.Metrics, storeMetrics StoreMetrics) (*Store, error) {
	dests, err := destination.NewSet(opts.Destinations, true)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Open(catalog.Options{Path: opts.CatalogPath, InMemory: opts.InMemoryCatalog})
	if err != nil {
		return nil, err
	}
	if err := cat.Sync(); err != nil {
		_ = cat.Close()
		return nil, err
	}

	wpool := writer.New(dests, cat, opts.Writer)
	rdr := reader.New(dests, cat)
	collector := gc.New(cat, dests, source, opts.GC, gcMetrics)
	sched := gc.NewScheduler(collector, opts.GCInterval)
	props := serviceprops.Open(cat.DB())

	s := &Store{
		dests:   dests,
		cat:     cat,
		writer:  wpool,
		reader:  rdr,
		gc:      collector,
		sched:   sched,
		props:   props,
		metrics: storeMetrics,
	}

	s.schedCtx, s.schedCancel = context.WithCancel(context.Background())
	go s.sched.Run(s.schedCtx)

	s.startAutosave(opts.AutosaveInterval)

	logger.Info("extent store initialized", logger.StoreName(opts.CatalogPath))
	return s, nil
}

func (s *Store) startAutosave(interval time.Duration) {
	if interval < 0 {
		return
	}
	if interval == 0 {
		interval = defaultAutosaveInterval
	}

	s.autosaveStop = make(chan struct{})
	s.autosaveDone = make(chan struct{})

	go func() {
		defer close(s.autosaveDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.autosaveStop:
				return
			case <-ticker.C:
				if err := s.cat.Sync(); err != nil {
					logger.Error("catalog autosave failed", logger.Err(err))
				}
				s.writer.EvictIdle(time.Now())
				if s.metrics != nil {
					s.metrics.SetOpenExtents(s.writer.OpenExtentCount())
					s.metrics.SetCatalogSize(s.cat.Size())
				}
			}
		}
	}()
}

// Append writes data to the destination (round-robin if destinationID
// is empty) and returns the resulting extent descriptor.
func (s *Store) Append(ctx context.Context, destinationID string, data []byte) (extent.Descriptor, error) {
	return s.writer.Append(ctx, destinationID, data)
}

// Read returns exactly count bytes starting at offset within the named
// extent.
func (s *Store) Read(ctx context.Context, extentID string, offset, count int64) ([]byte, error) {
	return s.reader.Read(ctx, extentID, offset, count)
}

// List pages the catalog per the given filter.
func (s *Store) List(ctx context.Context, filter catalog.ListFilter) (catalog.Page, error) {
	return s.cat.List(ctx, filter)
}

// IterateAll performs a full, restartable-from-the-beginning scan of
// every extent id in the catalog, for external reconciliation tooling
// that needs to walk the whole store rather than page through it.
func (s *Store) IterateAll(ctx context.Context, fn catalog.IterateAllFunc) error {
	return s.cat.IterateAll(ctx, fn)
}

// GetServiceProperties returns the account's properties document, or
// the documented default if none has ever been stored.
func (s *Store) GetServiceProperties(ctx context.Context, account string) (serviceprops.ServiceProperties, error) {
	return s.props.Get(ctx, account)
}

// UpsertServiceProperties merges patch into the account's document and
// persists it.
func (s *Store) UpsertServiceProperties(ctx context.Context, account string, patch serviceprops.Patch) (serviceprops.ServiceProperties, error) {
	return s.props.Upsert(ctx, account, patch)
}

// Sweep runs one garbage collection pass immediately, outside the
// scheduler's timer. Intended for admin tooling and tests.
func (s *Store) Sweep(ctx context.Context, now time.Time) (*gc.Stats, error) {
	return s.gc.Sweep(ctx, now)
}

// Healthcheck reports whether the store is ready to accept traffic.
func (s *Store) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

// Close stops the GC scheduler and autosave ticker, flushes and closes
// every open extent, and closes the catalog.
func (s *Store) Close() error {
	s.schedCancel()
	s.sched.Stop()

	if s.autosaveStop != nil {
		close(s.autosaveStop)
		<-s.autosaveDone
	}

	if err := s.writer.Close(); err != nil {
		_ = s.cat.Close()
		return err
	}
	return s.cat.Close()
}
