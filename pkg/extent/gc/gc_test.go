package gc

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/azstorecore/core/pkg/extent/catalog"
	"github.com/azstorecore/core/pkg/extent/destination"
	"github.com/azstorecore/core/pkg/extent/writer"
)

// memorySource is a test-only ReferenceSource standing in for a real
// blob or queue metadata catalog.
type memorySource struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newMemorySource(ids ...string) *memorySource {
	m := &memorySource{ids: make(map[string]bool)}
	for _, id := range ids {
		m.ids[id] = true
	}
	return m
}

func (m *memorySource) IterateReferencedExtentIDs(ctx context.Context, fn func(ctx context.Context, ids []string) error) error {
	m.mu.Lock()
	batch := make([]string, 0, len(m.ids))
	for id := range m.ids {
		batch = append(batch, id)
	}
	m.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	return fn(ctx, batch)
}

func setup(t *testing.T) (*destination.Set, *catalog.Catalog, *writer.Pool) {
	t.Helper()

	dir := t.TempDir()
	dests, err := destination.NewSet([]destination.Config{
		{ID: "dest-0", RootPath: dir, MaxConcurrency: 1},
	}, true)
	require.NoError(t, err)

	cat, err := catalog.Open(catalog.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	pool := writer.New(dests, cat, writer.Options{})
	t.Cleanup(func() { _ = pool.Close() })

	return dests, cat, pool
}

func TestSweepSkipsWithinUnmodifiedWindow(t *testing.T) {
	ctx := context.Background()
	dests, cat, pool := setup(t)

	desc, err := pool.Append(ctx, "", make([]byte, 100))
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	source := newMemorySource()
	collector := New(cat, dests, source, Options{UnmodifiedWindow: time.Hour}, nil)

	stats, err := collector.Sweep(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, 0, stats.ExtentsDeleted)

	record, err := cat.Get(ctx, desc.ExtentID)
	require.NoError(t, err)
	require.Equal(t, int64(100), record.Size)

	path, err := dests.Resolve(record.DestinationID, record.RelativePath)
	require.NoError(t, err)
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestSweepReclaimsUnreferencedExtentPastWindow(t *testing.T) {
	ctx := context.Background()
	dests, cat, pool := setup(t)

	desc, err := pool.Append(ctx, "", make([]byte, 100))
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	record, err := cat.Get(ctx, desc.ExtentID)
	require.NoError(t, err)
	path, err := dests.Resolve(record.DestinationID, record.RelativePath)
	require.NoError(t, err)

	source := newMemorySource()
	collector := New(cat, dests, source, Options{UnmodifiedWindow: time.Hour}, nil)

	future := time.Now().Add(2 * time.Hour)
	stats, err := collector.Sweep(ctx, future)
	require.NoError(t, err)
	require.Equal(t, 1, stats.ExtentsScanned)
	require.Equal(t, 1, stats.ExtentsDeleted)
	require.Equal(t, int64(100), stats.BytesReclaimed)

	_, err = cat.Get(ctx, desc.ExtentID)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestSweepSkipsReferencedExtent(t *testing.T) {
	ctx := context.Background()
	dests, cat, pool := setup(t)

	desc, err := pool.Append(ctx, "", make([]byte, 10))
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	source := newMemorySource(desc.ExtentID)
	collector := New(cat, dests, source, Options{UnmodifiedWindow: time.Hour}, nil)

	future := time.Now().Add(2 * time.Hour)
	stats, err := collector.Sweep(ctx, future)
	require.NoError(t, err)
	require.Equal(t, 0, stats.ExtentsDeleted)

	_, err = cat.Get(ctx, desc.ExtentID)
	require.NoError(t, err)
}

func TestSweepDryRunDeletesNothing(t *testing.T) {
	ctx := context.Background()
	dests, cat, pool := setup(t)

	desc, err := pool.Append(ctx, "", make([]byte, 10))
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	source := newMemorySource()
	collector := New(cat, dests, source, Options{UnmodifiedWindow: time.Hour, DryRun: true}, nil)

	future := time.Now().Add(2 * time.Hour)
	stats, err := collector.Sweep(ctx, future)
	require.NoError(t, err)
	require.Equal(t, 1, stats.ExtentsDeleted)

	_, err = cat.Get(ctx, desc.ExtentID)
	require.NoError(t, err, "dry run must not delete the catalog row")

	record, err := cat.Get(ctx, desc.ExtentID)
	require.NoError(t, err)
	path, err := dests.Resolve(record.DestinationID, record.RelativePath)
	require.NoError(t, err)
	_, statErr := os.Stat(path)
	require.NoError(t, statErr, "dry run must not delete the file")
}

func TestSweepRefusesConcurrentRun(t *testing.T) {
	ctx := context.Background()
	dests, cat, _ := setup(t)

	collector := New(cat, dests, newMemorySource(), Options{}, nil)
	collector.running.Store(true)

	_, err := collector.Sweep(ctx, time.Now())
	require.ErrorIs(t, err, ErrSweepInProgress)
}

func TestSchedulerRunsAndStops(t *testing.T) {
	ctx := context.Background()
	dests, cat, pool := setup(t)

	_, err := pool.Append(ctx, "", make([]byte, 1))
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	collector := New(cat, dests, newMemorySource(), Options{UnmodifiedWindow: time.Millisecond}, nil)
	sched := NewScheduler(collector, 10*time.Millisecond)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		sched.Run(runCtx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
}

func TestResolvePathMatchesExtentFile(t *testing.T) {
	dests, _, _ := setup(t)
	path, err := dests.Resolve("dest-0", "abc")
	require.NoError(t, err)
	require.Equal(t, filepath.Base(path), "abc")
}
