package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/azstorecore/core/pkg/extent/catalog"
	"github.com/azstorecore/core/pkg/extent/destination"
	"github.com/azstorecore/core/pkg/extent/gc"
	"github.com/azstorecore/core/pkg/serviceprops"
)

type noReferences struct{}

func (noReferences) IterateReferencedExtentIDs(ctx context.Context, fn func(context.Context, []string) error) error {
	return nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{
		Destinations:     []destination.Config{{ID: "dest-0", RootPath: t.TempDir(), MaxConcurrency: 2}},
		InMemoryCatalog:  true,
		GC:               gc.Options{UnmodifiedWindow: time.Hour},
		GCInterval:       time.Hour,
		AutosaveInterval: -1,
	}, noReferences{}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreAppendAndRead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	desc, err := s.Append(ctx, "", []byte("Hello World"))
	require.NoError(t, err)

	got, err := s.Read(ctx, desc.ExtentID, desc.Offset, desc.Count)
	require.NoError(t, err)
	require.Equal(t, "Hello World", string(got))
}

func TestStoreListPaginatesWrittenExtents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, "", []byte("x"))
		require.NoError(t, err)
	}

	// Sequential appends reuse the same idle open extent, so the five
	// one-byte writes land in a single catalog record of size 5.
	page, err := s.List(ctx, catalog.ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, int64(5), page.Records[0].Size)
}

func TestStoreIterateAllVisitsEveryExtent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	want := make(map[string]bool, 5)
	for i := 0; i < 5; i++ {
		desc, err := s.Append(ctx, "", []byte("x"))
		require.NoError(t, err)
		want[desc.ExtentID] = true
	}

	got := make(map[string]bool, 5)
	err := s.IterateAll(ctx, func(ctx context.Context, batch catalog.Batch) error {
		for _, id := range batch.IDs {
			got[id] = true
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestStoreSweepReclaimsUnreferenced(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	desc, err := s.Append(ctx, "", []byte("orphan"))
	require.NoError(t, err)

	stats, err := s.Sweep(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, stats.ExtentsDeleted)

	_, err = s.Read(ctx, desc.ExtentID, 0, 1)
	require.Error(t, err)
}

func TestStoreHealthcheck(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Healthcheck(context.Background()))
}

func TestStoreServicePropertiesDefaultThenUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	props, err := s.GetServiceProperties(ctx, "devstoreaccount1")
	require.NoError(t, err)
	require.Empty(t, props.Cors)

	version := "2023-01-01"
	updated, err := s.UpsertServiceProperties(ctx, "devstoreaccount1", serviceprops.Patch{DefaultServiceVersion: &version})
	require.NoError(t, err)
	require.Equal(t, version, updated.DefaultServiceVersion)
}
