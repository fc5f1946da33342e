package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/azstorecore/core/pkg/extent"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	r := extent.Record{ID: "ext-1", DestinationID: "dest-0", RelativePath: "ext-1", Size: 11, LastModifyMs: 1000}
	require.NoError(t, c.Upsert(ctx, r))

	got, err := c.Get(ctx, "ext-1")
	require.NoError(t, err)
	require.Equal(t, int64(11), got.Size)
	require.Equal(t, uint64(1), got.Sequence)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	_, err := c.Get(ctx, "missing")
	require.Error(t, err)
	require.True(t, extent.IsNotFound(err))
}

func TestUpsertUpdatePreservesSequence(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	require.NoError(t, c.Upsert(ctx, extent.Record{ID: "ext-1", Size: 10, LastModifyMs: 1}))
	got1, err := c.Get(ctx, "ext-1")
	require.NoError(t, err)

	require.NoError(t, c.Upsert(ctx, extent.Record{ID: "ext-1", Size: 20, LastModifyMs: 2}))
	got2, err := c.Get(ctx, "ext-1")
	require.NoError(t, err)

	require.Equal(t, got1.Sequence, got2.Sequence)
	require.Equal(t, int64(20), got2.Size)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	require.NoError(t, c.Delete(ctx, "never-existed"))

	require.NoError(t, c.Upsert(ctx, extent.Record{ID: "ext-1", Size: 1, LastModifyMs: 1}))
	require.NoError(t, c.Delete(ctx, "ext-1"))
	require.NoError(t, c.Delete(ctx, "ext-1"))

	_, err := c.Get(ctx, "ext-1")
	require.True(t, extent.IsNotFound(err))
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	const total = 12000
	for i := 0; i < total; i++ {
		id := recordID(i)
		require.NoError(t, c.Upsert(ctx, extent.Record{ID: id, Size: int64(i), LastModifyMs: int64(i)}))
	}

	var all []extent.Record
	var marker *uint64
	for {
		page, err := c.List(ctx, ListFilter{Marker: marker})
		require.NoError(t, err)
		all = append(all, page.Records...)
		if page.NextMarker == nil {
			break
		}
		marker = page.NextMarker
	}

	require.Len(t, all, total)
}

func TestListBeforeFilter(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	require.NoError(t, c.Upsert(ctx, extent.Record{ID: "old", LastModifyMs: 100}))
	require.NoError(t, c.Upsert(ctx, extent.Record{ID: "new", LastModifyMs: 5000}))

	cutoff := int64(1000)
	page, err := c.List(ctx, ListFilter{Before: &cutoff})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, "old", page.Records[0].ID)
}

func TestListExactID(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	require.NoError(t, c.Upsert(ctx, extent.Record{ID: "ext-1", Size: 5, LastModifyMs: 1}))

	page, err := c.List(ctx, ListFilter{ID: "ext-1"})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)

	page, err = c.List(ctx, ListFilter{ID: "missing"})
	require.NoError(t, err)
	require.Empty(t, page.Records)
}

func TestIterateAllVisitsEveryID(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	const total = IterateAllBatchSize*2 + 37
	for i := 0; i < total; i++ {
		require.NoError(t, c.Upsert(ctx, extent.Record{ID: recordID(i), Size: 1, LastModifyMs: 1}))
	}

	seen := make(map[string]bool, total)
	err := c.IterateAll(ctx, func(_ context.Context, batch Batch) error {
		for _, id := range batch.IDs {
			seen[id] = true
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, total)
}

func TestRecoverSequenceAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := Open(Options{Path: dir})
	require.NoError(t, err)

	require.NoError(t, c.Upsert(ctx, extent.Record{ID: "ext-1", Size: 1, LastModifyMs: 1}))
	got, err := c.Get(ctx, "ext-1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), got.Sequence)
	require.NoError(t, c.Close())

	c, err = Open(Options{Path: dir})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Upsert(ctx, extent.Record{ID: "ext-2", Size: 1, LastModifyMs: 1}))
	got, err = c.Get(ctx, "ext-2")
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.Sequence)
}

func recordID(i int) string {
	const digits = "0123456789abcdef"
	b := make([]byte, 8)
	for j := 0; j < 8; j++ {
		b[j] = digits[(i>>(4*j))&0xF]
	}
	return string(b)
}
