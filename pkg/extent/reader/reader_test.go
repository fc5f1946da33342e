package reader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/azstorecore/core/pkg/extent"
	"github.com/azstorecore/core/pkg/extent/catalog"
	"github.com/azstorecore/core/pkg/extent/destination"
	"github.com/azstorecore/core/pkg/extent/writer"
)

func newTestReader(t *testing.T) (*Reader, *writer.Pool, *catalog.Catalog) {
	t.Helper()

	dests, err := destination.NewSet([]destination.Config{
		{ID: "dest-0", RootPath: t.TempDir(), MaxConcurrency: 2},
	}, true)
	require.NoError(t, err)

	cat, err := catalog.Open(catalog.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	pool := writer.New(dests, cat, writer.Options{})
	t.Cleanup(func() { _ = pool.Close() })

	return New(dests, cat), pool, cat
}

func TestReadReturnsExactBytes(t *testing.T) {
	ctx := context.Background()
	r, pool, _ := newTestReader(t)

	desc, err := pool.Append(ctx, "", []byte("Hello World"))
	require.NoError(t, err)

	got, err := r.Read(ctx, desc.ExtentID, desc.Offset, desc.Count)
	require.NoError(t, err)
	require.Equal(t, "Hello World", string(got))
}

func TestReadRangeExceeded(t *testing.T) {
	ctx := context.Background()
	r, pool, _ := newTestReader(t)

	desc, err := pool.Append(ctx, "", []byte("abc"))
	require.NoError(t, err)

	_, err = r.Read(ctx, desc.ExtentID, 0, desc.Count+100)
	require.Error(t, err)

	var extErr *extent.Error
	require.ErrorAs(t, err, &extErr)
	require.Equal(t, extent.KindRangeExceeded, extErr.Kind)
}

func TestReadUnknownExtent(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestReader(t)

	_, err := r.Read(ctx, "does-not-exist", 0, 1)
	require.True(t, extent.IsNotFound(err))
}

func TestReadAfterAppendIsConsistent(t *testing.T) {
	ctx := context.Background()
	r, pool, _ := newTestReader(t)

	d1, err := pool.Append(ctx, "", []byte("first-"))
	require.NoError(t, err)
	d2, err := pool.Append(ctx, "", []byte("second"))
	require.NoError(t, err)
	require.Equal(t, d1.ExtentID, d2.ExtentID)

	got1, err := r.Read(ctx, d1.ExtentID, d1.Offset, d1.Count)
	require.NoError(t, err)
	require.Equal(t, "first-", string(got1))

	got2, err := r.Read(ctx, d2.ExtentID, d2.Offset, d2.Count)
	require.NoError(t, err)
	require.Equal(t, "second", string(got2))
}
