package serviceprops

import (
	"context"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return Open(db)
}

func TestGetReturnsDefaultWhenNeverSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	props, err := s.Get(ctx, "devstoreaccount1")
	require.NoError(t, err)
	require.Empty(t, props.Cors)
	require.False(t, props.HourMetrics.Enabled)
	require.False(t, props.MinuteMetrics.Enabled)
	require.True(t, props.Logging.Read)
	require.True(t, props.Logging.Write)
	require.True(t, props.Logging.Delete)
	require.False(t, props.StaticWebsite.Enabled)
	require.Equal(t, DefaultServiceVersion, props.DefaultServiceVersion)
}

func TestUpsertPreservesUnsuppliedFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cors := []CORSRule{{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}}}
	_, err := s.Upsert(ctx, "acct", Patch{Cors: &cors})
	require.NoError(t, err)

	logging := LoggingProperties{Read: false, Write: false, Delete: false}
	got, err := s.Upsert(ctx, "acct", Patch{Logging: &logging})
	require.NoError(t, err)

	require.Equal(t, cors, got.Cors, "unsupplied Cors on second call must be preserved")
	require.False(t, got.Logging.Read)
}

func TestUpsertExplicitEmptyCorsReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cors := []CORSRule{{AllowedOrigins: []string{"*"}}}
	_, err := s.Upsert(ctx, "acct", Patch{Cors: &cors})
	require.NoError(t, err)

	empty := []CORSRule{}
	got, err := s.Upsert(ctx, "acct", Patch{Cors: &empty})
	require.NoError(t, err)
	require.Empty(t, got.Cors)
}

func TestUpsertAbsentCorsPreservesExisting(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cors := []CORSRule{{AllowedOrigins: []string{"*"}}}
	_, err := s.Upsert(ctx, "acct", Patch{Cors: &cors})
	require.NoError(t, err)

	version := "2023-01-01"
	got, err := s.Upsert(ctx, "acct", Patch{DefaultServiceVersion: &version})
	require.NoError(t, err)
	require.Equal(t, cors, got.Cors)
	require.Equal(t, version, got.DefaultServiceVersion)
}

func TestGetAfterUpsertIsPerAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cors := []CORSRule{{AllowedOrigins: []string{"https://a.example"}}}
	_, err := s.Upsert(ctx, "acct-a", Patch{Cors: &cors})
	require.NoError(t, err)

	other, err := s.Get(ctx, "acct-b")
	require.NoError(t, err)
	require.Empty(t, other.Cors, "properties must not leak across accounts")
}
