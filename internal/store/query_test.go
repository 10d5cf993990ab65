package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manifest/internal/ir"
	"github.com/roach88/manifest/internal/query"
)

// queryStore is the common surface of both backends under test.
type queryStore interface {
	Store
	Querier
}

func seedQueryData(t *testing.T, s queryStore) {
	t.Helper()
	ctx := context.Background()
	for _, inst := range []Instance{
		{ID: "t1", Data: ir.IRObject{"status": ir.IRString("open"), "quantity": ir.IRInt(1), "urgent": ir.IRBool(true)}},
		{ID: "t2", Data: ir.IRObject{"status": ir.IRString("open"), "quantity": ir.IRInt(2), "urgent": ir.IRBool(false)}},
		{ID: "t3", Data: ir.IRObject{"status": ir.IRString("done"), "quantity": ir.IRInt(2), "urgent": ir.IRBool(true)}},
	} {
		require.NoError(t, s.Create(ctx, inst))
	}
}

func runQuerySuite(t *testing.T, s queryStore) {
	seedQueryData(t, s)
	ctx := context.Background()

	ids := func(insts []Instance) []string {
		var out []string
		for _, inst := range insts {
			out = append(out, inst.ID)
		}
		return out
	}

	open, err := s.Query(ctx, query.Eq{Property: "status", Value: ir.IRString("open")})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, ids(open))

	both, err := s.Query(ctx, query.And{Predicates: []query.Predicate{
		query.Eq{Property: "status", Value: ir.IRString("open")},
		query.Eq{Property: "quantity", Value: ir.IRInt(2)},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, ids(both))

	urgent, err := s.Query(ctx, query.Eq{Property: "urgent", Value: ir.IRBool(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t3"}, ids(urgent))

	none, err := s.Query(ctx, query.Eq{Property: "status", Value: ir.IRString("canceled")})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.Query(ctx, query.And{})
	assert.Error(t, err)
}

func TestMemoryStore_Query(t *testing.T) {
	runQuerySuite(t, NewMemoryBackend().Store("t-1"))
}

func TestSQLiteStore_Query(t *testing.T) {
	db := openTestDB(t)
	runQuerySuite(t, db.Store("PrepTask", "t-1"))
}

func TestSQLiteStore_Query_TenantIsolation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Store("PrepTask", "t-1").Create(ctx, Instance{
		ID: "x", Data: ir.IRObject{"status": ir.IRString("open")},
	}))

	got, err := db.Store("PrepTask", "t-2").Query(ctx,
		query.Eq{Property: "status", Value: ir.IRString("open")})
	require.NoError(t, err)
	assert.Empty(t, got)
}
