package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manifest/internal/ir"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStore_CRUD(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := db.Store("PrepTask", "tenant-a")

	require.NoError(t, s.Create(ctx, Instance{ID: "t1", Data: taskData("open")}))

	got, err := s.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ir.IRString("open"), got.Data["status"])

	require.NoError(t, s.Update(ctx, "t1", taskData("in_progress")))
	got, err = s.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("in_progress"), got.Data["status"])

	require.NoError(t, s.Create(ctx, Instance{ID: "t2", Data: taskData("open")}))
	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Delete(ctx, "t1"))
	assert.ErrorIs(t, s.Delete(ctx, "t1"), ErrNotFound)

	require.NoError(t, s.Clear(ctx))
	all, err = s.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteStore_MissingReadsAsNil(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := db.Store("PrepTask", "tenant-a")

	got, err := s.GetByID(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.Update(ctx, "ghost", taskData("done")), ErrNotFound)
}

func TestSQLiteStore_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	a := db.Store("PrepTask", "tenant-a")
	b := db.Store("PrepTask", "tenant-b")

	require.NoError(t, a.Create(ctx, Instance{ID: "X", Data: taskData("open")}))

	got, err := b.GetByID(ctx, "X")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, b.Create(ctx, Instance{ID: "X", Data: taskData("done")}))

	gotA, err := a.GetByID(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("open"), gotA.Data["status"])

	// Entity scoping too: same id under another entity is invisible.
	st := db.Store("Station", "tenant-a")
	gotS, err := st.GetByID(ctx, "X")
	require.NoError(t, err)
	assert.Nil(t, gotS)
}

func TestSQLiteStore_UpdateWithEvents_Atomic(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := db.Store("PrepTask", "tenant-a")
	require.NoError(t, s.Create(ctx, Instance{ID: "t1", Data: taskData("open")}))

	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	var events []OutboxEvent
	for i, typ := range []string{"kitchen.task.claimed", "kitchen.task.progress"} {
		ev, err := NewOutboxEvent("tenant-a", "PrepTask", "t1", typ,
			ir.IRObject{"taskId": ir.IRString("t1")}, i, at)
		require.NoError(t, err)
		events = append(events, ev)
	}

	require.NoError(t, s.UpdateWithEvents(ctx, "t1", taskData("in_progress"), events))

	pending, err := db.Outbox().Pending(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "kitchen.task.claimed", pending[0].EventType)
	assert.Equal(t, "PrepTask", pending[0].AggregateType)
	assert.Equal(t, "t1", pending[0].AggregateID)
	assert.Equal(t, OutboxPending, pending[0].Status)

	got, err := s.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("in_progress"), got.Data["status"])
}

func TestSQLiteStore_UpdateWithEvents_MissingRowWritesNothing(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := db.Store("PrepTask", "tenant-a")

	ev, err := NewOutboxEvent("tenant-a", "PrepTask", "ghost", "kitchen.task.claimed",
		ir.IRObject{"taskId": ir.IRString("ghost")}, 0, time.Now())
	require.NoError(t, err)

	err = s.UpdateWithEvents(ctx, "ghost", taskData("done"), []OutboxEvent{ev})
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := db.Outbox().Pending(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLiteStore_UpdateWithEvents_ReplayIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := db.Store("PrepTask", "tenant-a")
	require.NoError(t, s.Create(ctx, Instance{ID: "t1", Data: taskData("open")}))

	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	ev, err := NewOutboxEvent("tenant-a", "PrepTask", "t1", "kitchen.task.claimed",
		ir.IRObject{"taskId": ir.IRString("t1")}, 0, at)
	require.NoError(t, err)

	require.NoError(t, s.UpdateWithEvents(ctx, "t1", taskData("in_progress"), []OutboxEvent{ev}))
	// Identical write again: content-addressed id dedupes the row.
	require.NoError(t, s.UpdateWithEvents(ctx, "t1", taskData("in_progress"), []OutboxEvent{ev}))

	pending, err := db.Outbox().Pending(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestOutbox_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := db.Store("PrepTask", "tenant-a")
	require.NoError(t, s.Create(ctx, Instance{ID: "t1", Data: taskData("open")}))

	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	var events []OutboxEvent
	for i := 0; i < 3; i++ {
		ev, err := NewOutboxEvent("tenant-a", "PrepTask", "t1", "kitchen.task.progress",
			ir.IRObject{"taskId": ir.IRString("t1"), "step": ir.IRInt(int64(i))}, i, at)
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.NoError(t, s.UpdateWithEvents(ctx, "t1", taskData("in_progress"), events))

	pending, err := db.Outbox().Pending(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, pending, 3)

	require.NoError(t, db.Outbox().MarkPublished(ctx, pending[0].ID, at.Add(time.Minute)))
	require.NoError(t, db.Outbox().MarkFailed(ctx, pending[1].ID, "broker unreachable"))

	counts, err := db.Outbox().CountByStatus(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[OutboxPublished])
	assert.Equal(t, 1, counts[OutboxFailed])
	assert.Equal(t, 1, counts[OutboxPending])

	// Advancing an already-advanced row is ErrNotFound.
	assert.ErrorIs(t, db.Outbox().MarkPublished(ctx, pending[0].ID, at), ErrNotFound)
}

func TestSQLiteStore_DataRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := db.Store("PrepTask", "tenant-a")

	data := ir.IRObject{
		"name":     ir.IRString("sear <beef> & rest"),
		"quantity": ir.IRInt(9007199254740993),
		"done":     ir.IRBool(false),
		"tags":     ir.IRArray{ir.IRString("grill")},
		"meta":     ir.IRObject{"station": ir.IRString("s1")},
	}
	require.NoError(t, s.Create(ctx, Instance{ID: "t1", Data: data}))

	got, err := s.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, data, got.Data)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")
	db1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db2.Close())
}
