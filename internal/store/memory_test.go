package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manifest/internal/ir"
)

func taskData(status string) ir.IRObject {
	return ir.IRObject{"name": ir.IRString("chop onions"), "status": ir.IRString(status)}
}

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBackend().Store("tenant-a")

	require.NoError(t, s.Create(ctx, Instance{ID: "t1", Data: taskData("open")}))
	require.NoError(t, s.Create(ctx, Instance{ID: "t2", Data: taskData("open")}))

	got, err := s.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ir.IRString("open"), got.Data["status"])

	require.NoError(t, s.Update(ctx, "t1", taskData("in_progress")))
	got, err = s.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("in_progress"), got.Data["status"])

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "t1", all[0].ID)
	assert.Equal(t, "t2", all[1].ID)

	require.NoError(t, s.Delete(ctx, "t2"))
	all, err = s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.Clear(ctx))
	all, err = s.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStore_MissingInstance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBackend().Store("tenant-a")

	got, err := s.GetByID(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.Update(ctx, "ghost", taskData("done")), ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "ghost"), ErrNotFound)
}

func TestMemoryStore_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	a := backend.Store("tenant-a")
	b := backend.Store("tenant-b")

	require.NoError(t, a.Create(ctx, Instance{ID: "X", Data: taskData("open")}))

	// Same id under another tenant reads as absent, not as an error.
	got, err := b.GetByID(ctx, "X")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Both tenants may use the same id independently.
	require.NoError(t, b.Create(ctx, Instance{ID: "X", Data: taskData("done")}))
	gotA, err := a.GetByID(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("open"), gotA.Data["status"])

	// Clear only touches the calling tenant.
	require.NoError(t, b.Clear(ctx))
	gotA, err = a.GetByID(ctx, "X")
	require.NoError(t, err)
	require.NotNil(t, gotA)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBackend().Store("tenant-a")
	require.NoError(t, s.Create(ctx, Instance{ID: "t1", Data: taskData("open")}))

	got, err := s.GetByID(ctx, "t1")
	require.NoError(t, err)
	got.Data["status"] = ir.IRString("hacked")

	again, err := s.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("open"), again.Data["status"])
}

func TestMemoryStore_UpdateWithEvents(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := backend.Store("tenant-a")
	require.NoError(t, s.Create(ctx, Instance{ID: "t1", Data: taskData("open")}))

	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	ev, err := NewOutboxEvent("tenant-a", "PrepTask", "t1", "kitchen.task.claimed",
		ir.IRObject{"taskId": ir.IRString("t1")}, 0, at)
	require.NoError(t, err)

	require.NoError(t, s.UpdateWithEvents(ctx, "t1", taskData("in_progress"), []OutboxEvent{ev}))
	assert.Len(t, backend.Outbox(), 1)

	// Missing instance: mutation fails, nothing is recorded.
	err = s.UpdateWithEvents(ctx, "ghost", taskData("done"), []OutboxEvent{ev})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, backend.Outbox(), 1)
}

func TestNewOutboxEvent_AggregateIDFallback(t *testing.T) {
	at := time.Unix(0, 0).UTC()

	ev, err := NewOutboxEvent("tenant-a", "PrepTask", "inst-1", "kitchen.task.claimed",
		ir.IRObject{"taskId": ir.IRString("t42")}, 0, at)
	require.NoError(t, err)
	assert.Equal(t, "t42", ev.AggregateID)

	ev, err = NewOutboxEvent("tenant-a", "PrepTask", "inst-1", "kitchen.task.claimed",
		ir.IRObject{"note": ir.IRString("no id fields")}, 0, at)
	require.NoError(t, err)
	assert.Equal(t, "inst-1", ev.AggregateID)

	assert.Equal(t, OutboxPending, ev.Status)
	assert.NotEmpty(t, ev.ID)
}
