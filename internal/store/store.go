package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/manifest/internal/ir"
)

// ErrNotFound reports a missing instance on Update or Delete. GetByID
// deliberately does NOT return it: absence there is (nil, nil) so
// callers cannot distinguish "missing" from "belongs to another
// tenant".
var ErrNotFound = errors.New("instance not found")

// Instance is one persisted entity instance: an opaque property bag
// keyed by a tenant-scoped identifier. The tenant is implicit in the
// Store that loaded it.
type Instance struct {
	ID   string      `json:"id"`
	Data ir.IRObject `json:"data"`
}

// Store is the per-entity persistence contract. All methods are
// tenant-scoped internally by the concrete adapter.
//
// Infrastructure failures (backend unreachable, transaction failure)
// are returned as errors; they are never folded into domain outcomes.
type Store interface {
	GetAll(ctx context.Context) ([]Instance, error)
	GetByID(ctx context.Context, id string) (*Instance, error)
	Create(ctx context.Context, inst Instance) error
	Update(ctx context.Context, id string, data ir.IRObject) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// EventWriter is implemented by stores that can fold a state mutation
// and its outbox rows into one atomic transaction. The engine prefers
// this path whenever a command emits events; either the mutation and
// all rows become visible together, or none do.
type EventWriter interface {
	UpdateWithEvents(ctx context.Context, id string, data ir.IRObject, events []OutboxEvent) error
}

// Provider resolves the Store backing an entity type.
type Provider interface {
	StoreFor(entity string) (Store, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(entity string) (Store, error)

// StoreFor implements Provider.
func (f ProviderFunc) StoreFor(entity string) (Store, error) {
	return f(entity)
}

// OutboxStatus is the outbox row lifecycle. Rows are created pending in
// the mutation's transaction; an external publisher moves them to
// published or failed later.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxEvent is one persisted event record. ID is content-addressed
// (ir.EventID) so replaying the identical write is idempotent.
type OutboxEvent struct {
	ID            string       `json:"id"`
	TenantID      string       `json:"tenant_id"`
	AggregateType string       `json:"aggregate_type"`
	AggregateID   string       `json:"aggregate_id"`
	EventType     string       `json:"event_type"`
	Payload       ir.IRObject  `json:"payload"`
	Status        OutboxStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	PublishedAt   *time.Time   `json:"published_at,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// aggregateIDFields are checked in order when routing an event payload
// to its aggregate row.
var aggregateIDFields = []string{"aggregateId", "taskId", "id"}

// NewOutboxEvent builds a pending outbox row for an emitted event. The
// aggregate id falls back through known payload id fields before using
// the instance id.
func NewOutboxEvent(tenantID, aggregateType, instanceID, eventType string, payload ir.IRObject, index int, at time.Time) (OutboxEvent, error) {
	aggregateID := instanceID
	for _, f := range aggregateIDFields {
		if v, ok := payload[f].(ir.IRString); ok && v != "" {
			aggregateID = string(v)
			break
		}
	}

	id, err := ir.EventID(tenantID, aggregateID, eventType, payload, index)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("new outbox event: %w", err)
	}

	return OutboxEvent{
		ID:            id,
		TenantID:      tenantID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		Status:        OutboxPending,
		CreatedAt:     at.UTC(),
	}, nil
}
