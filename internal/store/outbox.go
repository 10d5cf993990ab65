package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outbox reads and advances outbox rows. This is the seam for the
// external publisher: this core guarantees atomic creation of pending
// rows, not their eventual delivery.
type Outbox struct {
	db *sql.DB
}

// Outbox returns the outbox view over the database.
func (d *DB) Outbox() *Outbox {
	return &Outbox{db: d.db}
}

// Pending returns a tenant's pending rows in creation order.
func (o *Outbox) Pending(ctx context.Context, tenantID string) ([]OutboxEvent, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, tenant_id, aggregate_type, aggregate_id, event_type, payload, status, created_at
		FROM outbox
		WHERE tenant_id = ? AND status = 'pending'
		ORDER BY created_at, id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("outbox pending: %w", err)
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		var payload, createdAt, status string
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.AggregateType, &ev.AggregateID, &ev.EventType, &payload, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("outbox pending: scan: %w", err)
		}
		ev.Status = OutboxStatus(status)
		ev.Payload, err = unmarshalData(payload)
		if err != nil {
			return nil, fmt.Errorf("outbox pending: %w", err)
		}
		ev.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("outbox pending: parse created_at: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// MarkPublished transitions a row to published.
func (o *Outbox) MarkPublished(ctx context.Context, id string, at time.Time) error {
	res, err := o.db.ExecContext(ctx, `
		UPDATE outbox SET status = 'published', published_at = ?, error = NULL
		WHERE id = ? AND status = 'pending'
	`, at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("outbox mark published %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("outbox mark published %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed transitions a row to failed, recording the publisher's
// error message.
func (o *Outbox) MarkFailed(ctx context.Context, id string, cause string) error {
	res, err := o.db.ExecContext(ctx, `
		UPDATE outbox SET status = 'failed', error = ?
		WHERE id = ? AND status = 'pending'
	`, cause, id)
	if err != nil {
		return fmt.Errorf("outbox mark failed %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("outbox mark failed %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus returns the number of rows per status for one tenant.
// Used by diagnostics and tests.
func (o *Outbox) CountByStatus(ctx context.Context, tenantID string) (map[OutboxStatus]int, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM outbox
		WHERE tenant_id = ?
		GROUP BY status
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("outbox count: %w", err)
	}
	defer rows.Close()

	out := make(map[OutboxStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("outbox count: scan: %w", err)
		}
		out[OutboxStatus(status)] = n
	}
	return out, rows.Err()
}
