package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/manifest/internal/ir"
)

// SQLiteStore is the Store implementation over one entity type and one
// tenant in a shared SQLite database. Satisfies Store and EventWriter.
type SQLiteStore struct {
	db       *sql.DB
	entity   string
	tenantID string
}

var (
	_ Store       = (*SQLiteStore)(nil)
	_ EventWriter = (*SQLiteStore)(nil)
)

// GetAll returns this tenant's instances ordered by creation time, then
// id for a stable tiebreak.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data FROM instances
		WHERE tenant_id = ? AND entity = ?
		ORDER BY created_at, id
	`, s.tenantID, s.entity)
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", s.entity, err)
	}
	defer rows.Close()

	var out []Instance
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("get all %s: scan: %w", s.entity, err)
		}
		obj, err := unmarshalData(data)
		if err != nil {
			return nil, fmt.Errorf("get all %s: %w", s.entity, err)
		}
		out = append(out, Instance{ID: id, Data: obj})
	}
	return out, rows.Err()
}

// GetByID returns the instance, or (nil, nil) when no row matches this
// tenant. A row under another tenant is indistinguishable from absence.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*Instance, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM instances
		WHERE tenant_id = ? AND entity = ? AND id = ?
	`, s.tenantID, s.entity, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", s.entity, id, err)
	}

	obj, err := unmarshalData(data)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", s.entity, id, err)
	}
	return &Instance{ID: id, Data: obj}, nil
}

// Create inserts a new instance row.
func (s *SQLiteStore) Create(ctx context.Context, inst Instance) error {
	data, err := marshalData(inst.Data)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.entity, err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO instances (tenant_id, entity, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.tenantID, s.entity, inst.ID, data, now, now)
	if err != nil {
		return fmt.Errorf("create %s %s: %w", s.entity, inst.ID, err)
	}
	return nil
}

// Update replaces an existing instance's data.
func (s *SQLiteStore) Update(ctx context.Context, id string, data ir.IRObject) error {
	encoded, err := marshalData(data)
	if err != nil {
		return fmt.Errorf("update %s: %w", s.entity, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE instances SET data = ?, updated_at = ?
		WHERE tenant_id = ? AND entity = ? AND id = ?
	`, encoded, time.Now().UTC().Format(time.RFC3339Nano), s.tenantID, s.entity, id)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", s.entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s %s: rows affected: %w", s.entity, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWithEvents applies the mutation and inserts its outbox rows in
// ONE transaction. Either the update and every row commit together, or
// the transaction rolls back and none are visible. Outbox ids are
// content-addressed, so ON CONFLICT DO NOTHING makes a replayed write
// idempotent rather than duplicated.
func (s *SQLiteStore) UpdateWithEvents(ctx context.Context, id string, data ir.IRObject, events []OutboxEvent) error {
	encoded, err := marshalData(data)
	if err != nil {
		return fmt.Errorf("update with events %s: %w", s.entity, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update with events %s: begin tx: %w", s.entity, err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		UPDATE instances SET data = ?, updated_at = ?
		WHERE tenant_id = ? AND entity = ? AND id = ?
	`, encoded, time.Now().UTC().Format(time.RFC3339Nano), s.tenantID, s.entity, id)
	if err != nil {
		return fmt.Errorf("update with events %s %s: %w", s.entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update with events %s %s: rows affected: %w", s.entity, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	for _, ev := range events {
		payload, err := marshalData(ev.Payload)
		if err != nil {
			return fmt.Errorf("update with events %s %s: %w", s.entity, id, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO outbox (id, tenant_id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			ev.ID,
			ev.TenantID,
			ev.AggregateType,
			ev.AggregateID,
			ev.EventType,
			payload,
			string(ev.Status),
			ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("update with events %s %s: outbox insert: %w", s.entity, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update with events %s %s: commit: %w", s.entity, id, err)
	}
	return nil
}

// Delete removes an instance row.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM instances
		WHERE tenant_id = ? AND entity = ? AND id = ?
	`, s.tenantID, s.entity, id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", s.entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: rows affected: %w", s.entity, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every row of this entity belonging to this tenant.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM instances
		WHERE tenant_id = ? AND entity = ?
	`, s.tenantID, s.entity)
	if err != nil {
		return fmt.Errorf("clear %s: %w", s.entity, err)
	}
	return nil
}
