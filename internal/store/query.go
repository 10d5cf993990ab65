package store

import (
	"context"
	"fmt"

	"github.com/roach88/manifest/internal/query"
)

// Querier is implemented by stores that can filter instances on the
// backend instead of loading everything and filtering in memory.
type Querier interface {
	Query(ctx context.Context, pred query.Predicate) ([]Instance, error)
}

var (
	_ Querier = (*SQLiteStore)(nil)
	_ Querier = (*MemoryStore)(nil)
)

// Query returns this tenant's instances matching the predicate, in the
// same stable order as GetAll. The predicate compiles to a WHERE clause
// over the JSON data column.
func (s *SQLiteStore) Query(ctx context.Context, pred query.Predicate) ([]Instance, error) {
	clause, args, err := query.CompileSQL(pred)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.entity, err)
	}

	sqlArgs := append([]any{s.tenantID, s.entity}, args...)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data FROM instances
		WHERE tenant_id = ? AND entity = ? AND `+clause+`
		ORDER BY created_at, id
	`, sqlArgs...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.entity, err)
	}
	defer rows.Close()

	var out []Instance
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("query %s: scan: %w", s.entity, err)
		}
		obj, err := unmarshalData(data)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", s.entity, err)
		}
		out = append(out, Instance{ID: id, Data: obj})
	}
	return out, rows.Err()
}

// Query filters this tenant's instances by evaluating the predicate
// directly, in insertion order.
func (s *MemoryStore) Query(ctx context.Context, pred query.Predicate) ([]Instance, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := all[:0:0]
	for _, inst := range all {
		ok, err := query.Matches(pred, inst.Data)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, inst)
		}
	}
	return out, nil
}
