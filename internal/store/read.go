package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/quri/internal/ir"
	"github.com/roach88/quri/internal/queryir"
	"github.com/roach88/quri/internal/querysql"
)

// Select runs a query and returns each row as an object keyed by column
// name. Returns an empty slice (not nil) when no rows match.
func (s *Store) Select(ctx context.Context, query string, args ...any) ([]ir.IRObject, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := []ir.IRObject{}
	for rows.Next() {
		obj, err := scanObject(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Filter renders plan with querysql and runs it.
func (s *Store) Filter(ctx context.Context, plan *queryir.Plan, opts ...querysql.Option) ([]ir.IRObject, error) {
	query, args, err := querysql.Build(plan, opts...)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", plan.Entity, err)
	}
	return s.Select(ctx, query, args...)
}

func scanObject(rows *sql.Rows, cols []string) (ir.IRObject, error) {
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	obj := make(ir.IRObject, len(cols))
	for i, col := range cols {
		obj[col] = ir.FromSQL(raw[i])
	}
	return obj, nil
}
