package store

import (
	"context"
	"fmt"
)

// Exec runs a statement or a multi-statement script.
func (s *Store) Exec(ctx context.Context, script string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, script, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// LoadFixtures runs a DDL/seed script in one transaction. On failure
// nothing from the script is kept.
func (s *Store) LoadFixtures(ctx context.Context, script string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load fixtures: begin: %w", err)
	}

	if _, err := tx.ExecContext(ctx, script); err != nil {
		tx.Rollback()
		return fmt.Errorf("load fixtures: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load fixtures: commit: %w", err)
	}
	return nil
}
