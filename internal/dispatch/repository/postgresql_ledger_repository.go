// Package repository implements persistence for the idempotency ledger and the
// dead-letter store. PostgreSQL and MySQL variants are selected by the configured driver.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/allisson/storefront/internal/database"
	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
)

// PostgreSQLLedgerRepository stores completed actions in PostgreSQL.
type PostgreSQLLedgerRepository struct {
	db *sql.DB
}

// HasCompleted reports whether (kind, subjectID) was already delivered.
// Storage failures are returned as ErrLedgerUnavailable and never as false.
func (p *PostgreSQLLedgerRepository) HasCompleted(
	ctx context.Context,
	kind dispatchDomain.ActionKind,
	subjectID int64,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS (SELECT 1 FROM dispatch_ledger WHERE kind = $1 AND subject_id = $2)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, string(kind), subjectID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %w", dispatchDomain.ErrLedgerUnavailable, err)
	}

	return exists, nil
}

// MarkCompleted inserts the entry if (kind, subject_id) is absent. Exactly one of two
// concurrent callers succeeds; the other receives ErrAlreadyCompleted.
func (p *PostgreSQLLedgerRepository) MarkCompleted(ctx context.Context, entry *dispatchDomain.LedgerEntry) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO dispatch_ledger (kind, subject_id, idempotency_key, attempts, completed_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (kind, subject_id) DO NOTHING`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(entry.Kind),
		entry.SubjectID,
		entry.IdempotencyKey,
		entry.Attempts,
		entry.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", dispatchDomain.ErrLedgerUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", dispatchDomain.ErrLedgerUnavailable, err)
	}
	if affected == 0 {
		return dispatchDomain.ErrAlreadyCompleted
	}

	return nil
}

// NewPostgreSQLLedgerRepository creates a new PostgreSQL ledger repository.
func NewPostgreSQLLedgerRepository(db *sql.DB) *PostgreSQLLedgerRepository {
	return &PostgreSQLLedgerRepository{db: db}
}
