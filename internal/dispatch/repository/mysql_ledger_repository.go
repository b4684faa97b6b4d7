package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/allisson/storefront/internal/database"
	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
)

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

// MySQLLedgerRepository stores completed actions in MySQL.
type MySQLLedgerRepository struct {
	db *sql.DB
}

// HasCompleted reports whether (kind, subjectID) was already delivered.
func (m *MySQLLedgerRepository) HasCompleted(
	ctx context.Context,
	kind dispatchDomain.ActionKind,
	subjectID int64,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS (SELECT 1 FROM dispatch_ledger WHERE kind = ? AND subject_id = ?)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, string(kind), subjectID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %w", dispatchDomain.ErrLedgerUnavailable, err)
	}

	return exists, nil
}

// MarkCompleted inserts the entry, relying on the unique (kind, subject_id) key to
// reject a second completion with ErrAlreadyCompleted.
func (m *MySQLLedgerRepository) MarkCompleted(ctx context.Context, entry *dispatchDomain.LedgerEntry) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO dispatch_ledger (kind, subject_id, idempotency_key, attempts, completed_at)
			  VALUES (?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		string(entry.Kind),
		entry.SubjectID,
		entry.IdempotencyKey,
		entry.Attempts,
		entry.CompletedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return dispatchDomain.ErrAlreadyCompleted
		}
		return fmt.Errorf("%w: %w", dispatchDomain.ErrLedgerUnavailable, err)
	}

	return nil
}

// NewMySQLLedgerRepository creates a new MySQL ledger repository.
func NewMySQLLedgerRepository(db *sql.DB) *MySQLLedgerRepository {
	return &MySQLLedgerRepository{db: db}
}
