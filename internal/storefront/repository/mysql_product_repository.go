package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/allisson/storefront/internal/database"
	apperrors "github.com/allisson/storefront/internal/errors"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// MySQLProductRepository reads the product catalog from MySQL.
type MySQLProductRepository struct {
	db *sql.DB
}

// List returns every product ordered by id.
func (m *MySQLProductRepository) List(ctx context.Context) ([]*storefrontDomain.Product, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, name, description, price_cents FROM products ORDER BY id`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list products")
	}
	return scanProducts(rows)
}

// GetByIDs returns the products with the given ids keyed by id. Unknown ids are absent
// from the result.
func (m *MySQLProductRepository) GetByIDs(
	ctx context.Context,
	ids []int64,
) (map[int64]*storefrontDomain.Product, error) {
	if len(ids) == 0 {
		return map[int64]*storefrontDomain.Product{}, nil
	}

	querier := database.GetTx(ctx, m.db)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT id, name, description, price_cents FROM products WHERE id IN (` +
		placeholders(len(ids)) + `) ORDER BY id`

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get products")
	}

	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	return indexProducts(products), nil
}

// NewMySQLProductRepository creates a new MySQL product repository.
func NewMySQLProductRepository(db *sql.DB) *MySQLProductRepository {
	return &MySQLProductRepository{db: db}
}

// placeholders returns n comma separated "?" markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
