// Package repository implements storefront persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/allisson/storefront/internal/database"
	apperrors "github.com/allisson/storefront/internal/errors"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// PostgreSQLProductRepository reads the product catalog from PostgreSQL.
type PostgreSQLProductRepository struct {
	db *sql.DB
}

// List returns every product ordered by id.
func (p *PostgreSQLProductRepository) List(ctx context.Context) ([]*storefrontDomain.Product, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, description, price_cents FROM products ORDER BY id`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list products")
	}
	return scanProducts(rows)
}

// GetByIDs returns the products with the given ids keyed by id. Unknown ids are absent
// from the result.
func (p *PostgreSQLProductRepository) GetByIDs(
	ctx context.Context,
	ids []int64,
) (map[int64]*storefrontDomain.Product, error) {
	if len(ids) == 0 {
		return map[int64]*storefrontDomain.Product{}, nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, description, price_cents FROM products WHERE id = ANY($1) ORDER BY id`

	rows, err := querier.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get products")
	}

	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	return indexProducts(products), nil
}

// NewPostgreSQLProductRepository creates a new PostgreSQL product repository.
func NewPostgreSQLProductRepository(db *sql.DB) *PostgreSQLProductRepository {
	return &PostgreSQLProductRepository{db: db}
}

func scanProducts(rows *sql.Rows) ([]*storefrontDomain.Product, error) {
	defer func() {
		_ = rows.Close()
	}()

	products := make([]*storefrontDomain.Product, 0)
	for rows.Next() {
		var product storefrontDomain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.PriceCents); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan product")
		}
		products = append(products, &product)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate products")
	}

	return products, nil
}

func indexProducts(products []*storefrontDomain.Product) map[int64]*storefrontDomain.Product {
	index := make(map[int64]*storefrontDomain.Product, len(products))
	for _, product := range products {
		index[product.ID] = product
	}
	return index
}
