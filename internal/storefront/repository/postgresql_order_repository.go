package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/allisson/storefront/internal/database"
	apperrors "github.com/allisson/storefront/internal/errors"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// PostgreSQLOrderRepository persists orders in PostgreSQL.
type PostgreSQLOrderRepository struct {
	db *sql.DB
}

// Create inserts the order row and sets order.ID.
func (p *PostgreSQLOrderRepository) Create(ctx context.Context, order *storefrontDomain.Order) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO orders (created_at) VALUES ($1) RETURNING id`

	if err := querier.QueryRowContext(ctx, query, order.CreatedAt).Scan(&order.ID); err != nil {
		return apperrors.Wrap(err, "failed to create order")
	}

	return nil
}

// CreateItems inserts the order items with their snapshotted prices.
func (p *PostgreSQLOrderRepository) CreateItems(ctx context.Context, items []*storefrontDomain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, p.db)

	values := make([]string, len(items))
	args := make([]any, 0, 3*len(items))
	for i, item := range items {
		n := 3 * i
		values[i] = fmt.Sprintf("($%d, $%d, $%d)", n+1, n+2, n+3)
		args = append(args, item.OrderID, item.ProductID, item.PriceCents)
	}

	query := `INSERT INTO order_items (order_id, product_id, price_cents) VALUES ` + strings.Join(values, ", ")

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to create order items")
	}

	return nil
}

// Get returns the order with its items.
func (p *PostgreSQLOrderRepository) Get(ctx context.Context, orderID int64) (*storefrontDomain.Order, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, created_at FROM orders WHERE id = $1`

	var order storefrontDomain.Order
	if err := querier.QueryRowContext(ctx, query, orderID).Scan(&order.ID, &order.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storefrontDomain.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get order")
	}

	itemsQuery := `SELECT oi.id, oi.order_id, oi.product_id, oi.price_cents, pr.name, pr.description, pr.price_cents
				   FROM order_items oi
				   JOIN products pr ON pr.id = oi.product_id
				   WHERE oi.order_id = $1
				   ORDER BY oi.id`

	rows, err := querier.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list order items")
	}

	order.Items, err = scanOrderItems(rows)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// NewPostgreSQLOrderRepository creates a new PostgreSQL order repository.
func NewPostgreSQLOrderRepository(db *sql.DB) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{db: db}
}

func scanOrderItems(rows *sql.Rows) ([]*storefrontDomain.OrderItem, error) {
	defer func() {
		_ = rows.Close()
	}()

	items := make([]*storefrontDomain.OrderItem, 0)
	for rows.Next() {
		var item storefrontDomain.OrderItem
		var product storefrontDomain.Product
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.PriceCents,
			&product.Name,
			&product.Description,
			&product.PriceCents,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan order item")
		}
		product.ID = item.ProductID
		item.Product = &product
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate order items")
	}

	return items, nil
}
