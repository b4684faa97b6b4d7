package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/allisson/storefront/internal/database"
	apperrors "github.com/allisson/storefront/internal/errors"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// MySQLOrderRepository persists orders in MySQL.
type MySQLOrderRepository struct {
	db *sql.DB
}

// Create inserts the order row and sets order.ID.
func (m *MySQLOrderRepository) Create(ctx context.Context, order *storefrontDomain.Order) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO orders (created_at) VALUES (?)`

	result, err := querier.ExecContext(ctx, query, order.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create order")
	}

	order.ID, err = result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to get order id")
	}

	return nil
}

// CreateItems inserts the order items with their snapshotted prices.
func (m *MySQLOrderRepository) CreateItems(ctx context.Context, items []*storefrontDomain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, m.db)

	values := make([]string, len(items))
	args := make([]any, 0, 3*len(items))
	for i, item := range items {
		values[i] = "(?, ?, ?)"
		args = append(args, item.OrderID, item.ProductID, item.PriceCents)
	}

	query := `INSERT INTO order_items (order_id, product_id, price_cents) VALUES ` + strings.Join(values, ", ")

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to create order items")
	}

	return nil
}

// Get returns the order with its items.
func (m *MySQLOrderRepository) Get(ctx context.Context, orderID int64) (*storefrontDomain.Order, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, created_at FROM orders WHERE id = ?`

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
				   WHERE oi.order_id = ?
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

// NewMySQLOrderRepository creates a new MySQL order repository.
func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}
