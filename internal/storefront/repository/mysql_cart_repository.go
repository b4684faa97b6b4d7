package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/allisson/storefront/internal/database"
	apperrors "github.com/allisson/storefront/internal/errors"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// MySQLCartRepository persists carts and their items in MySQL.
type MySQLCartRepository struct {
	db *sql.DB
}

// Create inserts an empty cart.
func (m *MySQLCartRepository) Create(ctx context.Context) (*storefrontDomain.Cart, error) {
	querier := database.GetTx(ctx, m.db)

	cart := &storefrontDomain.Cart{CreatedAt: time.Now().UTC()}

	query := `INSERT INTO carts (created_at) VALUES (?)`

	result, err := querier.ExecContext(ctx, query, cart.CreatedAt)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create cart")
	}

	cart.ID, err = result.LastInsertId()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get cart id")
	}

	return cart, nil
}

// Get returns the cart without its items.
func (m *MySQLCartRepository) Get(ctx context.Context, cartID int64) (*storefrontDomain.Cart, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, created_at FROM carts WHERE id = ?`

	var cart storefrontDomain.Cart
	err := querier.QueryRowContext(ctx, query, cartID).Scan(&cart.ID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storefrontDomain.ErrCartNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get cart")
	}

	return &cart, nil
}

// Lock takes an exclusive row lock on the cart until the surrounding transaction ends.
func (m *MySQLCartRepository) Lock(ctx context.Context, cartID int64) error {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id FROM carts WHERE id = ? FOR UPDATE`

	var id int64
	if err := querier.QueryRowContext(ctx, query, cartID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storefrontDomain.ErrCartNotFound
		}
		return apperrors.Wrap(err, "failed to lock cart")
	}

	return nil
}

// AddItems inserts the products into the cart. Products already in the cart are left
// untouched. It returns the number of inserted items.
func (m *MySQLCartRepository) AddItems(ctx context.Context, cartID int64, productIDs []int64) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}

	querier := database.GetTx(ctx, m.db)

	values := make([]string, len(productIDs))
	args := make([]any, 0, 2*len(productIDs))
	for i, productID := range productIDs {
		values[i] = "(?, ?)"
		args = append(args, cartID, productID)
	}

	// A no-op update reports 0 affected rows, so only real inserts are counted.
	query := `INSERT INTO cart_items (cart_id, product_id) VALUES ` + strings.Join(values, ", ") +
		` ON DUPLICATE KEY UPDATE id = id`

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to add cart items")
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows count")
	}

	return inserted, nil
}

// RemoveItem deletes one item from the cart.
func (m *MySQLCartRepository) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM cart_items WHERE id = ? AND cart_id = ?`

	result, err := querier.ExecContext(ctx, query, itemID, cartID)
	if err != nil {
		return apperrors.Wrap(err, "failed to remove cart item")
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows count")
	}
	if removed == 0 {
		return storefrontDomain.ErrCartItemNotFound
	}

	return nil
}

// ListItems returns the cart's items with their catalog products.
func (m *MySQLCartRepository) ListItems(ctx context.Context, cartID int64) ([]*storefrontDomain.CartItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ci.id, ci.cart_id, ci.product_id, pr.name, pr.description, pr.price_cents
			  FROM cart_items ci
			  JOIN products pr ON pr.id = ci.product_id
			  WHERE ci.cart_id = ?
			  ORDER BY ci.id`

	rows, err := querier.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list cart items")
	}
	return scanCartItemsWithProduct(rows)
}

// LockItems returns the cart's items and locks their rows until the surrounding
// transaction ends.
func (m *MySQLCartRepository) LockItems(ctx context.Context, cartID int64) ([]*storefrontDomain.CartItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, cart_id, product_id FROM cart_items WHERE cart_id = ? ORDER BY id FOR UPDATE`

	rows, err := querier.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to lock cart items")
	}
	return scanCartItems(rows)
}

// DeleteItems removes every item of the cart.
func (m *MySQLCartRepository) DeleteItems(ctx context.Context, cartID int64) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM cart_items WHERE cart_id = ?`

	result, err := querier.ExecContext(ctx, query, cartID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete cart items")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows count")
	}

	return count, nil
}

// Delete removes the cart.
func (m *MySQLCartRepository) Delete(ctx context.Context, cartID int64) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM carts WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, cartID); err != nil {
		return apperrors.Wrap(err, "failed to delete cart")
	}

	return nil
}

// NewMySQLCartRepository creates a new MySQL cart repository.
func NewMySQLCartRepository(db *sql.DB) *MySQLCartRepository {
	return &MySQLCartRepository{db: db}
}
