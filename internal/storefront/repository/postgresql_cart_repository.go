package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allisson/storefront/internal/database"
	apperrors "github.com/allisson/storefront/internal/errors"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// PostgreSQLCartRepository persists carts and their items in PostgreSQL.
type PostgreSQLCartRepository struct {
	db *sql.DB
}

// Create inserts an empty cart.
func (p *PostgreSQLCartRepository) Create(ctx context.Context) (*storefrontDomain.Cart, error) {
	querier := database.GetTx(ctx, p.db)

	cart := &storefrontDomain.Cart{CreatedAt: time.Now().UTC()}

	query := `INSERT INTO carts (created_at) VALUES ($1) RETURNING id`

	if err := querier.QueryRowContext(ctx, query, cart.CreatedAt).Scan(&cart.ID); err != nil {
		return nil, apperrors.Wrap(err, "failed to create cart")
	}

	return cart, nil
}

// Get returns the cart without its items.
func (p *PostgreSQLCartRepository) Get(ctx context.Context, cartID int64) (*storefrontDomain.Cart, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, created_at FROM carts WHERE id = $1`

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
func (p *PostgreSQLCartRepository) Lock(ctx context.Context, cartID int64) error {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id FROM carts WHERE id = $1 FOR UPDATE`

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
func (p *PostgreSQLCartRepository) AddItems(ctx context.Context, cartID int64, productIDs []int64) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}

	querier := database.GetTx(ctx, p.db)

	values := make([]string, len(productIDs))
	args := make([]any, 0, len(productIDs)+1)
	args = append(args, cartID)
	for i, productID := range productIDs {
		values[i] = fmt.Sprintf("($1, $%d)", i+2)
		args = append(args, productID)
	}

	query := `INSERT INTO cart_items (cart_id, product_id) VALUES ` + strings.Join(values, ", ") +
		` ON CONFLICT (cart_id, product_id) DO NOTHING`

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
func (p *PostgreSQLCartRepository) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`

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
func (p *PostgreSQLCartRepository) ListItems(ctx context.Context, cartID int64) ([]*storefrontDomain.CartItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ci.id, ci.cart_id, ci.product_id, pr.name, pr.description, pr.price_cents
			  FROM cart_items ci
			  JOIN products pr ON pr.id = ci.product_id
			  WHERE ci.cart_id = $1
			  ORDER BY ci.id`

	rows, err := querier.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list cart items")
	}
	return scanCartItemsWithProduct(rows)
}

// LockItems returns the cart's items and locks their rows until the surrounding
// transaction ends.
func (p *PostgreSQLCartRepository) LockItems(ctx context.Context, cartID int64) ([]*storefrontDomain.CartItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, cart_id, product_id FROM cart_items WHERE cart_id = $1 ORDER BY id FOR UPDATE`

	rows, err := querier.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to lock cart items")
	}
	return scanCartItems(rows)
}

// DeleteItems removes every item of the cart.
func (p *PostgreSQLCartRepository) DeleteItems(ctx context.Context, cartID int64) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM cart_items WHERE cart_id = $1`

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
func (p *PostgreSQLCartRepository) Delete(ctx context.Context, cartID int64) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM carts WHERE id = $1`

	if _, err := querier.ExecContext(ctx, query, cartID); err != nil {
		return apperrors.Wrap(err, "failed to delete cart")
	}

	return nil
}

// NewPostgreSQLCartRepository creates a new PostgreSQL cart repository.
func NewPostgreSQLCartRepository(db *sql.DB) *PostgreSQLCartRepository {
	return &PostgreSQLCartRepository{db: db}
}

func scanCartItems(rows *sql.Rows) ([]*storefrontDomain.CartItem, error) {
	defer func() {
		_ = rows.Close()
	}()

	items := make([]*storefrontDomain.CartItem, 0)
	for rows.Next() {
		var item storefrontDomain.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan cart item")
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate cart items")
	}

	return items, nil
}

func scanCartItemsWithProduct(rows *sql.Rows) ([]*storefrontDomain.CartItem, error) {
	defer func() {
		_ = rows.Close()
	}()

	items := make([]*storefrontDomain.CartItem, 0)
	for rows.Next() {
		var item storefrontDomain.CartItem
		var product storefrontDomain.Product
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&product.Name,
			&product.Description,
			&product.PriceCents,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan cart item")
		}
		product.ID = item.ProductID
		item.Product = &product
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate cart items")
	}

	return items, nil
}
