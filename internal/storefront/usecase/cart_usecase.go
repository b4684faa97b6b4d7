package usecase

import (
	"context"
	"fmt"

	"github.com/allisson/storefront/internal/database"
	apperrors "github.com/allisson/storefront/internal/errors"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// cartUseCase implements CartUseCase.
type cartUseCase struct {
	txManager   database.TxManager
	cartRepo    CartRepository
	productRepo ProductRepository
}

// Create returns a new empty cart.
func (c *cartUseCase) Create(ctx context.Context) (*storefrontDomain.Cart, error) {
	cart, err := c.cartRepo.Create(ctx)
	if err != nil {
		return nil, err
	}
	cart.Items = []*storefrontDomain.CartItem{}
	return cart, nil
}

// Get returns the cart with its items priced at the current catalog prices.
func (c *cartUseCase) Get(ctx context.Context, cartID int64) (*storefrontDomain.Cart, error) {
	cart, err := c.cartRepo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	cart.Items, err = c.cartRepo.ListItems(ctx, cartID)
	if err != nil {
		return nil, err
	}
	cart.TotalCents = storefrontDomain.CalculateCartTotal(cart.Items)

	return cart, nil
}

// AddItems adds the products to the cart. Adding a product already in the cart is a no-op.
// Every product must exist; otherwise nothing is added.
func (c *cartUseCase) AddItems(
	ctx context.Context,
	cartID int64,
	productIDs []int64,
) (*storefrontDomain.Cart, error) {
	productIDs = uniqueIDs(productIDs)
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one product is required", apperrors.ErrInvalidInput)
	}

	err := c.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := c.cartRepo.Lock(ctx, cartID); err != nil {
			return err
		}

		products, err := c.productRepo.GetByIDs(ctx, productIDs)
		if err != nil {
			return err
		}
		for _, productID := range productIDs {
			if _, ok := products[productID]; !ok {
				return fmt.Errorf("%w: %d", storefrontDomain.ErrUnknownProduct, productID)
			}
		}

		_, err = c.cartRepo.AddItems(ctx, cartID, productIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	return c.Get(ctx, cartID)
}

// RemoveItem removes one item from the cart.
func (c *cartUseCase) RemoveItem(ctx context.Context, cartID, itemID int64) (*storefrontDomain.Cart, error) {
	if _, err := c.cartRepo.Get(ctx, cartID); err != nil {
		return nil, err
	}

	if err := c.cartRepo.RemoveItem(ctx, cartID, itemID); err != nil {
		return nil, err
	}

	return c.Get(ctx, cartID)
}

// NewCartUseCase creates a new CartUseCase.
func NewCartUseCase(
	txManager database.TxManager,
	cartRepo CartRepository,
	productRepo ProductRepository,
) CartUseCase {
	return &cartUseCase{
		txManager:   txManager,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// uniqueIDs drops duplicates and keeps the first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
