package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/storefront/internal/database"
	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// CheckoutConfig controls the side effects emitted after a checkout commits.
type CheckoutConfig struct {
	// InlineEmission submits the checkout's actions right after commit. When disabled they
	// arrive only through the change feed.
	InlineEmission bool
	// EmitTimeout bounds how long submission may block on a full dispatch queue.
	EmitTimeout time.Duration
}

// checkoutUseCase implements CheckoutUseCase.
type checkoutUseCase struct {
	config      CheckoutConfig
	txManager   database.TxManager
	cartRepo    CartRepository
	productRepo ProductRepository
	orderRepo   OrderRepository
	submitter   ActionSubmitter
	logger      *slog.Logger
}

// PerformCheckout atomically converts the cart into an order.
//
// Inside one transaction the cart and its items are locked, an order is created with each
// item priced at the current catalog price, and the cart and its items are deleted. A cart
// without items fails with ErrEmptyCart and an item whose product is not in the catalog
// fails with ErrUnknownProduct; neither leaves an order behind.
//
// After commit SendOrderConfirmation, CancelAbandonedCartEmail and FulfillOrder are
// submitted. Submission failures are logged and never fail the checkout.
func (c *checkoutUseCase) PerformCheckout(
	ctx context.Context,
	cartID int64,
) (*storefrontDomain.CheckoutResult, error) {
	var result storefrontDomain.CheckoutResult

	err := c.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := c.cartRepo.Lock(ctx, cartID); err != nil {
			return err
		}

		items, err := c.cartRepo.LockItems(ctx, cartID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return storefrontDomain.ErrEmptyCart
		}

		productIDs := make([]int64, 0, len(items))
		for _, item := range items {
			productIDs = append(productIDs, item.ProductID)
		}
		products, err := c.productRepo.GetByIDs(ctx, uniqueIDs(productIDs))
		if err != nil {
			return err
		}

		orderItems := make([]*storefrontDomain.OrderItem, 0, len(items))
		for _, item := range items {
			product, ok := products[item.ProductID]
			if !ok {
				return fmt.Errorf("%w: %d", storefrontDomain.ErrUnknownProduct, item.ProductID)
			}
			orderItems = append(orderItems, &storefrontDomain.OrderItem{
				ProductID:  item.ProductID,
				PriceCents: product.PriceCents,
			})
		}

		order := &storefrontDomain.Order{CreatedAt: time.Now().UTC()}
		if err := c.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		for _, orderItem := range orderItems {
			orderItem.OrderID = order.ID
		}
		if err := c.orderRepo.CreateItems(ctx, orderItems); err != nil {
			return err
		}

		if _, err := c.cartRepo.DeleteItems(ctx, cartID); err != nil {
			return err
		}
		if err := c.cartRepo.Delete(ctx, cartID); err != nil {
			return err
		}

		result = storefrontDomain.CheckoutResult{OrderID: order.ID, CartID: cartID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("checkout completed",
		slog.Int64("cart_id", result.CartID),
		slog.Int64("order_id", result.OrderID),
	)

	c.emit(ctx, result)

	return &result, nil
}

// emit submits the checkout's side effects. The request context may already be canceled
// once the client has its answer, so submission runs on a detached context.
func (c *checkoutUseCase) emit(ctx context.Context, result storefrontDomain.CheckoutResult) {
	if !c.config.InlineEmission || c.submitter == nil {
		return
	}

	emitCtx := context.WithoutCancel(ctx)
	if c.config.EmitTimeout > 0 {
		var cancel context.CancelFunc
		emitCtx, cancel = context.WithTimeout(emitCtx, c.config.EmitTimeout)
		defer cancel()
	}

	txID := uuid.Must(uuid.NewV7())
	actions := []dispatchDomain.DomainAction{
		dispatchDomain.NewInlineAction(dispatchDomain.SendOrderConfirmation, result.OrderID, txID),
		dispatchDomain.NewInlineAction(dispatchDomain.CancelAbandonedCartEmail, result.CartID, txID),
		dispatchDomain.NewInlineAction(dispatchDomain.FulfillOrder, result.OrderID, txID),
	}

	for _, action := range actions {
		if err := c.submitter.Submit(emitCtx, action); err != nil {
			c.logger.Warn("failed to submit checkout side effect",
				slog.String("kind", string(action.Kind)),
				slog.Int64("subject_id", action.SubjectID),
				slog.String("idempotency_key", action.IdempotencyKey),
				slog.Any("error", err),
			)
		}
	}
}

// NewCheckoutUseCase creates a new CheckoutUseCase. submitter may be nil when side effects
// are delivered only through the change feed.
func NewCheckoutUseCase(
	config CheckoutConfig,
	txManager database.TxManager,
	cartRepo CartRepository,
	productRepo ProductRepository,
	orderRepo OrderRepository,
	submitter ActionSubmitter,
	logger *slog.Logger,
) CheckoutUseCase {
	return &checkoutUseCase{
		config:      config,
		txManager:   txManager,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		submitter:   submitter,
		logger:      logger,
	}
}
