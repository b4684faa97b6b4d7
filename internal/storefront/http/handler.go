// Package http provides HTTP handlers for the catalog, carts, orders and checkout.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/storefront/internal/httputil"
	"github.com/allisson/storefront/internal/storefront/http/dto"
	storefrontUseCase "github.com/allisson/storefront/internal/storefront/usecase"
	customValidation "github.com/allisson/storefront/internal/validation"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	productUseCase storefrontUseCase.ProductUseCase
	logger         *slog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(productUseCase storefrontUseCase.ProductUseCase, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		productUseCase: productUseCase,
		logger:         logger,
	}
}

// ListHandler returns the whole catalog.
// GET /v1/products
func (h *ProductHandler) ListHandler(c *gin.Context) {
	products, err := h.productUseCase.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapProductsToListResponse(products))
}

// CartHandler handles HTTP requests for cart management.
type CartHandler struct {
	cartUseCase storefrontUseCase.CartUseCase
	logger      *slog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(cartUseCase storefrontUseCase.CartUseCase, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		cartUseCase: cartUseCase,
		logger:      logger,
	}
}

// CreateHandler creates an empty cart.
// POST /v1/carts - Returns 201 Created.
func (h *CartHandler) CreateHandler(c *gin.Context) {
	cart, err := h.cartUseCase.Create(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCartToResponse(cart))
}

// GetHandler returns a cart with its items and total.
// GET /v1/carts/:id
func (h *CartHandler) GetHandler(c *gin.Context) {
	cartID, err := customValidation.ParseID("id", c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	cart, err := h.cartUseCase.Get(c.Request.Context(), cartID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCartToResponse(cart))
}

// AddItemsHandler adds one or more products to a cart. Products already in the cart are
// left untouched.
// POST /v1/carts/:id/items
func (h *CartHandler) AddItemsHandler(c *gin.Context) {
	cartID, err := customValidation.ParseID("id", c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var req dto.AddCartItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	cart, err := h.cartUseCase.AddItems(c.Request.Context(), cartID, req.ProductIDs)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCartToResponse(cart))
}

// RemoveItemHandler removes one item from a cart.
// DELETE /v1/carts/:id/items/:item_id
func (h *CartHandler) RemoveItemHandler(c *gin.Context) {
	cartID, err := customValidation.ParseID("id", c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	itemID, err := customValidation.ParseID("item_id", c.Param("item_id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	cart, err := h.cartUseCase.RemoveItem(c.Request.Context(), cartID, itemID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCartToResponse(cart))
}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderUseCase storefrontUseCase.OrderUseCase
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orderUseCase storefrontUseCase.OrderUseCase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderUseCase: orderUseCase,
		logger:       logger,
	}
}

// GetHandler returns an order with the prices captured at checkout.
// GET /v1/orders/:id
func (h *OrderHandler) GetHandler(c *gin.Context) {
	orderID, err := customValidation.ParseID("id", c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.Get(c.Request.Context(), orderID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// CheckoutHandler handles cart checkout.
type CheckoutHandler struct {
	checkoutUseCase storefrontUseCase.CheckoutUseCase
	logger          *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(checkoutUseCase storefrontUseCase.CheckoutUseCase, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutUseCase: checkoutUseCase,
		logger:          logger,
	}
}

// PerformHandler converts the cart into an order.
// POST /v1/carts/:id/checkout - Returns 201 Created with the order id. An empty cart
// yields 422 and a missing cart 404.
func (h *CheckoutHandler) PerformHandler(c *gin.Context) {
	cartID, err := customValidation.ParseID("id", c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	result, err := h.checkoutUseCase.PerformCheckout(c.Request.Context(), cartID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.CheckoutResponse{OrderID: result.OrderID})
}
