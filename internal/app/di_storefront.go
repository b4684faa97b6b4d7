package app

import (
	"fmt"

	storefrontHTTP "github.com/allisson/storefront/internal/storefront/http"
	storefrontRepository "github.com/allisson/storefront/internal/storefront/repository"
	storefrontUseCase "github.com/allisson/storefront/internal/storefront/usecase"
)

// ProductRepository returns the product repository based on database driver.
func (c *Container) ProductRepository() (storefrontUseCase.ProductRepository, error) {
	return lazy(c, &c.productRepositoryInit, "productRepository", &c.productRepository, c.initProductRepository)
}

// CartRepository returns the cart repository based on database driver.
func (c *Container) CartRepository() (storefrontUseCase.CartRepository, error) {
	return lazy(c, &c.cartRepositoryInit, "cartRepository", &c.cartRepository, c.initCartRepository)
}

// OrderRepository returns the order repository based on database driver.
func (c *Container) OrderRepository() (storefrontUseCase.OrderRepository, error) {
	return lazy(c, &c.orderRepositoryInit, "orderRepository", &c.orderRepository, c.initOrderRepository)
}

// ProductUseCase returns the product use case.
func (c *Container) ProductUseCase() (storefrontUseCase.ProductUseCase, error) {
	return lazy(c, &c.productUseCaseInit, "productUseCase", &c.productUseCase, c.initProductUseCase)
}

// CartUseCase returns the cart use case.
func (c *Container) CartUseCase() (storefrontUseCase.CartUseCase, error) {
	return lazy(c, &c.cartUseCaseInit, "cartUseCase", &c.cartUseCase, c.initCartUseCase)
}

// OrderUseCase returns the order use case.
func (c *Container) OrderUseCase() (storefrontUseCase.OrderUseCase, error) {
	return lazy(c, &c.orderUseCaseInit, "orderUseCase", &c.orderUseCase, c.initOrderUseCase)
}

// CheckoutUseCase returns the checkout use case.
func (c *Container) CheckoutUseCase() (storefrontUseCase.CheckoutUseCase, error) {
	return lazy(c, &c.checkoutUseCaseInit, "checkoutUseCase", &c.checkoutUseCase, c.initCheckoutUseCase)
}

// ProductHandler returns the product HTTP handler.
func (c *Container) ProductHandler() (*storefrontHTTP.ProductHandler, error) {
	return lazy(c, &c.productHandlerInit, "productHandler", &c.productHandler, func() (*storefrontHTTP.ProductHandler, error) {
		useCase, err := c.ProductUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get product use case for product handler: %w", err)
		}
		return storefrontHTTP.NewProductHandler(useCase, c.Logger()), nil
	})
}

// CartHandler returns the cart HTTP handler.
func (c *Container) CartHandler() (*storefrontHTTP.CartHandler, error) {
	return lazy(c, &c.cartHandlerInit, "cartHandler", &c.cartHandler, func() (*storefrontHTTP.CartHandler, error) {
		useCase, err := c.CartUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get cart use case for cart handler: %w", err)
		}
		return storefrontHTTP.NewCartHandler(useCase, c.Logger()), nil
	})
}

// OrderHandler returns the order HTTP handler.
func (c *Container) OrderHandler() (*storefrontHTTP.OrderHandler, error) {
	return lazy(c, &c.orderHandlerInit, "orderHandler", &c.orderHandler, func() (*storefrontHTTP.OrderHandler, error) {
		useCase, err := c.OrderUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get order use case for order handler: %w", err)
		}
		return storefrontHTTP.NewOrderHandler(useCase, c.Logger()), nil
	})
}

// CheckoutHandler returns the checkout HTTP handler.
func (c *Container) CheckoutHandler() (*storefrontHTTP.CheckoutHandler, error) {
	return lazy(
		c,
		&c.checkoutHandlerInit,
		"checkoutHandler",
		&c.checkoutHandler,
		func() (*storefrontHTTP.CheckoutHandler, error) {
			useCase, err := c.CheckoutUseCase()
			if err != nil {
				return nil, fmt.Errorf("failed to get checkout use case for checkout handler: %w", err)
			}
			return storefrontHTTP.NewCheckoutHandler(useCase, c.Logger()), nil
		},
	)
}

// initProductRepository creates the product repository based on the database driver.
func (c *Container) initProductRepository() (storefrontUseCase.ProductRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for product repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return storefrontRepository.NewPostgreSQLProductRepository(db), nil
	case "mysql":
		return storefrontRepository.NewMySQLProductRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initCartRepository creates the cart repository based on the database driver.
func (c *Container) initCartRepository() (storefrontUseCase.CartRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for cart repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return storefrontRepository.NewPostgreSQLCartRepository(db), nil
	case "mysql":
		return storefrontRepository.NewMySQLCartRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOrderRepository creates the order repository based on the database driver.
func (c *Container) initOrderRepository() (storefrontUseCase.OrderRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for order repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return storefrontRepository.NewPostgreSQLOrderRepository(db), nil
	case "mysql":
		return storefrontRepository.NewMySQLOrderRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initProductUseCase creates the product use case.
func (c *Container) initProductUseCase() (storefrontUseCase.ProductUseCase, error) {
	productRepository, err := c.ProductRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get product repository for product use case: %w", err)
	}
	return storefrontUseCase.NewProductUseCase(productRepository), nil
}

// initCartUseCase creates the cart use case with all its dependencies.
func (c *Container) initCartUseCase() (storefrontUseCase.CartUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for cart use case: %w", err)
	}

	cartRepository, err := c.CartRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart repository for cart use case: %w", err)
	}

	productRepository, err := c.ProductRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get product repository for cart use case: %w", err)
	}

	baseUseCase := storefrontUseCase.NewCartUseCase(txManager, cartRepository, productRepository)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for cart use case: %w", err)
		}
		return storefrontUseCase.NewCartUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initOrderUseCase creates the order use case.
func (c *Container) initOrderUseCase() (storefrontUseCase.OrderUseCase, error) {
	orderRepository, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for order use case: %w", err)
	}

	baseUseCase := storefrontUseCase.NewOrderUseCase(orderRepository)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for order use case: %w", err)
		}
		return storefrontUseCase.NewOrderUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initCheckoutUseCase creates the checkout use case. Inline side effects go to the
// dispatch scheduler.
func (c *Container) initCheckoutUseCase() (storefrontUseCase.CheckoutUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for checkout use case: %w", err)
	}

	cartRepository, err := c.CartRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart repository for checkout use case: %w", err)
	}

	productRepository, err := c.ProductRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get product repository for checkout use case: %w", err)
	}

	orderRepository, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for checkout use case: %w", err)
	}

	var submitter storefrontUseCase.ActionSubmitter
	if c.config.DispatchInlineEmissionEnabled {
		scheduler, err := c.Scheduler()
		if err != nil {
			return nil, fmt.Errorf("failed to get scheduler for checkout use case: %w", err)
		}
		submitter = scheduler
	}

	baseUseCase := storefrontUseCase.NewCheckoutUseCase(
		storefrontUseCase.CheckoutConfig{
			InlineEmission: c.config.DispatchInlineEmissionEnabled,
			EmitTimeout:    c.config.DispatchEmitTimeout,
		},
		txManager,
		cartRepository,
		productRepository,
		orderRepository,
		submitter,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for checkout use case: %w", err)
		}
		return storefrontUseCase.NewCheckoutUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
