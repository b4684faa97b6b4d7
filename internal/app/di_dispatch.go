package app

import (
	"context"
	"fmt"

	"github.com/allisson/storefront/internal/cdc"
	"github.com/allisson/storefront/internal/config"
	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	dispatchHTTP "github.com/allisson/storefront/internal/dispatch/http"
	dispatchRepository "github.com/allisson/storefront/internal/dispatch/repository"
	dispatchUseCase "github.com/allisson/storefront/internal/dispatch/usecase"
	"github.com/allisson/storefront/internal/provider"
)

// LedgerRepository returns the idempotency ledger repository based on database driver.
func (c *Container) LedgerRepository() (dispatchUseCase.LedgerRepository, error) {
	return lazy(c, &c.ledgerRepositoryInit, "ledgerRepository", &c.ledgerRepository, c.initLedgerRepository)
}

// DeadLetterRepository returns the dead letter repository based on database driver.
func (c *Container) DeadLetterRepository() (dispatchUseCase.DeadLetterRepository, error) {
	return lazy(
		c,
		&c.deadLetterRepositoryInit,
		"deadLetterRepository",
		&c.deadLetterRepository,
		c.initDeadLetterRepository,
	)
}

// ProviderInvoker returns the gateway in front of the external providers.
func (c *Container) ProviderInvoker() (provider.Invoker, error) {
	return lazy(c, &c.providerInvokerInit, "providerInvoker", &c.providerInvoker, c.initProviderInvoker)
}

// Scheduler returns the retry scheduler. Callers own running it.
func (c *Container) Scheduler() (*dispatchUseCase.Scheduler, error) {
	return lazy(c, &c.schedulerInit, "scheduler", &c.scheduler, c.initScheduler)
}

// RouterUseCase returns the change event router.
func (c *Container) RouterUseCase() (dispatchUseCase.RouterUseCase, error) {
	return lazy(c, &c.routerUseCaseInit, "routerUseCase", &c.routerUseCase, c.initRouterUseCase)
}

// DeadLetterUseCase returns the dead letter use case.
func (c *Container) DeadLetterUseCase() (dispatchUseCase.DeadLetterUseCase, error) {
	return lazy(c, &c.deadLetterUseCaseInit, "deadLetterUseCase", &c.deadLetterUseCase, c.initDeadLetterUseCase)
}

// ChangeEventHandler returns the Debezium webhook handler.
func (c *Container) ChangeEventHandler() (*dispatchHTTP.ChangeEventHandler, error) {
	return lazy(
		c,
		&c.changeEventHandlerInit,
		"changeEventHandler",
		&c.changeEventHandler,
		func() (*dispatchHTTP.ChangeEventHandler, error) {
			routerUseCase, err := c.RouterUseCase()
			if err != nil {
				return nil, fmt.Errorf("failed to get router use case for change event handler: %w", err)
			}
			return dispatchHTTP.NewChangeEventHandler(routerUseCase, c.Logger()), nil
		},
	)
}

// DeadLetterHandler returns the dead letter HTTP handler.
func (c *Container) DeadLetterHandler() (*dispatchHTTP.DeadLetterHandler, error) {
	return lazy(
		c,
		&c.deadLetterHandlerInit,
		"deadLetterHandler",
		&c.deadLetterHandler,
		func() (*dispatchHTTP.DeadLetterHandler, error) {
			deadLetterUseCase, err := c.DeadLetterUseCase()
			if err != nil {
				return nil, fmt.Errorf("failed to get dead letter use case for dead letter handler: %w", err)
			}
			return dispatchHTTP.NewDeadLetterHandler(deadLetterUseCase, c.Logger()), nil
		},
	)
}

// ChangeFeed opens the configured change feed. It returns nil when change events arrive
// through the HTTP webhook. The caller closes the feed.
func (c *Container) ChangeFeed(ctx context.Context) (dispatchDomain.ChangeFeed, error) {
	switch c.config.CDCSource {
	case config.CDCSourceWebhook, "":
		return nil, nil
	case config.CDCSourcePubSub:
		feed, err := cdc.OpenPubSubFeed(ctx, c.config.CDCPubSubURL, c.Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to open pubsub change feed: %w", err)
		}
		return feed, nil
	case config.CDCSourceKafka:
		feed, err := cdc.NewKafkaFeed(cdc.KafkaConfig{
			Brokers: c.config.CDCKafkaBrokers,
			GroupID: c.config.CDCKafkaGroupID,
			Topics:  c.config.KafkaTopics(),
		}, c.Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to open kafka change feed: %w", err)
		}
		return feed, nil
	default:
		return nil, fmt.Errorf("unsupported cdc source: %s", c.config.CDCSource)
	}
}

// initLedgerRepository creates the ledger repository based on the database driver.
func (c *Container) initLedgerRepository() (dispatchUseCase.LedgerRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for ledger repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return dispatchRepository.NewPostgreSQLLedgerRepository(db), nil
	case "mysql":
		return dispatchRepository.NewMySQLLedgerRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDeadLetterRepository creates the dead letter repository based on the database driver.
func (c *Container) initDeadLetterRepository() (dispatchUseCase.DeadLetterRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for dead letter repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return dispatchRepository.NewPostgreSQLDeadLetterRepository(db), nil
	case "mysql":
		return dispatchRepository.NewMySQLDeadLetterRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initProviderInvoker builds the simulated providers behind the rate-limited gateway.
func (c *Container) initProviderInvoker() (provider.Invoker, error) {
	logger := c.Logger()

	providers, err := provider.NewDefaultProviders(
		c.config.ProviderEmailFailureRate,
		c.config.ProviderFulfillmentFailureRate,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create providers: %w", err)
	}

	gateway := provider.NewGateway(provider.GatewayConfig{
		Timeout:   c.config.ProviderTimeout,
		RateLimit: c.config.ProviderRateLimit,
		RateBurst: c.config.ProviderRateBurst,
	}, providers, logger)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for provider invoker: %w", err)
		}
		return provider.NewInvokerWithMetrics(gateway, businessMetrics), nil
	}

	return gateway, nil
}

// initScheduler creates the retry scheduler with all its dependencies.
func (c *Container) initScheduler() (*dispatchUseCase.Scheduler, error) {
	ledgerRepository, err := c.LedgerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger repository for scheduler: %w", err)
	}

	deadLetterRepository, err := c.DeadLetterRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter repository for scheduler: %w", err)
	}

	invoker, err := c.ProviderInvoker()
	if err != nil {
		return nil, fmt.Errorf("failed to get provider invoker for scheduler: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for scheduler: %w", err)
	}

	return dispatchUseCase.NewScheduler(
		dispatchUseCase.SchedulerConfig{
			MaxAttempts:      c.config.DispatchMaxAttempts,
			QueueSize:        c.config.DispatchQueueSize,
			MaxInFlight:      c.config.DispatchMaxInFlight,
			MaxPending:       c.config.DispatchMaxPending,
			DeadLetterMemory: c.config.DispatchDeadLetterMemory,
			Backoff: dispatchUseCase.Backoff{
				Base:   c.config.DispatchBackoffBase,
				Factor: c.config.DispatchBackoffFactor,
				Max:    c.config.DispatchBackoffMax,
				Jitter: c.config.DispatchBackoffJitter,
			},
		},
		ledgerRepository,
		invoker,
		deadLetterRepository,
		businessMetrics,
		c.Logger(),
	), nil
}

// initRouterUseCase creates the router that feeds the scheduler.
func (c *Container) initRouterUseCase() (dispatchUseCase.RouterUseCase, error) {
	scheduler, err := c.Scheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduler for router use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for router use case: %w", err)
	}

	return dispatchUseCase.NewRouterUseCase(scheduler, businessMetrics, c.Logger()), nil
}

// initDeadLetterUseCase creates the dead letter use case.
func (c *Container) initDeadLetterUseCase() (dispatchUseCase.DeadLetterUseCase, error) {
	deadLetterRepository, err := c.DeadLetterRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter repository for dead letter use case: %w", err)
	}

	baseUseCase := dispatchUseCase.NewDeadLetterUseCase(deadLetterRepository)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for dead letter use case: %w", err)
		}
		return dispatchUseCase.NewDeadLetterUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
