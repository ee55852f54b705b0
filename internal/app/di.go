// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/payments/internal/config"
	"github.com/allisson/payments/internal/database"
	"github.com/allisson/payments/internal/gateway"
	"github.com/allisson/payments/internal/http"
	"github.com/allisson/payments/internal/metrics"

	deadletterDomain "github.com/allisson/payments/internal/deadletter/domain"
	deadletterHTTP "github.com/allisson/payments/internal/deadletter/http"
	deadletterRepository "github.com/allisson/payments/internal/deadletter/repository"
	deadletterUsecase "github.com/allisson/payments/internal/deadletter/usecase"
	outboxDomain "github.com/allisson/payments/internal/outbox/domain"
	outboxRepository "github.com/allisson/payments/internal/outbox/repository"
	outboxUsecase "github.com/allisson/payments/internal/outbox/usecase"
	paymentHTTP "github.com/allisson/payments/internal/payment/http"
	paymentRepository "github.com/allisson/payments/internal/payment/repository"
	paymentUsecase "github.com/allisson/payments/internal/payment/usecase"
)

// OutboxEventRepository is the full outbox repository surface. The use case
// packages consume narrower views of it.
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*outboxDomain.OutboxEvent, error)
	ClaimNext(ctx context.Context) (*outboxDomain.OutboxEvent, error)
	Update(ctx context.Context, event *outboxDomain.OutboxEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DeadLetterRepository is the full dead letter repository surface.
type DeadLetterRepository interface {
	Create(ctx context.Context, deadLetter *deadletterDomain.DeadLetter) error
	GetByID(ctx context.Context, id uuid.UUID) (*deadletterDomain.DeadLetter, error)
	List(ctx context.Context, offset, limit int) ([]*deadletterDomain.DeadLetter, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	db     *sql.DB

	// Managers
	txManager database.TxManager

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Repositories
	transactionRepo paymentUsecase.TransactionRepository
	idempotencyRepo paymentUsecase.IdempotencyRepository
	outboxRepo      OutboxEventRepository
	deadLetterRepo  DeadLetterRepository

	// Gateway
	gateway gateway.Gateway

	// Use Cases
	paymentUseCase    paymentUsecase.UseCase
	dispatcherUseCase outboxUsecase.UseCase
	deadLetterUseCase deadletterUsecase.UseCase

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	txManagerInit         sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	transactionRepoInit   sync.Once
	idempotencyRepoInit   sync.Once
	outboxRepoInit        sync.Once
	deadLetterRepoInit    sync.Once
	gatewayInit           sync.Once
	paymentUseCaseInit    sync.Once
	dispatcherUseCaseInit sync.Once
	deadLetterUseCaseInit sync.Once
	httpServerInit        sync.Once
	metricsServerInit     sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		txManager, err := c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
			return
		}
		c.txManager = txManager
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		c.businessMetrics = businessMetrics
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// TransactionRepository returns the payment transaction repository instance.
func (c *Container) TransactionRepository() (paymentUsecase.TransactionRepository, error) {
	c.transactionRepoInit.Do(func() {
		repo, err := c.initTransactionRepository()
		if err != nil {
			c.initErrors["transactionRepo"] = err
			return
		}
		c.transactionRepo = repo
	})
	if storedErr, exists := c.initErrors["transactionRepo"]; exists {
		return nil, storedErr
	}
	return c.transactionRepo, nil
}

// IdempotencyRepository returns the idempotency record repository instance.
func (c *Container) IdempotencyRepository() (paymentUsecase.IdempotencyRepository, error) {
	c.idempotencyRepoInit.Do(func() {
		repo, err := c.initIdempotencyRepository()
		if err != nil {
			c.initErrors["idempotencyRepo"] = err
			return
		}
		c.idempotencyRepo = repo
	})
	if storedErr, exists := c.initErrors["idempotencyRepo"]; exists {
		return nil, storedErr
	}
	return c.idempotencyRepo, nil
}

// OutboxRepository returns the outbox event repository instance.
func (c *Container) OutboxRepository() (OutboxEventRepository, error) {
	c.outboxRepoInit.Do(func() {
		repo, err := c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
			return
		}
		c.outboxRepo = repo
	})
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// DeadLetterRepository returns the dead letter repository instance.
func (c *Container) DeadLetterRepository() (DeadLetterRepository, error) {
	c.deadLetterRepoInit.Do(func() {
		repo, err := c.initDeadLetterRepository()
		if err != nil {
			c.initErrors["deadLetterRepo"] = err
			return
		}
		c.deadLetterRepo = repo
	})
	if storedErr, exists := c.initErrors["deadLetterRepo"]; exists {
		return nil, storedErr
	}
	return c.deadLetterRepo, nil
}

// Gateway returns the payment gateway instance.
func (c *Container) Gateway() (gateway.Gateway, error) {
	c.gatewayInit.Do(func() {
		c.gateway = gateway.NewSimulator(gateway.SimulatorConfig{
			SuccessRate: c.config.GatewaySuccessRate,
			MinLatency:  c.config.GatewayMinLatency,
			MaxLatency:  c.config.GatewayMaxLatency,
		}, c.Logger())
	})
	return c.gateway, nil
}

// PaymentUseCase returns the payment use case instance.
func (c *Container) PaymentUseCase() (paymentUsecase.UseCase, error) {
	c.paymentUseCaseInit.Do(func() {
		useCase, err := c.initPaymentUseCase()
		if err != nil {
			c.initErrors["paymentUseCase"] = err
			return
		}
		c.paymentUseCase = useCase
	})
	if storedErr, exists := c.initErrors["paymentUseCase"]; exists {
		return nil, storedErr
	}
	return c.paymentUseCase, nil
}

// DispatcherUseCase returns the outbox dispatcher use case instance.
func (c *Container) DispatcherUseCase() (outboxUsecase.UseCase, error) {
	c.dispatcherUseCaseInit.Do(func() {
		useCase, err := c.initDispatcherUseCase()
		if err != nil {
			c.initErrors["dispatcherUseCase"] = err
			return
		}
		c.dispatcherUseCase = useCase
	})
	if storedErr, exists := c.initErrors["dispatcherUseCase"]; exists {
		return nil, storedErr
	}
	return c.dispatcherUseCase, nil
}

// DeadLetterUseCase returns the dead letter use case instance.
func (c *Container) DeadLetterUseCase() (deadletterUsecase.UseCase, error) {
	c.deadLetterUseCaseInit.Do(func() {
		useCase, err := c.initDeadLetterUseCase()
		if err != nil {
			c.initErrors["deadLetterUseCase"] = err
			return
		}
		c.deadLetterUseCase = useCase
	})
	if storedErr, exists := c.initErrors["deadLetterUseCase"]; exists {
		return nil, storedErr
	}
	return c.deadLetterUseCase, nil
}

// HTTPServer returns the API HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initTransactionRepository creates the transaction repository instance.
func (c *Container) initTransactionRepository() (paymentUsecase.TransactionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for transaction repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return paymentRepository.NewMySQLTransactionRepository(db), nil
	case "postgres":
		return paymentRepository.NewPostgreSQLTransactionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initIdempotencyRepository creates the idempotency record repository instance.
func (c *Container) initIdempotencyRepository() (paymentUsecase.IdempotencyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for idempotency repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return paymentRepository.NewMySQLIdempotencyRepository(db), nil
	case "postgres":
		return paymentRepository.NewPostgreSQLIdempotencyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOutboxRepository creates the outbox event repository instance.
func (c *Container) initOutboxRepository() (OutboxEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return outboxRepository.NewMySQLOutboxRepository(db), nil
	case "postgres":
		return outboxRepository.NewPostgreSQLOutboxRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDeadLetterRepository creates the dead letter repository instance.
func (c *Container) initDeadLetterRepository() (DeadLetterRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for dead letter repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return deadletterRepository.NewMySQLDeadLetterRepository(db), nil
	case "postgres":
		return deadletterRepository.NewPostgreSQLDeadLetterRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initPaymentUseCase creates the payment use case with all its dependencies.
func (c *Container) initPaymentUseCase() (paymentUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for payment use case: %w", err)
	}

	transactionRepo, err := c.TransactionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction repository for payment use case: %w", err)
	}

	idempotencyRepo, err := c.IdempotencyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency repository for payment use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for payment use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for payment use case: %w", err)
	}

	useCase := paymentUsecase.NewPaymentUseCase(txManager, transactionRepo, idempotencyRepo, outboxRepo)
	return paymentUsecase.NewPaymentUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initDispatcherUseCase creates the outbox dispatcher with all its dependencies.
func (c *Container) initDispatcherUseCase() (outboxUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for dispatcher: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for dispatcher: %w", err)
	}

	transactionRepo, err := c.TransactionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction repository for dispatcher: %w", err)
	}

	idempotencyRepo, err := c.IdempotencyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency repository for dispatcher: %w", err)
	}

	deadLetterRepo, err := c.DeadLetterRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter repository for dispatcher: %w", err)
	}

	gw, err := c.Gateway()
	if err != nil {
		return nil, fmt.Errorf("failed to get gateway for dispatcher: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for dispatcher: %w", err)
	}

	useCaseConfig := outboxUsecase.Config{
		Interval:       c.config.WorkerInterval,
		MaxAttempts:    c.config.WorkerMaxAttempts,
		GatewayTimeout: c.config.GatewayTimeout,
	}

	useCase := outboxUsecase.NewDispatcherUseCase(
		useCaseConfig,
		txManager,
		outboxRepo,
		transactionRepo,
		idempotencyRepo,
		deadLetterRepo,
		gw,
		c.Logger(),
	)
	return outboxUsecase.NewDispatcherUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initDeadLetterUseCase creates the dead letter use case with all its dependencies.
func (c *Container) initDeadLetterUseCase() (deadletterUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for dead letter use case: %w", err)
	}

	deadLetterRepo, err := c.DeadLetterRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter repository for dead letter use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for dead letter use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for dead letter use case: %w", err)
	}

	useCase := deadletterUsecase.NewDeadLetterUseCase(txManager, deadLetterRepo, outboxRepo)
	return deadletterUsecase.NewDeadLetterUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initHTTPServer creates the API HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	paymentUseCase, err := c.PaymentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get payment use case for http server: %w", err)
	}

	deadLetterUseCase, err := c.DeadLetterUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter use case for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	serverConfig := http.Config{
		Host:                    c.config.ServerHost,
		Port:                    c.config.ServerPort,
		GinMode:                 c.config.GetGinMode(),
		CORSEnabled:             c.config.CORSEnabled,
		CORSAllowOrigins:        c.config.CORSAllowOrigins,
		RateLimitEnabled:        c.config.RateLimitEnabled,
		RateLimitRequestsPerSec: c.config.RateLimitRequestsPerSec,
		RateLimitBurst:          c.config.RateLimitBurst,
	}

	handlers := http.Handlers{
		Payment:    paymentHTTP.NewPaymentHandler(paymentUseCase, c.config.DefaultClientID, logger),
		DeadLetter: deadletterHTTP.NewDeadLetterHandler(deadLetterUseCase, logger),
	}

	var httpMetricsMiddleware gin.HandlerFunc
	if provider != nil {
		httpMetricsMiddleware = metrics.HTTPMetricsMiddleware(provider.MeterProvider(), c.config.MetricsNamespace)
	}

	return http.NewServer(serverConfig, handlers, httpMetricsMiddleware, logger), nil
}
