package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nmehta6/churnbank/cmd/docs"
	"github.com/nmehta6/churnbank/internal/adapters/database/memory"
	"github.com/nmehta6/churnbank/internal/adapters/database/pgsql"
	"github.com/nmehta6/churnbank/internal/adapters/scoring"
	portsrepo "github.com/nmehta6/churnbank/internal/core/ports/repositories"
	portssvc "github.com/nmehta6/churnbank/internal/core/ports/services"
	"github.com/nmehta6/churnbank/internal/core/services"
	"github.com/nmehta6/churnbank/internal/handlers"
	"github.com/nmehta6/churnbank/internal/middleware"
	"github.com/nmehta6/churnbank/pkg/cache"
	"github.com/nmehta6/churnbank/pkg/config"
	"github.com/nmehta6/churnbank/pkg/database"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title ChurnBank Backend API
// @version 1.0
// @description Ledger transaction engine with churn risk scoring.

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ledgerRepo, logRepo, dbPool := setupStorage(cfg, logger)
	if dbPool != nil {
		defer dbPool.Close()
	}

	scorer := setupScorer(cfg, logger)
	riskCache := setupRiskCache(cfg, logger)
	if riskCache != nil {
		defer riskCache.Close()
	}

	accountService := services.NewAccountService(ledgerRepo)
	processor := services.NewTransactionProcessor(ledgerRepo, logRepo, cfg.LockWaitTimeout)
	riskService := services.NewRiskService(ledgerRepo, logRepo, scorer, nil, riskCache, cfg.RiskCacheTTL)

	// Re-score accounts after each committed mutation. Runs outside the
	// account locks; failures here must not affect the committed operation.
	processor.SetCommitHook(func(accountID string) {
		ctx := context.Background()
		riskService.InvalidateRisk(ctx, accountID)
		if _, err := riskService.ComputeRisk(ctx, accountID); err != nil {
			logger.Warn("Post-commit risk scoring failed",
				slog.String("account_id", accountID), slog.String("error", err.Error()))
		}
	})

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit format", slog.String("rate_limit", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}
	r.Use(middleware.RateLimit(limiter.New(limitermem.NewStore(), rate)))

	r.GET("/healthz", handlers.GetHome)

	setupAPIV1Routes(r, accountService, processor, riskService)
	setupSwaggerRoutes(r, cfg)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setupStorage wires pgsql-backed repositories when a database URL is
// configured, falling back to the in-memory store otherwise.
func setupStorage(cfg *config.Config, logger *slog.Logger) (portsrepo.LedgerRepository, portsrepo.TransactionLogRepository, *pgxpool.Pool) {
	if cfg.DatabaseURL == "" {
		logger.Warn("No database configured; ledger state will not survive restarts")
		store := memory.NewStore()
		return store, store, nil
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Database connection pool established.")

	runMigrations(cfg, logger)

	return pgsql.NewLedgerRepository(dbPool), pgsql.NewTransactionLogRepository(dbPool), dbPool
}

func runMigrations(cfg *config.Config, logger *slog.Logger) {
	logger.Info("Running database migrations...")
	// Open a temporary standard sql.DB connection for migrations, using the
	// pgx stdlib driver to stay compatible with the main pool.
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open database connection for migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		logger.Error("Could not create postgres driver instance for migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		logger.Error("Could not create migrate instance", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		logger.Error("Migration source error", slog.String("error", sourceErr.Error()))
		os.Exit(1)
	}
	if dbErr != nil {
		logger.Error("Migration database error", slog.String("error", dbErr.Error()))
		os.Exit(1)
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
}

// setupScorer loads the churn model artifact. A missing or unreadable model
// is not fatal: the risk service falls back to degraded scoring.
func setupScorer(cfg *config.Config, logger *slog.Logger) portssvc.ChurnScorer {
	if cfg.ModelPath == "" {
		logger.Warn("No churn model configured; risk scoring runs degraded")
		return nil
	}
	scorer, err := scoring.NewLogisticScorer(cfg.ModelPath)
	if err != nil {
		logger.Warn("Failed to load churn model; risk scoring runs degraded",
			slog.String("model_path", cfg.ModelPath), slog.String("error", err.Error()))
		return nil
	}
	logger.Info("Churn model loaded", slog.String("model_path", cfg.ModelPath))
	return scorer
}

func setupRiskCache(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	client, err := cache.NewRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.Warn("Failed to connect to redis; risk assessments will not be cached", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("Redis risk cache connected.")
	return client
}

func setupAPIV1Routes(r *gin.Engine, accountService portssvc.AccountSvcFacade, processor portssvc.TransactionSvcFacade, riskService portssvc.RiskSvcFacade) {
	v1 := r.Group("/api/v1")

	accountHandler := handlers.NewAccountHandler(accountService)
	transactionHandler := handlers.NewTransactionHandler(processor)
	riskHandler := handlers.NewRiskHandler(riskService)

	accounts := v1.Group("/accounts")
	{
		accounts.POST("", accountHandler.CreateAccount)
		accounts.GET("/:accountID", accountHandler.GetAccount)
		accounts.DELETE("/:accountID", accountHandler.CloseAccount)
		accounts.POST("/:accountID/deposits", transactionHandler.Deposit)
		accounts.POST("/:accountID/withdrawals", transactionHandler.Withdraw)
		accounts.GET("/:accountID/transactions", transactionHandler.History)
		accounts.GET("/:accountID/risk", riskHandler.ComputeRisk)
	}

	v1.POST("/transfers", transactionHandler.Transfer)
}

func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
