package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/artha-erp/artha-erp/internal/app"
	"github.com/artha-erp/artha-erp/internal/auth"
	"github.com/artha-erp/artha-erp/internal/capital"
	"github.com/artha-erp/artha-erp/internal/documents"
	"github.com/artha-erp/artha-erp/internal/expenses"
	"github.com/artha-erp/artha-erp/internal/ledger"
	ledgerexport "github.com/artha-erp/artha-erp/internal/ledger/export"
	"github.com/artha-erp/artha-erp/internal/masterdata/vendors"
	"github.com/artha-erp/artha-erp/internal/observability"
	platformcache "github.com/artha-erp/artha-erp/internal/platform/cache"
	platformdb "github.com/artha-erp/artha-erp/internal/platform/db"
	"github.com/artha-erp/artha-erp/internal/procurement"
	"github.com/artha-erp/artha-erp/internal/rbac"
	"github.com/artha-erp/artha-erp/internal/reconcile"
	"github.com/artha-erp/artha-erp/internal/shared"
	"github.com/artha-erp/artha-erp/internal/shareholders"
	"github.com/artha-erp/artha-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := platformdb.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := platformcache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "artha_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	vendorRepo := vendors.NewRepository(pool)
	vendorService := vendors.NewService(vendorRepo)
	vendorHandler := vendors.NewHandler(logger, vendorService, rbacMiddleware)

	shareholderRepo := shareholders.NewRepository(pool)
	shareholderService := shareholders.NewService(shareholderRepo)
	shareholderHandler := shareholders.NewHandler(logger, shareholderService, rbacMiddleware)

	capitalRepo := capital.NewRepository(pool)
	capitalService := capital.NewService(logger, capitalRepo, shareholderRepo, auditLogger)
	capitalHandler := capital.NewHandler(logger, capitalService, rbacMiddleware)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, auditLogger, idempotencyStore)
	procurementHandler := procurement.NewHandler(logger, procurementService, rbacMiddleware)

	expenseRepo := expenses.NewRepository(pool)
	expenseService := expenses.NewService(expenseRepo, auditLogger)
	expenseHandler := expenses.NewHandler(logger, expenseService, rbacMiddleware)

	reconcileRepo := reconcile.NewRepository(pool)
	reconcileService := reconcile.NewService(reconcileRepo, procurementService, auditLogger)
	reconcileHandler := reconcile.NewHandler(logger, reconcileService, rbacMiddleware)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerCache := ledger.NewCache(redisClient, cfg.LedgerCacheTTL)
	ledgerService := ledger.NewService(ledgerRepo, reconcileService, ledgerCache)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, rbacMiddleware)
	ledgerExportHandler := ledgerexport.NewHandler(logger, ledgerService, rbacMiddleware)

	documentRepo := documents.NewRepository(pool)
	documentService := documents.NewService(documentRepo, auditLogger)
	documentHandler := documents.NewHandler(logger, documentService, rbacMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		AuthHandler:         authHandler,
		VendorsHandler:      vendorHandler,
		ShareholderHandler:  shareholderHandler,
		CapitalHandler:      capitalHandler,
		ProcurementHandler:  procurementHandler,
		ExpenseHandler:      expenseHandler,
		ReconcileHandler:    reconcileHandler,
		LedgerHandler:       ledgerHandler,
		LedgerExportHandler: ledgerExportHandler,
		DocumentsHandler:    documentHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
