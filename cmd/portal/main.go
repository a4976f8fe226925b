package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portal/internal/amqp"
	"portal/internal/api"
	"portal/internal/branches"
	"portal/internal/cache"
	"portal/internal/cli"
	"portal/internal/core"
	"portal/internal/export"
	gsheet "portal/internal/export/google"
	apphttp "portal/internal/http"
	applog "portal/internal/log"
	"portal/internal/routing"
	"portal/internal/services"
	"portal/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	// SQLite holds the persisted session and the withdrawal audit log
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var sessionStorage session.Storage
	switch cfg.SessionBackend {
	case "sqlite":
		sessionStorage = repo.SessionStorage()
	default:
		sessionStorage = session.NewMemoryStorage()
	}
	sessions := session.NewStore(sessionStorage)
	sessions.Restore(context.Background())

	bank := api.NewClient(cfg.BankAPIBaseURL, cfg.BankAPITimeout)

	branchSet, err := branches.Load(cfg.BranchesFile)
	if err != nil {
		logger.Error("Failed to load branch catalog", "error", err, "path", cfg.BranchesFile)
		os.Exit(1)
	}

	statementCache := cache.NewLRUCache[[]core.StatementSection](cfg.StatementCacheSize, cfg.StatementCacheTTL)
	statements := services.NewStatementService(bank, statementCache)

	// AMQP is optional: withdrawals still work without the broker, the
	// notify worker sweep covers delivery.
	var publisher services.NotifyPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, withdrawal notifications deferred to worker sweep", "error", err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	withdrawals := services.NewWithdrawalService(repo, bank, publisher)

	// Statement export to Google Sheets (optional)
	var exporter export.StatementWriter
	if os.Getenv("GOOGLE_SPREADSHEET_ID") != "" {
		sheets, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = sheets
		logger.Info("Statement export enabled")
	} else {
		logger.Info("Statement export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	var roadRouter apphttp.RoadRouter
	if cfg.OSRMBaseURL != "" {
		roadRouter = routing.NewOSRMClient(cfg.OSRMBaseURL, 10*time.Second)
	}

	lat, lng := cfg.ReferencePoint()
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:    sessions,
		Bank:        bank,
		Statements:  statements,
		Withdrawals: withdrawals,
		Exporter:    exporter,
		RoadRouter:  roadRouter,
		Branches:    branchSet,
		Reference:   core.Point{Lat: lat, Lng: lng},
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting portal server",
		"port", cfg.Port,
		"bank_api", cfg.BankAPIBaseURL,
		"session_backend", cfg.SessionBackend,
		"branches", len(branchSet))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
