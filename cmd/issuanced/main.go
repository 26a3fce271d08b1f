package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hedgeline/issuance/internal/api"
	"github.com/hedgeline/issuance/internal/asset"
	"github.com/hedgeline/issuance/internal/config"
	"github.com/hedgeline/issuance/internal/database"
	"github.com/hedgeline/issuance/internal/export"
	"github.com/hedgeline/issuance/internal/journal"
	"github.com/hedgeline/issuance/internal/market"
	"github.com/hedgeline/issuance/internal/oracle"
	"github.com/hedgeline/issuance/internal/position"
	"github.com/hedgeline/issuance/internal/registry"
	"github.com/hedgeline/issuance/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// Without a database the daemon runs in simulation mode: the event
	// journal and quote store live in memory and vanish on restart.
	var eventRepo journal.Repository
	var quoteRepo oracle.QuoteRepository
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, running with in-memory journal and quote store")
		eventRepo = journal.NewMemoryRepository()
	} else {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			log.Fatalf("Failed to create migrations sub-fs: %v", err)
		}
		if err := database.Migrate(ctx, pool, migrationsSub); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}

		eventRepo = journal.NewPgRepository(pool)
		quoteRepo = oracle.NewPgQuoteRepository(pool)
	}
	recorder := journal.NewRecorder(eventRepo)

	// Settlement assets and the shared position ledger
	usdc := asset.NewToken("USDC", 6)
	native := asset.NewToken("NATIVE", 18)
	positions := position.NewLedger()

	// Reference price oracle
	oracleClient := oracle.NewClient(cfg.PriceFeedURL, cfg.PriceFeedDelay, cfg.PriceFeedRetryMax)
	oracleSvc := oracle.NewService(oracleClient, quoteRepo)

	// Product registry and secondary marketplace
	reg := registry.NewRegistry(usdc, positions, recorder)
	mkt := market.NewMarketplace(positions, cfg.FeeRecipient, cfg.PlatformFeeRate, oracleSvc, recorder)
	mkt.AllowAsset(usdc.Symbol(), usdc)
	mkt.AllowAsset(native.Symbol(), native)

	// Start workers
	quoteWorker := worker.NewQuoteWorker(oracleSvc, cfg.QuoteWorkerInterval)
	go quoteWorker.Run(ctx)

	couponWorker := worker.NewCouponWorker(reg, cfg.OperatorAddress, cfg.CouponWorkerInterval)
	go couponWorker.Run(ctx)

	// Statement export runs only when at least one destination is configured
	var writers []export.StatementWriter
	if cfg.StatementXLSXPath != "" {
		writers = append(writers, export.NewXLSXWriter(cfg.StatementXLSXPath))
	}
	if cfg.SheetsSpreadsheetID != "" && cfg.SheetsCredentialsJSON != "" {
		sheetsWriter, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsJSON)
		if err != nil {
			log.Fatalf("Failed to create sheets writer: %v", err)
		}
		writers = append(writers, sheetsWriter)
	}
	if len(writers) > 0 {
		exportSvc := export.NewService(reg, writers...)
		statementWorker := worker.NewStatementWorker(exportSvc, cfg.StatementInterval)
		go statementWorker.Run(ctx)
	}

	if cfg.OperatorAPIKey == "" {
		slog.Warn("OPERATOR_API_KEY not set, operator endpoints are unprotected")
	}

	// Start HTTP server
	handler := api.NewHandler(reg, mkt, eventRepo, cfg.OperatorAddress)
	srv := api.NewServer(cfg.HTTPPort, handler, cfg.OperatorAPIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
