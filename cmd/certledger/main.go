package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/certledger/certledger/internal/api"
	"github.com/certledger/certledger/internal/config"
	"github.com/certledger/certledger/internal/db"
	"github.com/certledger/certledger/internal/db/repository"
	"github.com/certledger/certledger/internal/docstore"
	"github.com/certledger/certledger/internal/ledger"
	"github.com/certledger/certledger/internal/pdf"
	"github.com/certledger/certledger/internal/service"
)

var (
	// Version information (set via ldflags)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "/etc/certledger/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Certificate Ledger Server\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Commit:     %s\n", Commit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	log.Printf("Starting Certificate Ledger Server %s (commit: %s)", Version, Commit)

	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	log.Printf("Loading configuration from %s", *configPath)
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	log.Printf("Connecting to database: %s", cfg.Database.Path)
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	log.Printf("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Document store
	docs, err := docstore.New(cfg.Documents.Dir)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}

	// Ledger transport
	var ledgerClient ledger.Ledger
	switch cfg.Ledger.Mode {
	case "memory":
		log.Printf("Using in-memory ledger (development mode)")
		ledgerClient = ledger.NewMemory()
	default:
		log.Printf("Connecting to ledger node: %s", cfg.Ledger.NodeURL)
		ledgerClient, err = ledger.NewHTTPClient(cfg.Ledger.NodeURL, cfg.Ledger.IssuerToken, cfg.GetLedgerTimeout())
		if err != nil {
			log.Fatalf("Failed to create ledger client: %v", err)
		}
	}

	// Initialize repositories
	recordRepo := repository.NewRecordRepository(database.DB)
	adminRepo := repository.NewAdminRepository(database.DB)
	auditRepo := repository.NewAuditRepository(database.DB)

	// Core services
	issuer, err := service.NewIssuer(service.IssuerParams{
		Ledger:           ledgerClient,
		Records:          recordRepo,
		Documents:        docs,
		PublicBaseURL:    cfg.Server.PublicBaseURL,
		LedgerTimeout:    cfg.GetLedgerTimeout(),
		MaxDocumentBytes: cfg.MaxDocumentBytes(),
	})
	if err != nil {
		log.Fatalf("Failed to create issuer: %v", err)
	}

	verifier, err := service.NewVerifier(service.VerifierParams{
		Ledger:        ledgerClient,
		Records:       recordRepo,
		Documents:     docs,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		LedgerTimeout: cfg.GetLedgerTimeout(),
	})
	if err != nil {
		log.Fatalf("Failed to create verifier: %v", err)
	}

	renderer, err := pdf.NewRenderer()
	if err != nil {
		log.Fatalf("Failed to create PDF renderer: %v", err)
	}

	// Consistency sweep
	scheduler := cron.New()
	if cfg.Reconcile.Enabled {
		reconciler, err := service.NewReconciler(ledgerClient, recordRepo, auditRepo, cfg.GetLedgerTimeout())
		if err != nil {
			log.Fatalf("Failed to create reconciler: %v", err)
		}
		_, err = scheduler.AddFunc(cfg.Reconcile.Schedule, func() {
			summary, err := reconciler.Sweep(context.Background())
			if err != nil {
				log.Printf("Reconciliation sweep failed: %v", err)
				return
			}
			log.Printf("Reconciliation sweep: checked=%d revoked=%d missing=%d mismatched=%d",
				summary.Checked, summary.Revoked, len(summary.MissingOnLedger), len(summary.FieldMismatch))
		})
		if err != nil {
			log.Fatalf("Failed to schedule reconciliation: %v", err)
		}
		scheduler.Start()
		log.Printf("Reconciliation sweep scheduled: %s", cfg.Reconcile.Schedule)
	}

	// Create HTTP server
	server := api.NewServer(
		cfg,
		issuer,
		verifier,
		renderer,
		docs,
		recordRepo,
		adminRepo,
		auditRepo,
	)

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Server.ListenAddr)
		if err := server.Run(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Certificate Ledger Server is running")

	// Wait for interrupt signal
	<-quit
	log.Printf("Shutting down server...")

	// Cleanup
	scheduler.Stop()
	database.Close()

	log.Printf("Server stopped")
}
