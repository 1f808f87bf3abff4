package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	emailPkg "fisiocore/internal/adapters/email"
	web "fisiocore/internal/adapters/http"
	"fisiocore/internal/adapters/objectstore"
	"fisiocore/internal/adapters/storage"
	accountStore "fisiocore/internal/adapters/storage/account"
	auditStore "fisiocore/internal/adapters/storage/audit"
	deletionStore "fisiocore/internal/adapters/storage/deletion"
	recordStore "fisiocore/internal/adapters/storage/record"
	"fisiocore/internal/application/orchestrators"
	"fisiocore/internal/domain/retention"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Initialize database with WAL mode, foreign keys, and busy timeout
	dbPath := envOrDefault("FISIOCORE_DB", "fisiocore.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	// Health check
	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	log.Println("Database initialized successfully!")

	// Wrap DB with slow-query instrumentation
	timedDB := storage.NewTimedDB(db)

	acctStore := accountStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:  acctStore,
		DeletionStore: deletionStore.NewSQLiteStore(timedDB),
		AuditStore:    auditStore.NewSQLiteStore(timedDB),
		RecordStore:   recordStore.NewSQLiteStore(timedDB),
	}

	// Object storage holding user uploads: GCS in production, in-memory otherwise
	if bucket := os.Getenv("FISIOCORE_GCS_BUCKET"); bucket != "" {
		gcs, err := objectstore.NewGCSStore(context.Background(), bucket)
		if err != nil {
			log.Fatalf("failed to open GCS bucket %s: %v", bucket, err)
		}
		stores.ObjectStore = gcs
		log.Printf("Object storage configured (GCS bucket %s)", bucket)
	} else {
		stores.ObjectStore = objectstore.NewMemoryStore()
		log.Println("Object storage configured (in-memory — set FISIOCORE_GCS_BUCKET for real storage)")
	}

	// Seed default admin account if no accounts exist
	adminEmail := envOrDefault("FISIOCORE_ADMIN_EMAIL", "admin@fisiocore.app")
	adminPassword := envOrDefault("FISIOCORE_ADMIN_PASSWORD", "fisio core admin")
	generateID := func() string { return uuid.New().String() }
	seedDeps := orchestrators.CreateAccountDeps{
		AccountStore: acctStore,
		GenerateID:   generateID,
		Now:          time.Now,
	}
	if err := orchestrators.ExecuteSeedAdmin(context.Background(), seedDeps, adminEmail, adminPassword); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	// Configure email sender
	resendKey := os.Getenv("FISIOCORE_RESEND_KEY")
	emailFrom := envOrDefault("FISIOCORE_RESEND_FROM", "FisioCore <noreply@fisiocore.app>")
	emailReply := envOrDefault("FISIOCORE_REPLY_TO", "suporte@fisiocore.app")
	if resendKey != "" {
		web.SetEmailSender(emailPkg.NewResendSender(resendKey, emailFrom), emailFrom, emailReply)
		log.Println("Email sender configured (Resend)")
	} else {
		web.SetEmailSender(emailPkg.NewNoopSender(), emailFrom, emailReply)
		if os.Getenv("FISIOCORE_ENV") == "production" {
			log.Println("WARNING: FISIOCORE_RESEND_KEY is not set — email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop — set FISIOCORE_RESEND_KEY for real delivery)")
		}
	}

	// Start the background sweep that executes overdue deletion requests
	sweepInterval := time.Hour
	if v := os.Getenv("FISIOCORE_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid FISIOCORE_SWEEP_INTERVAL: %v", err)
		}
		sweepInterval = d
	}
	if sweepInterval > 0 {
		sweepStopCh := make(chan struct{})
		processor := orchestrators.NewSweepProcessor(orchestrators.ExecuteDeletionDeps{
			DeletionStore: stores.DeletionStore,
			RecordStore:   stores.RecordStore,
			AuditStore:    stores.AuditStore,
			ObjectStore:   stores.ObjectStore,
			IdentityStore: acctStore,
			Policies:      retention.DefaultTable(),
			GenerateID:    generateID,
			Now:           time.Now,
		})
		orchestrators.StartSweepWorker(processor, sweepInterval, sweepStopCh)
		defer close(sweepStopCh)
		log.Printf("Deletion sweep worker started (every %s)", sweepInterval)
	}

	// Create HTTP handler with middleware
	mux := web.NewMux(stores)

	// Start server
	addr := envOrDefault("FISIOCORE_ADDR", ":8080")
	log.Printf("FisioCore %s starting on %s (env=%s)", version, addr, envOrDefault("FISIOCORE_ENV", "development"))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
