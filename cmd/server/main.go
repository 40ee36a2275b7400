package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kha159-create/alsani-cockpit/internal/api"
	"github.com/kha159-create/alsani-cockpit/internal/archive"
	"github.com/kha159-create/alsani-cockpit/internal/auth"
	"github.com/kha159-create/alsani-cockpit/internal/config"
	"github.com/kha159-create/alsani-cockpit/internal/docstore"
	"github.com/kha159-create/alsani-cockpit/internal/importer"
	"github.com/kha159-create/alsani-cockpit/internal/importlog"
	"github.com/kha159-create/alsani-cockpit/internal/insights"
	"github.com/kha159-create/alsani-cockpit/internal/llm"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/distlock"
	"github.com/kha159-create/alsani-cockpit/internal/worker"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  Alsani Cockpit Server (cmd/server/main.go)               ║")
	log.Println("║  Retail dashboard API with spreadsheet import             ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := checkPortAvailable(cfg.Server.GetHost(), cfg.Server.Port); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs the insight cache, the upload lock and optionally the store
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("WARNING: Redis at %s unreachable: %v (continuing without it)", cfg.Redis.Addr, err)
			redisClient.Close()
			redisClient = nil
		} else {
			log.Printf("Redis connected: %s", cfg.Redis.Addr)
		}
		pingCancel()
	}

	store, err := docstore.Open(ctx, cfg.Store, redisClient)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer store.Close()

	var lockDB *sql.DB
	if pg, ok := store.(*docstore.PostgresStore); ok {
		lockDB = pg.DB()
	}

	gen, err := llm.NewFromConfig(ctx, cfg.LLM, cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to initialize %s model client: %v", cfg.LLM.Provider, err)
	}
	prompts, err := llm.NewPrompts(cfg.LLM.Language)
	if err != nil {
		log.Fatalf("Failed to load prompts: %v", err)
	}
	log.Printf("Model provider: %s (language %s)", cfg.LLM.Provider, cfg.LLM.Language)

	classifier, err := importer.NewClassifier(gen, prompts)
	if err != nil {
		log.Fatalf("Failed to build classifier: %v", err)
	}
	pipeline := importer.NewPipeline(classifier, store,
		importer.WithChunkSize(cfg.Importer.ChunkSize),
		importer.WithRouter(importer.PrefixRouter{DuvetPrefixes: cfg.Importer.DuvetAliasPrefixes}),
	)
	insightService := insights.NewService(gen, prompts, redisClient, cfg.Redis.CacheTTL())

	var uploadArchive *archive.Archive
	var importLog importlog.Log = importlog.NewMemoryLog(0)
	if cfg.AWS.ArchiveBucket != "" || cfg.AWS.ImportLogTable != "" {
		awsCfg, err := cfg.AWS.SDKConfig(ctx, "")
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
		if cfg.AWS.ArchiveBucket != "" {
			uploadArchive = archive.NewFromConfig(awsCfg, cfg.AWS.ArchiveBucket)
			log.Printf("Upload archive: s3://%s", cfg.AWS.ArchiveBucket)
		}
		if cfg.AWS.ImportLogTable != "" {
			importLog = importlog.NewDynamoLogFromConfig(awsCfg, cfg.AWS.ImportLogTable)
			log.Printf("Import log: dynamodb table %s", cfg.AWS.ImportLogTable)
		}
	}

	uploadLock := func() distlock.DistLock {
		return distlock.NewLock(redisClient, lockDB, "upload", cfg.Importer.LockTTL())
	}

	handlers := api.NewHandlers(api.Deps{
		Store:        store,
		Pipeline:     pipeline,
		Insights:     insightService,
		Archive:      uploadArchive,
		ImportLog:    importLog,
		UploadLock:   uploadLock,
		MaxUploadMB:  cfg.Server.MaxUploadMB,
		PreviewLimit: cfg.Importer.PreviewLimit,
	})

	if cfg.Briefing.Enabled {
		briefingWorker, err := worker.NewBriefingWorker(store, insightService,
			cfg.Briefing.Schedule, cfg.Briefing.Timezone,
			distlock.NewLock(redisClient, lockDB, "briefing", 10*time.Minute))
		if err != nil {
			log.Fatalf("Failed to configure briefing worker: %v", err)
		}
		go func() {
			if err := briefingWorker.Start(ctx); err != nil {
				log.Printf("[Briefing] worker stopped: %v", err)
			}
		}()
		log.Printf("Daily briefing scheduled: %q (%s)", cfg.Briefing.Schedule, cfg.Briefing.Timezone)
	}

	var authManager *auth.AuthManager
	if cfg.Auth.Enabled {
		baseURL := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		authManager = auth.NewAuthManager(cfg.Auth, baseURL)
		if err := authManager.ValidateCredentials(ctx); err != nil {
			log.Fatalf("FATAL: Google OAuth credentials invalid: %v", err)
		}
		authManager.CleanupExpiredSessions(ctx)
		log.Printf("Google login enabled (domain %q)", cfg.Auth.AllowedDomain)
	} else {
		log.Println("WARNING: authentication disabled, /api is open")
	}

	health := api.NewHealthChecker(store, redisClient)
	server := api.NewServer(cfg.Server, handlers, health, authManager)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized, server is ready")

	<-done
	log.Println("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Server stopped")
}
