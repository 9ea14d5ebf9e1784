package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keepstack/keepstack/internal/application"
	appitems "github.com/keepstack/keepstack/internal/application/items"
	"github.com/keepstack/keepstack/internal/application/queue"
	"github.com/keepstack/keepstack/internal/config"
	domai "github.com/keepstack/keepstack/internal/domain/ai"
	"github.com/keepstack/keepstack/internal/domain/faults"
	domain "github.com/keepstack/keepstack/internal/domain/items"
	localai "github.com/keepstack/keepstack/internal/infra/ai/local"
	openaiclient "github.com/keepstack/keepstack/internal/infra/ai/openai"
	"github.com/keepstack/keepstack/internal/infra/db/memory"
	mysqlp "github.com/keepstack/keepstack/internal/infra/db/mysql"
	postgresp "github.com/keepstack/keepstack/internal/infra/db/postgres"
	"github.com/keepstack/keepstack/internal/infra/httpserver"
	minioStore "github.com/keepstack/keepstack/internal/infra/storage"
	"github.com/keepstack/keepstack/internal/middleware"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, closeLog := config.SetupLogger(cfg.Log.File, config.ParseLevel(cfg.Log.Level))
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// persistence
	var (
		repo     domain.Repository
		faultLog faults.Repository
		db       *sql.DB
	)
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		defer db.Close()
		repo = mysqlp.NewItemRepository(db)
		faultLog = mysqlp.NewFaultRepository(db)
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer db.Close()
		repo = postgresp.NewItemRepository(db)
		faultLog = postgresp.NewFaultRepository(db)
	case "memory":
		repo = memory.New()
		faultLog = memory.NewFaultRepository()
	default:
		log.Fatalf("unknown database driver: %q", cfg.Database.Driver)
	}

	// object storage for image payloads (optional)
	var images appitems.ImageStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		images = store
	}

	// analyzer
	var analyzer domai.Analyzer
	switch cfg.AI.Provider {
	case "openai":
		analyzer = openaiclient.NewClient(cfg.AI.APIKey, cfg.AI.Model)
	case "local":
		analyzer = localai.NewClient()
	default:
		log.Fatalf("unknown ai provider: %q", cfg.AI.Provider)
	}

	svc := &appitems.Service{
		Repo:   repo,
		Images: images,
		Clock:  application.SystemClock{},
		Log:    logger,
	}

	proc := queue.New(repo, analyzer, application.SystemClock{}, logger,
		queue.WithInterval(time.Duration(cfg.Queue.IntervalSeconds)*time.Second),
		queue.WithCallTimeout(time.Duration(cfg.Queue.CallTimeoutSeconds)*time.Second),
		queue.WithFaultLog(faultLog),
	)
	go proc.Run(ctx)

	health := map[string]middleware.HealthChecker{}
	if db != nil {
		health["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Items:              svc,
		Processor:          proc,
		FaultLog:           faultLog,
		Health:             health,
		Logger:             logger,
		APIKeys:            cfg.Auth.APIKeys,
		RateLimitCapacity:  cfg.RateLimit.Capacity,
		RateLimitRefillPer: cfg.RateLimit.RefillRate,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	cancel() // stops the queue processor

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
