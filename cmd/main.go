package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"foodtube/internal/config"
	"foodtube/internal/core/account"
	"foodtube/internal/core/inference"
	"foodtube/internal/core/job"
	"foodtube/internal/core/restaurant"
	"foodtube/internal/core/scan"
	"foodtube/internal/core/youtube"
	"foodtube/internal/health"
	"foodtube/internal/logger"
	"foodtube/internal/platform/database"
	"foodtube/internal/platform/eino"
	rds "foodtube/internal/platform/redis"
	tasks "foodtube/internal/platform/tasks"
	"foodtube/internal/server"
	"foodtube/internal/worker"
)

func main() {
	logr := logger.New("main")

	cfg, err := config.Load()
	if err != nil {
		logr.LogFatal("invalid configuration", err)
	}
	logr.LogInfof("foodtube starting at %s (env=%s)", cfg.HTTPAddr, cfg.AppEnv)

	ctx := context.Background()

	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logr.LogFatal("redis", err)
	}
	defer redisSvc.Close()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logr.LogFatal("database", err)
	}
	defer db.Close()

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	defer taskClient.Close()
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{tasks.QueueScans: 1},
	})

	einoSvc, err := eino.NewService(ctx, eino.Config{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.DefaultLLMModel,
	})
	if err != nil {
		logr.LogFatal("failed to initialize Eino service", err)
	}
	logr.LogInfof("llm provider=%s model=%s", cfg.LLMProvider, einoSvc.Model())

	// Core services
	jobSvc := job.NewService(redisSvc, job.Options{LockTTL: cfg.ScanLockTTL, Retention: cfg.JobRetention})
	accountSvc := account.NewService(db, account.Options{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
	})
	restaurantStore := restaurant.NewStore(db)
	ytClient := youtube.NewClient(cfg.YouTubeAPIBase, nil)
	inferenceClient := inference.NewClient(einoSvc, inference.DefaultOptions())

	scanSvc := scan.NewService(scan.Deps{
		Videos:      ytClient,
		Inference:   inferenceClient,
		Jobs:        jobSvc,
		Restaurants: restaurantStore,
		Tokens:      accountSvc,
		Tasks:       taskClient,
	}, scan.Options{
		VideoLimit:         cfg.FreeVideoLimit,
		CommentConcurrency: cfg.CommentConcurrency,
		CommentRate:        float64(cfg.CommentRatePerSec),
		ScanTimeout:        cfg.ScanTimeout,
	})

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(tasks.TaskTypeScan, scanSvc.HandleScanTask)

	go func() {
		if err := asynqServer.Run(mux.Mux()); err != nil {
			logr.LogErrorf("worker stopped: %v", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "FoodTube",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	healthHandler := server.RegisterRoutes(app, server.Dependencies{
		Scan:        scan.NewHandler(scanSvc, jobSvc),
		Restaurants: restaurant.NewHandler(restaurantStore),
		Playlists:   youtube.NewHandler(ytClient, accountSvc),
		Health: map[string]health.Checker{
			"redis":    redisSvc,
			"database": db,
		},
		RateLimit: cfg.RateLimitPerMinute,
	})
	healthHandler.SetReady()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		stats := einoSvc.Stats()
		logr.LogInfof("llm calls=%d errors=%d tokens=%d", stats.Calls, stats.Errors, stats.Tokens)
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		logr.LogFatal("server listen", err)
	}
}
