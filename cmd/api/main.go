package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/devlinkgh/backend/internal/auth"
	"github.com/devlinkgh/backend/internal/config"
	"github.com/devlinkgh/backend/internal/escrow"
	"github.com/devlinkgh/backend/internal/gateway"
	"github.com/devlinkgh/backend/internal/ledger"
	"github.com/devlinkgh/backend/internal/models"
	"github.com/devlinkgh/backend/internal/reconcile"
	"github.com/devlinkgh/backend/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DB.URL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories and ledger store
	userRepo := repository.NewUserRepo(pool)
	projectRepo := repository.NewProjectRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	store := ledger.NewPG(pool)

	// Payment gateway adapter
	gw := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.Gateway.BaseURL,
		Secret:      cfg.Gateway.Secret,
		CallbackURL: cfg.Gateway.CallbackURL,
		Currency:    cfg.Gateway.Currency,
		Timeout:     cfg.Gateway.Timeout,
	})

	// Job queue; the river client is wired in after workers exist.
	queue := reconcile.NewQueue()

	// Escrow transfer engine
	engine := escrow.NewEngine(store, userRepo, projectRepo, taskRepo, gw, logger)
	engine.Escalator = queue
	engine.ResolveByEmail = cfg.DepositResolveByEmail
	engine.Hook = func(ctx context.Context, task *models.Task) error {
		if task.Status != models.TaskStatusQAReady {
			return nil
		}
		return taskRepo.UpdateStatus(ctx, task.ID, models.TaskStatusCompleted)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, reconcile.NewDepositWorker(engine, logger))
	river.AddWorker(workers, reconcile.NewRepairWorker(engine, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	queue.SetClient(riverClient)

	// Auth
	authSvc := auth.NewService(userRepo, cfg.Auth.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	mux := http.NewServeMux()
	if err := registerRoutes(mux, routeDeps{
		AuthSvc:     authSvc,
		AuthHandler: authHandler,
		Engine:      engine,
		Gateway:     gw,
		Store:       store,
		Users:       userRepo,
		Projects:    projectRepo,
		Tasks:       taskRepo,
		Queue:       queue,
		Logger:      logger,
	}); err != nil {
		slog.Error("Failed to register routes", "error", err)
		os.Exit(1)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.App.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (processes jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.App.Port)
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
