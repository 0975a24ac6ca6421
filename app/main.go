package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/newsroom/app/api"
	"github.com/lysyi3m/newsroom/app/auth"
	"github.com/lysyi3m/newsroom/app/cfg"
	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/generation"
	"github.com/lysyi3m/newsroom/app/jobs"
	"github.com/lysyi3m/newsroom/app/llm"
	"github.com/lysyi3m/newsroom/app/newsroom"
	"github.com/lysyi3m/newsroom/app/social"
	"github.com/lysyi3m/newsroom/app/tasks"
)

const storeReadyAttempts = 10

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogging(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Newsroom stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Newsroom", "version", appCfg.Version, "store", appCfg.Store)

	ctx := context.Background()

	store, err := openStore(ctx, appCfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if appCfg.SeedFile != "" {
		seed, err := newsroom.LoadSeed(appCfg.SeedFile)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, store, time.Now()); err != nil {
			return err
		}
		slog.Info("Seed applied", "file", appCfg.SeedFile, "reporters", len(seed.Reporters))
	}

	if appCfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY not set, generation will use fallback content")
	}
	completer := llm.NewClient(llm.Config{
		BaseURL:           appCfg.OpenAIBaseURL,
		APIKey:            appCfg.OpenAIAPIKey,
		Model:             appCfg.OpenAIModel,
		Timeout:           appCfg.OpenAITimeout,
		RequestsPerMinute: appCfg.OpenAIRequestsPerMinute,
		UserAgent:         appCfg.UserAgent,
	})

	deps := newsroom.Deps{
		Store:     store,
		Generator: generation.NewClient(completer),
		Messages:  social.NewClient(appCfg.SocialFeedURL, appCfg.UserAgent, appCfg.SocialFeedTimeout),
	}
	articles := newsroom.NewArticleGenerator(deps, appCfg.ReporterConcurrency)
	editions := newsroom.NewEditionAssembler(deps)
	orchestrator := jobs.NewOrchestrator(store, articles, editions, nil).
		WithLimits(appCfg.JobTimeout, appCfg.JobLease)

	var scheduler tasks.TaskSchedulerInterface
	if appCfg.SchedulerInterval > 0 {
		slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
		scheduler = tasks.NewScheduler(orchestrator, jobs.Names,
			time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		slog.Info("Background scheduler disabled, jobs run via /cron endpoints only")
	}

	handler := api.NewHandler(store, articles, editions, orchestrator,
		newsroom.NewFeedGenerator(appCfg.BaseUrl, appCfg.Version),
		auth.NewIssuer(appCfg.JWTSecret, appCfg.JWTTTL), scheduler, appCfg.Version)
	server := api.NewServer(handler, appCfg.CronSecret)

	// Generation requests can take minutes; the write timeout covers the
	// longest manual trigger.
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return runErr
}

func openStore(ctx context.Context, appCfg *cfg.Cfg) (database.Store, error) {
	var (
		store database.Store
		err   error
	)

	switch appCfg.Store {
	case cfg.StoreSQLite:
		slog.Info("Opening SQLite store", "path", appCfg.SQLitePath)
		store, err = database.NewSQLStore(appCfg.SQLitePath)
	default:
		slog.Info("Connecting to Redis")
		store, err = database.NewRedisStore(appCfg.RedisURL)
	}
	if err != nil {
		return nil, err
	}

	readyCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := database.WaitReady(readyCtx, store, storeReadyAttempts); err != nil {
		store.Close()
		return nil, err
	}

	slog.Info("Store ready", "store", appCfg.Store)
	return store, nil
}
