package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Autilos/r107-garage-hub/app/api"
	"github.com/Autilos/r107-garage-hub/app/auth"
	"github.com/Autilos/r107-garage-hub/app/cfg"
	"github.com/Autilos/r107-garage-hub/app/classify"
	"github.com/Autilos/r107-garage-hub/app/database"
	"github.com/Autilos/r107-garage-hub/app/feed"
	"github.com/Autilos/r107-garage-hub/app/ingest"
	"github.com/Autilos/r107-garage-hub/app/sources"
	"github.com/Autilos/r107-garage-hub/app/tasks"
)

func main() {
	// Local development convenience, ignored when no .env file exists
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was requested
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting R107 Garage Hub", "version", cfg.GetVersion())

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	listingRepo := database.NewListingRepository(db)
	roleRepo := database.NewRoleRepository(db)

	seedLoader := sources.NewLoader(appCfg.SourcesFile, sourceRepo)
	if registered := seedLoader.Register(); registered > 0 {
		slog.Info("Seed sources registered", "count", registered)
	}

	httpClient := &http.Client{}

	parser := feed.NewParser()
	contentExtractor := feed.NewContentExtractor()

	llmClient := classify.NewOpenAIClient(classify.OpenAIConfig{
		BaseURL: appCfg.OpenAIBaseURL,
		APIKey:  appCfg.OpenAIAPIKey,
		Model:   appCfg.OpenAIModel,
		Timeout: time.Duration(appCfg.LLMTimeout) * time.Second,
	}, httpClient)
	classifier := classify.NewClassifier(llmClient)

	identity := auth.NewHTTPIdentityClient(appCfg.AuthURL, appCfg.AuthAnonKey, httpClient)
	authorizer := auth.NewAuthorizer(appCfg.CronSecret, identity, roleRepo)

	pipeline := ingest.NewPipeline(sourceRepo, listingRepo, parser, classifier, httpClient)
	reclassifier := ingest.NewReclassifier(listingRepo, classifier)

	var scheduler tasks.TaskSchedulerInterface
	if appCfg.SchedulerInterval > 0 {
		slog.Info("Starting background scheduler",
			"interval", appCfg.SchedulerInterval, "workers", appCfg.WorkerCount)
		scheduler = tasks.NewScheduler(pipeline, reclassifier, listingRepo, httpClient, contentExtractor)
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		slog.Info("Background scheduler disabled, ingestion runs on demand only")
	}

	handler := api.NewHandler(authorizer, identity, pipeline, reclassifier, sourceRepo, listingRepo)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
