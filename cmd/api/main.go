package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/bootstrap"
	"github.com/user/stay-harvester/internal/delivery/http/handler"
	"github.com/user/stay-harvester/internal/delivery/http/router"
	"github.com/user/stay-harvester/internal/usecase"
	"github.com/user/stay-harvester/pkg/config"
	"github.com/user/stay-harvester/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Logger initialized", zap.String("level", cfg.LogLevel))

	// --- Stores ---
	ctx := context.Background()
	deps, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Unable to open stores", zap.Error(err))
	}
	defer deps.Close(context.Background())

	// --- Use Cases ---
	listingQuery := usecase.NewListingQuery(deps.Store, deps.Failed, deps.History, log)
	harvester, err := bootstrap.NewHarvester(cfg, deps, log)
	if err != nil {
		log.Fatal("Unable to build harvester", zap.Error(err))
	}
	runCtx, cancelRuns := context.WithCancel(ctx)
	trigger := usecase.NewHarvestTrigger(runCtx, harvester, log)

	// --- HTTP Server ---
	checks := make(map[string]handler.Pinger, len(deps.Checks))
	for name, check := range deps.Checks {
		checks[name] = handler.PingFunc(check)
	}
	apiHandler := handler.NewHandler(listingQuery, trigger, checks, log)
	httpRouter := router.New(apiHandler, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// a harvest started through the API must stop before the stores close
	cancelRuns()
	trigger.Wait()
}
