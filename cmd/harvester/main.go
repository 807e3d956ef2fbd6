package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/bootstrap"
	"github.com/user/stay-harvester/internal/scheduler"
	"github.com/user/stay-harvester/internal/usecase"
	"github.com/user/stay-harvester/pkg/config"
	"github.com/user/stay-harvester/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Storage Layer
	deps, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open stores", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}

	runErr := run(ctx, cfg, deps, log)

	if err := deps.Close(context.Background()); err != nil {
		log.Warn("failed to close stores", zap.Error(err))
	}
	if runErr != nil {
		_ = log.Sync()
		stop()
		os.Exit(1)
	}
}

// run harvests once, or on every HARVEST_SCHEDULE activation until the
// process is signalled.
func run(ctx context.Context, cfg *config.Config, deps *bootstrap.Deps, log *zap.Logger) error {
	harvester, err := bootstrap.NewHarvester(cfg, deps, log)
	if err != nil {
		return err
	}
	if cfg.HarvestSchedule == "" {
		_, err = harvester.Run(ctx)
		return err
	}

	trigger := usecase.NewHarvestTrigger(ctx, harvester, log)
	sched, err := scheduler.New(cfg.HarvestSchedule, trigger, log.Named("scheduler"))
	if err != nil {
		log.Error("failed to build scheduler", zap.Error(err))
		return err
	}
	sched.Start()
	<-ctx.Done()

	log.Info("Shutting down harvester")
	sched.Stop()
	trigger.Wait()
	return nil
}
