// Package bootstrap opens the stores both binaries share, picked by
// configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/adapter/memory"
	"github.com/user/stay-harvester/internal/adapter/mongo"
	"github.com/user/stay-harvester/internal/adapter/postgres"
	redis_adapter "github.com/user/stay-harvester/internal/adapter/redis"
	"github.com/user/stay-harvester/internal/repository"
	"github.com/user/stay-harvester/pkg/config"
)

// Deps holds every long-lived store handle of a process.
type Deps struct {
	Store   repository.DocumentStore
	Failed  repository.FailedListingRepository
	Lock    repository.RunLock
	History repository.RunHistoryRepository
	// Checks are the pings of the health endpoint, by dependency name.
	Checks map[string]func(ctx context.Context) error

	closers []func(ctx context.Context) error
}

// Open connects the document store selected by STORE_DRIVER, then Redis
// when REDIS_ADDR is set. Without Redis the run lock and history are
// process-local. On error everything opened so far is closed again.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Deps, err error) {
	d := &Deps{Checks: make(map[string]func(ctx context.Context) error)}
	defer func() {
		if err != nil {
			_ = d.Close(context.WithoutCancel(ctx))
		}
	}()

	switch cfg.StoreDriver {
	case config.StoreMongo:
		store, err := mongo.NewDocumentStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		d.addStore(store)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		logger.Info("MongoDB connection established", zap.String("database", cfg.MongoDatabase))
	case config.StorePostgres:
		store, err := postgres.NewDocumentStore(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		d.addStore(store)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		d.Failed = postgres.NewFailedListingRepo(store.Pool())
		logger.Info("PostgreSQL connection pool established")
	case config.StoreMemory:
		d.addStore(memory.NewDocumentStore())
		logger.Warn("Using in-memory store, nothing survives the process")
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.RedisAddr == "" {
		d.Lock = memory.NewRunLock()
		d.History = memory.NewRunHistory(cfg.RunHistorySize)
		if d.Failed == nil {
			d.Failed = memory.NewFailedListings()
		}
		return d, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	d.closers = append(d.closers, func(context.Context) error { return rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	d.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	d.Lock = redis_adapter.NewRunLock(rdb)
	d.History = redis_adapter.NewRunHistory(rdb, cfg.RunHistorySize)
	if d.Failed == nil {
		d.Failed = redis_adapter.NewFailedListingRepo(rdb)
	}
	logger.Info("Redis connection established", zap.String("addr", cfg.RedisAddr))
	return d, nil
}

func (d *Deps) addStore(store repository.DocumentStore) {
	d.Store = store
	d.Checks["store"] = store.Ping
	d.closers = append(d.closers, store.Close)
}

// Close releases every handle in reverse opening order.
func (d *Deps) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
