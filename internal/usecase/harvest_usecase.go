package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
	"github.com/user/stay-harvester/pkg/metrics"
)

var (
	// ErrSearchFailed aborts the whole run: a city whose search fails is
	// never partially harvested.
	ErrSearchFailed = errors.New("listing search failed")
	// ErrDetailFailed only skips the listing it belongs to.
	ErrDetailFailed = errors.New("listing detail fetch failed")
)

const (
	stageDetail    = "detail"
	stageReconcile = "reconcile"
)

// Pacer spaces out consecutive listings.
type Pacer interface {
	Wait(ctx context.Context) error
}

// HarvestOptions is the fixed input of every run.
type HarvestOptions struct {
	Cities             []entity.City
	CheckIn            time.Time
	CheckOut           time.Time
	Currency           string
	Language           string
	Filters            entity.SearchFilters
	MaxListingsPerCity int
	LockTTL            time.Duration
}

// Harvester runs one full pass over the configured cities.
type Harvester interface {
	Run(ctx context.Context) (*entity.RunSummary, error)
}

type harvestUseCase struct {
	fetcher    repository.ListingFetcher
	reconciler *Reconciler
	failed     repository.FailedListingRepository
	lock       repository.RunLock
	history    repository.RunHistoryRepository
	pacer      Pacer
	logger     *zap.Logger
	opts       HarvestOptions
	now        func() time.Time
}

// NewHarvestUseCase creates a new instance of the harvest use case.
func NewHarvestUseCase(
	fetcher repository.ListingFetcher,
	reconciler *Reconciler,
	failed repository.FailedListingRepository,
	lock repository.RunLock,
	history repository.RunHistoryRepository,
	pacer Pacer,
	logger *zap.Logger,
	opts HarvestOptions,
) Harvester {
	return &harvestUseCase{
		fetcher:    fetcher,
		reconciler: reconciler,
		failed:     failed,
		lock:       lock,
		history:    history,
		pacer:      pacer,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Run harvests every city in order, then every listing of a city in order.
// A failed listing is logged, put on the failed ledger and skipped. A failed
// search ends the run with ErrSearchFailed. The summary is returned and
// pushed to the run history in every case but a held lock.
func (uc *harvestUseCase) Run(ctx context.Context) (*entity.RunSummary, error) {
	token, err := uc.lock.Acquire(ctx, uc.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	// bookkeeping must survive a canceled run
	bgCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := uc.lock.Release(bgCtx, token); err != nil {
			uc.logger.Warn("Failed to release run lock", zap.String("run_id", token), zap.Error(err))
		}
	}()

	summary := entity.NewRunSummary(token, uc.now().UTC())
	uc.logger.Info("Harvest started",
		zap.String("run_id", token),
		zap.Int("cities", len(uc.opts.Cities)),
		zap.Int("max_listings_per_city", uc.opts.MaxListingsPerCity),
	)

	runErr := uc.harvest(ctx, summary)

	summary.FinishedAt = uc.now().UTC()
	switch {
	case runErr == nil:
		summary.Status = entity.RunCompleted
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		summary.Status = entity.RunCanceled
	default:
		summary.Status = entity.RunFailed
	}
	if runErr != nil {
		summary.FailureReason = runErr.Error()
	}
	metrics.RunsTotal.WithLabelValues(string(summary.Status)).Inc()
	metrics.LastRunTimestamp.Set(float64(summary.FinishedAt.Unix()))

	if err := uc.history.Push(bgCtx, summary); err != nil {
		uc.logger.Warn("Failed to save run summary", zap.String("run_id", token), zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("run_id", token),
		zap.String("status", string(summary.Status)),
		zap.Int("listings_seen", summary.ListingsSeen),
		zap.Int("listings_stored", summary.ListingsStored),
		zap.Int("listings_failed", summary.ListingsFailed),
		zap.Int("listings_skipped", summary.ListingsSkipped),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	}
	if runErr != nil {
		uc.logger.Error("Harvest aborted", append(fields, zap.Error(runErr))...)
	} else {
		uc.logger.Info("Harvest finished", fields...)
	}
	return summary, runErr
}

func (uc *harvestUseCase) harvest(ctx context.Context, summary *entity.RunSummary) error {
	for _, city := range uc.opts.Cities {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Cities = append(summary.Cities, city.Name)
		if err := uc.harvestCity(ctx, city, summary); err != nil {
			return err
		}
	}
	return nil
}

func (uc *harvestUseCase) harvestCity(ctx context.Context, city entity.City, summary *entity.RunSummary) error {
	logger := uc.logger.With(zap.String("city", city.Name))

	start := time.Now()
	found, err := uc.fetcher.SearchListings(ctx, entity.SearchParams{
		CheckIn:  uc.opts.CheckIn,
		CheckOut: uc.opts.CheckOut,
		Box:      city.Box,
		Filters:  uc.opts.Filters,
		Currency: uc.opts.Currency,
		Language: uc.opts.Language,
	})
	metrics.FetchDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues("search").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Error("Search failed", zap.Error(err))
		return fmt.Errorf("%w: city %s: %w", ErrSearchFailed, city.Name, err)
	}

	take := found
	if uc.opts.MaxListingsPerCity > 0 && len(take) > uc.opts.MaxListingsPerCity {
		take = take[:uc.opts.MaxListingsPerCity]
	}
	logger.Info("Search returned listings", zap.Int("found", len(found)), zap.Int("processing", len(take)))

	var stored, failed, skipped int
	for _, listing := range take {
		summary.ListingsSeen++
		if listing.ID == "" {
			logger.Warn("Search hit without listing id, skipping", zap.String("title", listing.Title))
			skipped++
			summary.ListingsSkipped++
			metrics.ListingsTotal.WithLabelValues(city.Name, "skipped").Inc()
			continue
		}

		outcome, stage, err := uc.harvestListing(ctx, city.Name, listing.ID)
		if outcome != nil {
			summary.Record(outcome)
		}
		switch {
		case err == nil:
			stored++
			summary.ListingsStored++
			metrics.ListingsTotal.WithLabelValues(city.Name, "stored").Inc()
			logger.Info("Listing stored", zap.String("listing_id", listing.ID), zap.Int("writes", outcome.Writes()))
			if err := uc.failed.Clear(ctx, listing.ID); err != nil {
				logger.Warn("Failed to clear failed listing entry", zap.String("listing_id", listing.ID), zap.Error(err))
			}
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			failed++
			summary.ListingsFailed++
			metrics.ListingsTotal.WithLabelValues(city.Name, "failed").Inc()
			logger.Error("Listing failed, skipping",
				zap.String("listing_id", listing.ID),
				zap.String("stage", stage),
				zap.Error(err),
			)
			uc.recordFailure(ctx, city.Name, listing.ID, stage, err)
		}

		if err := uc.pacer.Wait(ctx); err != nil {
			return err
		}
	}

	logger.Info("City done",
		zap.Int("stored", stored),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
	)
	return nil
}

// harvestListing fetches, maps and reconciles one listing. The returned
// outcome is non-nil once reconciling started, even when it failed midway.
func (uc *harvestUseCase) harvestListing(ctx context.Context, city, listingID string) (ListingOutcome, string, error) {
	start := time.Now()
	rec, err := uc.fetcher.GetListingDetails(ctx, listingID, entity.DetailParams{
		CheckIn:  uc.opts.CheckIn,
		CheckOut: uc.opts.CheckOut,
		Currency: uc.opts.Currency,
		Language: uc.opts.Language,
	})
	metrics.FetchDuration.WithLabelValues("detail").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues("detail").Inc()
		return nil, stageDetail, fmt.Errorf("%w: listing %s: %w", ErrDetailFailed, listingID, err)
	}

	outcome, err := uc.reconciler.ReconcileDetails(ctx, listingID, city, rec)
	switch {
	case errors.Is(err, ErrMalformedDetail):
		return nil, stageDetail, err
	case err != nil:
		return outcome, stageReconcile, err
	}
	return outcome, "", nil
}

func (uc *harvestUseCase) recordFailure(ctx context.Context, city, listingID, stage string, cause error) {
	entry := &entity.FailedListing{
		ListingID:            listingID,
		City:                 city,
		Stage:                stage,
		FailureReason:        cause.Error(),
		LastAttemptTimestamp: uc.now().UTC(),
	}
	if err := uc.failed.Record(ctx, entry); err != nil {
		// not critical, the run goes on
		uc.logger.Warn("Failed to record failed listing", zap.String("listing_id", listingID), zap.Error(err))
	}
}
