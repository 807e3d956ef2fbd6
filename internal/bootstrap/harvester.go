package bootstrap

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/adapter/chromedp_fetcher"
	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/usecase"
	"github.com/user/stay-harvester/pkg/config"
	"github.com/user/stay-harvester/pkg/metrics"
	"github.com/user/stay-harvester/pkg/pacing"
)

// browserHarvester starts a fresh browser for every run and shuts it down
// afterwards, so a long-lived process holds no browser between runs.
type browserHarvester struct {
	cfg    *config.Config
	deps   *Deps
	opts   usecase.HarvestOptions
	logger *zap.Logger
}

// NewHarvester returns the harvest of cfg's cities against the stores in
// deps. Both the one-shot binary and background triggers run it.
func NewHarvester(cfg *config.Config, deps *Deps, logger *zap.Logger) (usecase.Harvester, error) {
	checkIn, checkOut, err := cfg.StayDates()
	if err != nil {
		return nil, err
	}
	return &browserHarvester{
		cfg:    cfg,
		deps:   deps,
		opts:   HarvestOptions(cfg, checkIn, checkOut),
		logger: logger,
	}, nil
}

// HarvestOptions maps configuration onto the fixed input of a run.
func HarvestOptions(cfg *config.Config, checkIn, checkOut time.Time) usecase.HarvestOptions {
	return usecase.HarvestOptions{
		Cities:   cfg.Cities,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Currency: cfg.Currency,
		Language: cfg.Language,
		Filters: entity.SearchFilters{
			PriceMin:  cfg.PriceMin,
			PriceMax:  cfg.PriceMax,
			PlaceType: cfg.PlaceType,
			Amenities: cfg.Amenities,
			Zoom:      cfg.Zoom,
		},
		MaxListingsPerCity: cfg.MaxListingsPerCity,
		LockTTL:            cfg.RunLockTTL,
	}
}

// NewPacer picks the pacing policy named by PACING_MODE.
func NewPacer(cfg *config.Config) usecase.Pacer {
	if cfg.PacingMode == config.PacingRate {
		return pacing.NewRateLimited(cfg.PacingRPS, cfg.PacingBurst)
	}
	return pacing.NewFixedDelay(cfg.PacingDelay)
}

func (h *browserHarvester) Run(ctx context.Context) (*entity.RunSummary, error) {
	fetcher, err := chromedp_fetcher.NewChromedpFetcher(chromedp_fetcher.Options{
		Headless:        h.cfg.BrowserHeadless,
		ProxyURL:        h.cfg.ProxyURL,
		PageLoadTimeout: h.cfg.PageLoadTimeout,
	}, h.logger.Named("fetcher"))
	if err != nil {
		h.logger.Error("failed to start browser", zap.Error(err))
		return nil, err
	}
	defer fetcher.Close()

	uc := usecase.NewHarvestUseCase(
		fetcher,
		usecase.NewReconciler(h.deps.Store, h.logger.Named("reconciler")),
		h.deps.Failed,
		h.deps.Lock,
		h.deps.History,
		NewPacer(h.cfg),
		h.logger,
		h.opts,
	)
	summary, err := uc.Run(ctx)

	if h.cfg.PushgatewayURL != "" {
		if perr := metrics.Push(h.cfg.PushgatewayURL, "stay_harvester"); perr != nil {
			h.logger.Warn("failed to push metrics", zap.Error(perr))
		}
	}
	return summary, err
}
