package usecase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/repository"
	"github.com/user/stay-harvester/pkg/metrics"
)

// ErrRunInProgress is returned when this process is already running a harvest.
var ErrRunInProgress = errors.New("a harvest run is already in progress")

// Trigger sources.
const (
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
)

// HarvestTrigger starts harvest runs in the background, one at a time per
// process. Runs of other processes are kept out by the run lock inside Run.
type HarvestTrigger struct {
	ctx       context.Context
	harvester Harvester
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewHarvestTrigger creates a trigger whose runs stop when ctx is done.
func NewHarvestTrigger(ctx context.Context, harvester Harvester, logger *zap.Logger) *HarvestTrigger {
	return &HarvestTrigger{
		ctx:       ctx,
		harvester: harvester,
		logger:    logger,
	}
}

// Start launches a run and returns without waiting for it. It fails with
// ErrRunInProgress while a previous run is still going, and with the
// context error once the trigger is shutting down.
func (t *HarvestTrigger) Start(source string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ctx.Err(); err != nil {
		metrics.HarvestTriggersTotal.WithLabelValues(source, "rejected").Inc()
		return err
	}
	if t.running {
		metrics.HarvestTriggersTotal.WithLabelValues(source, "rejected").Inc()
		return ErrRunInProgress
	}
	t.running = true
	t.wg.Add(1)
	metrics.HarvestTriggersTotal.WithLabelValues(source, "started").Inc()
	go t.run(source)
	return nil
}

func (t *HarvestTrigger) run(source string) {
	defer t.wg.Done()
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	logger := t.logger.With(zap.String("source", source))
	logger.Info("Background harvest started")
	summary, err := t.harvester.Run(t.ctx)
	switch {
	case errors.Is(err, repository.ErrLockHeld):
		logger.Warn("Background harvest skipped, another process holds the run lock")
	case err != nil:
		// Run has already logged the details
		logger.Error("Background harvest failed", zap.Error(err))
	default:
		logger.Info("Background harvest done", zap.String("run_id", summary.RunID))
	}
}

// Running reports whether a run started by this trigger is in progress.
func (t *HarvestTrigger) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Wait blocks until every started run has returned.
func (t *HarvestTrigger) Wait() {
	t.wg.Wait()
}
