// Package scheduler starts harvests on a cron schedule.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/usecase"
)

// Starter launches a background harvest. *usecase.HarvestTrigger is one.
type Starter interface {
	Start(source string) error
}

// Scheduler fires a Starter on a standard five-field cron expression.
// Descriptors such as @daily and a CRON_TZ= prefix are accepted too.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	expr     string
	logger   *zap.Logger
}

func New(expr string, starter Starter, logger *zap.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid harvest schedule %q: %w", expr, err)
	}

	c := cron.New(cron.WithLogger(cronLogger{logger.Sugar()}))
	c.Schedule(schedule, cron.FuncJob(func() {
		if err := starter.Start(usecase.TriggerSchedule); err != nil {
			logger.Warn("Scheduled harvest not started", zap.Error(err))
		}
	}))
	return &Scheduler{cron: c, schedule: schedule, expr: expr, logger: logger}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Harvest scheduler started",
		zap.String("schedule", s.expr),
		zap.Time("next_run", s.Next(time.Now())),
	)
}

// Stop halts the schedule and waits for a firing in progress to return.
// Runs it already started keep going; their owner waits for them.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Harvest scheduler stopped")
}

// cronLogger routes the cron library's logs into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
