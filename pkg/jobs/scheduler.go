package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a periodic maintenance function.
type Task func(ctx context.Context) error

// Scheduler runs named tasks on cron specs. Overlapping runs of the same task are skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler builds a scheduler in the given location. Each run is bounded by timeout.
func NewScheduler(loc *time.Location, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a task under spec, e.g. "@every 15m" or "0 * * * *".
func (s *Scheduler) Register(name, spec string, task Task) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, task)
	})
	if err != nil {
		return err
	}
	s.logger.Info("scheduled task registered", zap.String("task", name), zap.String("spec", spec))
	return nil
}

// Start begins executing registered tasks.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running tasks.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	start := time.Now()
	if err := task(ctx); err != nil {
		s.logger.Error("scheduled task failed", zap.String("task", name), zap.Error(err))
		return
	}
	s.logger.Debug("scheduled task finished", zap.String("task", name), zap.Duration("elapsed", time.Since(start)))
}
