// Package job runs scheduled maintenance work.
package job

import (
	"context"
	"time"

	"socialvibe/backend/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reconcileTimeout = 2 * time.Minute

// ReconcileJob repairs activity counters that drifted from the participant rows.
type ReconcileJob struct {
	activities service.ActivityService
	logger     *zap.Logger
}

func NewReconcileJob(activities service.ActivityService, logger *zap.Logger) *ReconcileJob {
	return &ReconcileJob{activities: activities, logger: logger}
}

// Run implements cron.Job.
func (j *ReconcileJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	start := time.Now()
	fixed, err := j.activities.Reconcile(ctx)
	if err != nil {
		j.logger.Error("Activity reconciliation failed", zap.Error(err))
		return
	}
	if fixed > 0 {
		j.logger.Warn("Activity counters repaired",
			zap.Int("activities", fixed),
			zap.Duration("duration", time.Since(start)),
		)
		return
	}
	j.logger.Debug("Activity counters consistent", zap.Duration("duration", time.Since(start)))
}

// Scheduler owns the cron runner for background jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
		logger: logger,
	}
}

// Add registers job under spec. An empty spec leaves the job disabled.
func (s *Scheduler) Add(name, spec string, job cron.Job) error {
	if spec == "" {
		s.logger.Info("Job disabled", zap.String("job", name))
		return nil
	}
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return err
	}
	s.logger.Info("Job scheduled", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
