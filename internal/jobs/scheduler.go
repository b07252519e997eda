package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/iptvproxy/internal/log"
)

// Scheduler runs a job on a cron schedule. Runs never overlap.
type Scheduler struct {
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewScheduler parses spec (five fields or a descriptor such as "@every 6h")
// and schedules job. The job context is cancelled by Stop.
func NewScheduler(spec string, job func(ctx context.Context) error) (*Scheduler, error) {
	logger := xglog.WithComponent("scheduler")
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "schedule.job_failed").Msg("scheduled job failed")
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, cancel: cancel}, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels a running job and waits for it to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
