package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SweepSchedule runs the stale-request sweep.
const SweepSchedule = "@every 5m"

// passTimeout bounds one scheduled monitor pass.
const passTimeout = 6 * time.Hour

// Sweeper fails research requests that stopped making progress.
type Sweeper interface {
	SweepStale(ctx context.Context) (int, error)
}

// Scheduler runs the monitor pass and the stale sweep on cron schedules, in UTC.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc
	log  zerolog.Logger
}

// NewScheduler registers the jobs. Start must be called to begin running them.
func NewScheduler(monitorSpec string, runner *Runner, sweeper Sweeper, log zerolog.Logger) (*Scheduler, error) {
	log = log.With().Str("component", "scheduler").Logger()
	ctx, stop := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{log: log}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: log})),
		),
		ctx:  ctx,
		stop: stop,
		log:  log,
	}

	if _, err := s.cron.AddFunc(monitorSpec, func() {
		ctx, cancel := context.WithTimeout(s.ctx, passTimeout)
		defer cancel()
		if _, err := runner.RunAll(ctx); err != nil {
			s.log.Error().Err(err).Msg("monitor pass failed")
		}
	}); err != nil {
		stop()
		return nil, fmt.Errorf("monitor schedule %q: %w", monitorSpec, err)
	}

	if _, err := s.cron.AddFunc(SweepSchedule, func() {
		if _, err := sweeper.SweepStale(s.ctx); err != nil {
			s.log.Error().Err(err).Msg("stale sweep failed")
		}
	}); err != nil {
		stop()
		return nil, fmt.Errorf("sweep schedule: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.stop()
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
