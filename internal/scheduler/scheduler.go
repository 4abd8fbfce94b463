package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"github.com/robfig/cron/v3"

	"github.com/Leganyst/fitness-booking/internal/clock"
	"github.com/Leganyst/fitness-booking/internal/config"
	"github.com/Leganyst/fitness-booking/internal/service/serverrors"
)

// Jobs: периодические задачи пересчёта состояния занятий.
type Jobs interface {
	CompleteExpiredClasses(ctx context.Context, now time.Time) (int, error)
	ReconcileNoShows(ctx context.Context, now time.Time) (int, error)
}

// Scheduler запускает задачи по cron-расписанию. Одна и та же задача
// не перекрывается сама с собой; упавший из-за конфликта блокировок
// запуск повторяется несколько раз, остальное ждёт следующего тика.
type Scheduler struct {
	cron    *cron.Cron
	jobs    Jobs
	clock   clock.Clock
	cfg     config.Scheduler
	log     *slog.Logger
	baseCtx context.Context
	cancel  context.CancelFunc
}

func New(cfg config.Scheduler, jobs Jobs, clk clock.Clock, loc *time.Location, log *slog.Logger) (*Scheduler, error) {
	log = log.With(slog.String("component", "scheduler"))
	if loc == nil {
		loc = time.UTC
	}

	cronLog := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelWarn))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(
			cron.Recover(cronLog),
			cron.SkipIfStillRunning(cronLog),
		),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    c,
		jobs:    jobs,
		clock:   clk,
		cfg:     cfg,
		log:     log,
		baseCtx: ctx,
		cancel:  cancel,
	}

	if _, err := c.AddFunc(cfg.CompletionSpec, func() { s.RunCompletion(s.baseCtx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule completion job %q: %w", cfg.CompletionSpec, err)
	}
	if _, err := c.AddFunc(cfg.NoShowSpec, func() { s.RunNoShows(s.baseCtx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule no-show job %q: %w", cfg.NoShowSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.log.Info("scheduler started",
		slog.String("completion_spec", s.cfg.CompletionSpec),
		slog.String("no_show_spec", s.cfg.NoShowSpec),
	)
	s.cron.Start()
}

// Stop перестаёт планировать запуски и ждёт уже идущие, но не дольше ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.cancel()
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Scheduler) RunCompletion(ctx context.Context) {
	s.run(ctx, "complete_expired_classes", s.jobs.CompleteExpiredClasses)
}

func (s *Scheduler) RunNoShows(ctx context.Context) {
	s.run(ctx, "reconcile_no_shows", s.jobs.ReconcileNoShows)
}

func (s *Scheduler) run(ctx context.Context, name string, job func(context.Context, time.Time) (int, error)) {
	log := s.log.With(slog.String("job", name))

	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	var processed int
	err := retry.Do(
		func() error {
			n, err := job(ctx, s.clock.Now())
			processed = n
			return err
		},
		retry.Context(ctx),
		retry.Attempts(max(s.cfg.Retry.Attempts, 1)),
		retry.Delay(s.cfg.Retry.Delay),
		retry.MaxDelay(s.cfg.Retry.MaxDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, serverrors.ErrTransient)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("job attempt failed, retrying", slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
		}),
	)
	if err != nil {
		log.Error("job failed", slog.Any("error", err))
		return
	}
	log.Debug("job finished", slog.Int("processed", processed))
}
