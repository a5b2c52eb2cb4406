package cron

import (
	"context"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bher20/shipratemanager/internal/logger"
	"github.com/bher20/shipratemanager/internal/metrics"
	"github.com/bher20/shipratemanager/internal/rates"
	"github.com/bher20/shipratemanager/internal/storage"
)

const (
	jobName         = "refresh_shipping_costs"
	lockKey   int64 = 42
	defaultEvery    = time.Hour
)

// Refresher runs one refresh cycle.
type Refresher interface {
	Refresh(ctx context.Context) (*rates.Result, error)
}

// FailureAlerter is told about failed runs.
type FailureAlerter interface {
	SendFailureAlert(ctx context.Context, job string, err error, dur time.Duration) error
}

// Worker refreshes the shipping costs on a schedule. When the storage backend
// implements storage.Locker, each run holds an advisory lock so that only one
// replica executes it.
type Worker struct {
	svc      Refresher
	locker   storage.Locker
	alerter  FailureAlerter
	schedule string
	tick     time.Duration
}

func NewWorker(svc Refresher, st storage.Storage, schedule string, alerter FailureAlerter) *Worker {
	w := &Worker{
		svc:      svc,
		alerter:  alerter,
		schedule: schedule,
		tick:     10 * time.Second,
	}
	if l, ok := st.(storage.Locker); ok {
		w.locker = l
	}
	return w
}

// NextRun computes the run after last. setting is either a positive number
// of seconds or a cron expression (standard five fields or a descriptor such
// as "@every 1h"). Anything else falls back to hourly.
func NextRun(setting string, last time.Time) time.Time {
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return last.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(last)
	}
	return last.Add(defaultEvery)
}

// Run executes immediately, then on every scheduled time until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	log := logger.Component("cron")
	log.Info().Str("schedule", w.schedule).Bool("locking", w.locker != nil).Msg("cron worker starting")

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	nextRun := time.Now()
	for {
		if !time.Now().Before(nextRun) {
			_ = w.RunOnce(ctx)
			nextRun = NextRun(w.schedule, time.Now())
			log.Debug().Time("next_run", nextRun).Msg("next run scheduled")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single locked refresh and records job metrics.
func (w *Worker) RunOnce(ctx context.Context) error {
	log := logger.Component("cron")
	started := time.Now()

	if w.locker != nil {
		ok, err := w.locker.AcquireAdvisoryLock(ctx, lockKey)
		if err != nil {
			log.Error().Err(err).Msg("acquire advisory lock failed")
			metrics.UpdateJobMetrics(jobName, started, err)
			return err
		}
		if !ok {
			log.Info().Msg("advisory lock held by another worker, skipping run")
			return nil
		}
		defer func() {
			if _, err := w.locker.ReleaseAdvisoryLock(ctx, lockKey); err != nil {
				log.Error().Err(err).Msg("release advisory lock failed")
			}
		}()
	}

	res, runErr := w.svc.Refresh(ctx)
	metrics.UpdateJobMetrics(jobName, started, runErr)
	dur := time.Since(started)

	if runErr != nil {
		log.Error().Err(runErr).Dur("duration", dur).Str("job", jobName).Msg("job completed with error")
		if w.alerter != nil {
			if err := w.alerter.SendFailureAlert(ctx, jobName, runErr, dur); err != nil {
				log.Warn().Err(err).Msg("failure alert not sent")
			}
		}
		return runErr
	}

	log.Info().Str("job", jobName).Str("outcome", string(res.Outcome)).Dur("duration", dur).Msg("job completed successfully")
	return nil
}
