// Package scheduler runs periodic maintenance jobs (state retention sweeps,
// journal pruning) on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is a scheduled job. The context is canceled when the scheduler
// stops.
type JobFunc func(ctx context.Context) error

// JobID identifies a registered cron job.
type JobID = cron.EntryID

// JobOptions tune a single job.
type JobOptions struct {
	// Name is used in logs.
	Name string
	// Timeout bounds a single run (0 = no limit).
	Timeout time.Duration
	// SkipIfRunning drops a tick when the previous run has not finished.
	SkipIfRunning bool
}

// Scheduler wraps robfig/cron with slog integration and overlap control.
type Scheduler struct {
	cron     *cron.Cron
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	startOne sync.Once
	stopOne  sync.Once
}

// New creates a stopped scheduler. Cron specs use the six-field form with
// seconds.
func New(parent context.Context, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger{log: log.With("component", "cron")}),
		),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers a job under the given cron spec.
func (s *Scheduler) AddJob(spec string, job JobFunc, opts JobOptions) (JobID, error) {
	if opts.Name == "" {
		opts.Name = "job"
	}
	var running sync.Mutex

	id, err := s.cron.AddFunc(spec, func() {
		if opts.SkipIfRunning {
			if !running.TryLock() {
				s.log.Debug("skipping overlapping run", "job", opts.Name)
				return
			}
			defer running.Unlock()
		}
		s.runJob(job, opts)
	})
	if err != nil {
		return 0, fmt.Errorf("scheduler: add %q: %w", opts.Name, err)
	}
	return id, nil
}

func (s *Scheduler) runJob(job JobFunc, opts JobOptions) {
	s.wg.Add(1)
	defer s.wg.Done()

	ctx := s.ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job(ctx)
	elapsed := time.Since(start)
	if err != nil {
		s.log.Error("job failed", "job", opts.Name, "elapsed", elapsed, "err", err)
		return
	}
	s.log.Debug("job finished", "job", opts.Name, "elapsed", elapsed)
}

// Start begins running registered jobs. Safe to call once.
func (s *Scheduler) Start() {
	s.startOne.Do(s.cron.Start)
}

// Stop cancels the job context, stops the cron loop and waits for running
// jobs to finish.
func (s *Scheduler) Stop() {
	s.stopOne.Do(func() {
		s.cancel()
		<-s.cron.Stop().Done()
		s.wg.Wait()
	})
}

// cronLogger adapts the cron logger interface to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	all := append([]slog.Attr{slog.Any("error", err)}, attrs(keysAndValues)...)
	l.log.LogAttrs(context.Background(), slog.LevelError, msg, all...)
}

func attrs(keysAndValues []interface{}) []slog.Attr {
	out := make([]slog.Attr, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		out = append(out, slog.Any(key, keysAndValues[i+1]))
	}
	return out
}
