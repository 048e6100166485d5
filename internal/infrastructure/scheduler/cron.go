// Package scheduler runs periodic maintenance jobs on robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/catalog/backend/internal/infrastructure/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultJobTimeout bounds a single job run
const DefaultJobTimeout = 30 * time.Minute

// JobFunc is one unit of scheduled work
type JobFunc func(ctx context.Context) error

// CronScheduler runs named jobs on standard five-field cron schedules.
// A run that is still going when its next tick arrives is skipped.
type CronScheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	started bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// Option configures a CronScheduler
type Option func(*CronScheduler)

// WithJobTimeout overrides DefaultJobTimeout
func WithJobTimeout(d time.Duration) Option {
	return func(s *CronScheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewCronScheduler creates a stopped scheduler
func NewCronScheduler(log *zap.Logger, opts ...Option) *CronScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &CronScheduler{logger: log.Named("scheduler"), timeout: DefaultJobTimeout}
	s.cron = cron.New(cron.WithChain(s.chain()...), cron.WithLogger(cronLogger{s.logger}))
	for _, opt := range opts {
		opt(s)
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

func (s *CronScheduler) chain() []cron.JobWrapper {
	l := cronLogger{s.logger}
	return []cron.JobWrapper{cron.Recover(l), cron.SkipIfStillRunning(l)}
}

// ValidateSchedule reports whether spec is a valid five-field cron expression
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, spec, err)
	}
	return nil
}

// Add registers job under name. Jobs must be added before Start.
func (s *CronScheduler) Add(name, spec string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if err := ValidateSchedule(spec); err != nil {
		return err
	}
	_, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, spec, err)
	}
	s.logger.Info("Job scheduled", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// RunNow executes job once outside the schedule, with the same timeout and logging
func (s *CronScheduler) RunNow(name string, job JobFunc) {
	s.run(name, job)
}

func (s *CronScheduler) run(name string, job JobFunc) {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	defer cancel()

	log := s.logger.With(zap.String("job", name))
	ctx = logger.WithContext(ctx, log)

	start := time.Now()
	if err := job(ctx); err != nil {
		log.Error("Job failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return
	}
	log.Info("Job completed", zap.Duration("duration", time.Since(start)))
}

// Start begins running scheduled jobs in the background
func (s *CronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop cancels running jobs and waits for them until ctx is done
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextRuns returns the next activation of every scheduled job
func (s *CronScheduler) NextRuns() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
