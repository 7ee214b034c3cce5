package cleanup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type sweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration) (SweepReport, error)
}

// Status is a snapshot of the scheduler for operators.
type Status struct {
	Running         bool         `json:"scheduler_running"`
	Enabled         bool         `json:"cron_enabled"`
	CleanupMinutes  int          `json:"cleanup_minutes"`
	IntervalMinutes int          `json:"interval_minutes"`
	NextRun         *time.Time   `json:"next_run_time"`
	LastRun         *time.Time   `json:"last_run_time"`
	LastReport      *SweepReport `json:"last_report,omitempty"`
	LastError       string       `json:"last_error,omitempty"`
}

// Scheduler runs the sweeper at wall-clock multiples of its interval
// (xx:00, xx:05, ... for five minutes) until stopped.
type Scheduler struct {
	sweeper  sweeper
	interval time.Duration
	maxAge   time.Duration
	enabled  bool
	logger   *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	// runMu serializes scheduled and triggered sweeps.
	runMu sync.Mutex

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	nextRun    time.Time
	lastRun    time.Time
	lastReport *SweepReport
	lastErr    error
}

func NewScheduler(sweeper sweeper, interval, maxAge time.Duration, enabled bool, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		maxAge:   maxAge,
		enabled:  enabled,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
	}
}

// Enabled reports whether the scheduler should be started at boot.
func (s *Scheduler) Enabled() bool {
	return s.enabled
}

// Start launches the schedule loop. It returns false if the loop is
// already running.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)

	s.logger.Info("Cleanup scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("max_age", s.maxAge))
	return true
}

// Stop ends the schedule loop and waits for a sweep in progress to finish.
// It returns false if the loop was not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done

	s.mu.Lock()
	s.nextRun = time.Time{}
	s.mu.Unlock()
	s.logger.Info("Cleanup scheduler stopped")
	return true
}

// Trigger runs a sweep now, outside the schedule.
func (s *Scheduler) Trigger(ctx context.Context) (SweepReport, error) {
	s.logger.Info("Manual cleanup triggered")
	return s.run(ctx)
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:         s.cancel != nil,
		Enabled:         s.enabled,
		CleanupMinutes:  int(s.maxAge / time.Minute),
		IntervalMinutes: int(s.interval / time.Minute),
		LastReport:      s.lastReport,
	}
	if !s.nextRun.IsZero() {
		next := s.nextRun
		st.NextRun = &next
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		st.LastRun = &last
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	// A sweep that has started is allowed to finish after Stop.
	runCtx := context.WithoutCancel(ctx)

	for {
		now := s.now()
		next := nextAligned(now, s.interval)
		s.mu.Lock()
		s.nextRun = next
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-s.after(next.Sub(now)):
			if _, err := s.run(runCtx); err != nil {
				s.logger.Error("Scheduled cleanup failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) run(ctx context.Context) (SweepReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	started := s.now()
	report, err := s.sweeper.Sweep(ctx, s.maxAge)

	s.mu.Lock()
	s.lastRun = started
	s.lastErr = err
	if err == nil {
		s.lastReport = &report
	}
	s.mu.Unlock()
	return report, err
}

// nextAligned returns the first multiple of interval strictly after now.
func nextAligned(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}
