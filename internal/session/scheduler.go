package session

import (
	"context"
	"sync"
	"time"

	"github.com/pawkeeper/mobilesession/internal/lifecycle"
	"github.com/pawkeeper/mobilesession/internal/logging"
)

// Default scheduler timing. Config may override each value.
const (
	DefaultRefreshBuffer      = 2 * time.Minute
	DefaultRefreshInterval    = 6 * time.Hour
	DefaultMaxRefreshDelay    = 12 * time.Hour
	DefaultForegroundThrottle = 1 * time.Minute
)

// SchedulerTiming bundles the scheduler's clamp and throttle parameters.
type SchedulerTiming struct {
	RefreshBuffer      time.Duration
	RefreshInterval    time.Duration
	MaxRefreshDelay    time.Duration
	ForegroundThrottle time.Duration
}

func (t *SchedulerTiming) applyDefaults() {
	if t.RefreshBuffer <= 0 {
		t.RefreshBuffer = DefaultRefreshBuffer
	}
	if t.RefreshInterval <= 0 {
		t.RefreshInterval = DefaultRefreshInterval
	}
	if t.MaxRefreshDelay <= 0 {
		t.MaxRefreshDelay = DefaultMaxRefreshDelay
	}
	if t.ForegroundThrottle <= 0 {
		t.ForegroundThrottle = DefaultForegroundThrottle
	}
}

// Scheduler arms a single one-shot timer for the next proactive refresh and
// triggers throttled refreshes when the app returns to foreground. Stop is
// idempotent; a torn-down scheduler never fires.
type Scheduler struct {
	timing   SchedulerTiming
	notifier lifecycle.Notifier
	clock    func() time.Time
	log      logging.Logger

	mu          sync.Mutex
	timer       *time.Timer
	lastRefresh time.Time
	stopFg      chan struct{}
	fgRunning   bool
}

// NewScheduler creates a Scheduler. notifier may be nil when the host has
// no lifecycle signal (sessionctl); foreground refreshes are then disabled.
func NewScheduler(timing SchedulerTiming, notifier lifecycle.Notifier, clock func() time.Time, log logging.Logger) *Scheduler {
	timing.applyDefaults()
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		timing:   timing,
		notifier: notifier,
		clock:    clock,
		log:      log,
	}
}

// delayUntilRefresh clamps the buffer-adjusted delay into
// [RefreshBuffer, MaxRefreshDelay]. Unknown expiry gets the fixed default
// interval. The clamp keeps clock skew and already-expired tokens from
// refresh-storming or never refreshing.
func (s *Scheduler) delayUntilRefresh(expiresAt int64) time.Duration {
	if expiresAt == 0 {
		return s.timing.RefreshInterval
	}

	delay := time.UnixMilli(expiresAt).Sub(s.clock()) - s.timing.RefreshBuffer
	if delay < s.timing.RefreshBuffer {
		return s.timing.RefreshBuffer
	}
	if delay > s.timing.MaxRefreshDelay {
		return s.timing.MaxRefreshDelay
	}
	return delay
}

// ScheduleRefresh replaces any armed timer with a new one-shot firing when
// the token set should be proactively refreshed. Firing stamps the
// last-refresh timestamp before invoking onDue.
func (s *Scheduler) ScheduleRefresh(expiresAt int64, onDue func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}

	delay := s.delayUntilRefresh(expiresAt)
	s.timer = time.AfterFunc(delay, func() {
		s.MarkRefreshed()
		onDue()
	})
	s.log.Debug(context.Background(), "refresh timer armed", "delay", delay.String())
}

// RegisterForegroundRefresh subscribes to app-foreground transitions and
// invokes onDue at most once per throttle interval. Registering twice is a
// no-op; foreground transitions can fire in bursts (permission dialogs), so
// the throttle is mandatory.
func (s *Scheduler) RegisterForegroundRefresh(onDue func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fgRunning || s.notifier == nil {
		return
	}
	s.fgRunning = true
	s.stopFg = make(chan struct{})

	go s.watchForeground(s.stopFg, onDue)
}

func (s *Scheduler) watchForeground(stop <-chan struct{}, onDue func()) {
	for {
		select {
		case e, ok := <-s.notifier.Events():
			if !ok {
				return
			}
			if e != lifecycle.Foreground {
				continue
			}
			if s.shouldRefreshOnForeground() {
				onDue()
			}
		case <-stop:
			return
		}
	}
}

// shouldRefreshOnForeground applies the throttle and, when it passes,
// stamps the timestamp in the same lock hold so a burst of transitions
// yields one refresh.
func (s *Scheduler) shouldRefreshOnForeground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if now.Sub(s.lastRefresh) <= s.timing.ForegroundThrottle {
		return false
	}
	s.lastRefresh = now
	return true
}

// MarkRefreshed stamps the last-refresh timestamp. The orchestrator calls
// it whenever a refresh outcome was applied so the foreground throttle
// counts from real refreshes, not only timer fires.
func (s *Scheduler) MarkRefreshed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRefresh = s.clock()
}

// Teardown stops the timer and the foreground listener. Safe to call
// repeatedly and before Start; logout relies on that.
func (s *Scheduler) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.fgRunning {
		close(s.stopFg)
		s.fgRunning = false
		s.stopFg = nil
	}
}
