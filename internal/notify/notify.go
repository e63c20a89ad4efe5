// Package notify is the process-scoped toast scheduler. Every
// user-visible success or failure flows through it; toasts expire on
// their own timers and never affect one another.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Severity levels for a toast.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityError   = "error"
)

// Toast is one ephemeral notification. Toasts are never persisted.
type Toast struct {
	ID        int
	Message   string
	Severity  string
	CreatedAt time.Time
	Duration  time.Duration
}

// ChangeFunc receives the active toast set after every change.
type ChangeFunc func([]Toast)

// Scheduler owns the active toast set. Each toast gets its own expiry
// timer; dismissing or expiring one leaves the rest untouched, and
// there is no queue capacity limit.
type Scheduler struct {
	logger   *slog.Logger
	onChange ChangeFunc
	duration time.Duration

	mu     sync.Mutex
	nextID int
	active map[int]Toast
	timers map[int]*time.Timer
	now    func() time.Time
	after  func(time.Duration, func()) *time.Timer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithTimerFunc replaces timer creation, for tests that want to fire
// expiry by hand.
func WithTimerFunc(after func(time.Duration, func()) *time.Timer) Option {
	return func(s *Scheduler) { s.after = after }
}

func New(defaultDuration time.Duration, logger *slog.Logger, onChange ChangeFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:   logger,
		onChange: onChange,
		duration: defaultDuration,
		active:   make(map[int]Toast),
		timers:   make(map[int]*time.Timer),
		now:      time.Now,
		after:    time.AfterFunc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push schedules a toast with the default duration and returns its id.
func (s *Scheduler) Push(message, severity string) int {
	return s.PushFor(message, severity, s.duration)
}

// Info, Success and Error are shorthands for the common severities.
func (s *Scheduler) Info(message string) int    { return s.Push(message, SeverityInfo) }
func (s *Scheduler) Success(message string) int { return s.Push(message, SeveritySuccess) }
func (s *Scheduler) Error(message string) int   { return s.Push(message, SeverityError) }

// PushFor schedules a toast with an explicit duration.
func (s *Scheduler) PushFor(message, severity string, d time.Duration) int {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.active[id] = Toast{
		ID:        id,
		Message:   message,
		Severity:  severity,
		CreatedAt: s.now(),
		Duration:  d,
	}
	s.timers[id] = s.after(d, func() { s.Dismiss(id) })
	snapshot := s.activeLocked()
	s.mu.Unlock()

	if severity == SeverityError {
		s.logger.Warn("toast", "severity", severity, "message", message)
	} else {
		s.logger.Debug("toast", "severity", severity, "message", message)
	}
	s.notify(snapshot)
	return id
}

// Dismiss removes one toast, stopping its timer. Unknown ids are a
// no-op so an expiry racing a manual dismissal stays harmless.
func (s *Scheduler) Dismiss(id int) {
	s.mu.Lock()
	if _, ok := s.active[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.active, id)
	if t := s.timers[id]; t != nil {
		t.Stop()
	}
	delete(s.timers, id)
	snapshot := s.activeLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// Active returns the live toasts ordered by id, oldest first.
func (s *Scheduler) Active() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Scheduler) activeLocked() []Toast {
	out := make([]Toast, 0, len(s.active))
	for id := 1; id <= s.nextID; id++ {
		if t, ok := s.active[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (s *Scheduler) notify(snapshot []Toast) {
	if s.onChange != nil {
		s.onChange(snapshot)
	}
}
