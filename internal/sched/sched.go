// Package sched runs background countdowns (timers, delayed notifications)
// as independently cancellable tasks that post completion events into a
// channel the main loop selects on. Tasks never mutate dialogue state
// directly; the main loop reacts to events between capture cycles.
package sched

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a completion message posted when a scheduled task fires.
type Event struct {
	// ID is the task identifier returned by [Scheduler.After].
	ID string

	// Kind tags the task domain (e.g. "timer").
	Kind string

	// Label is the human description spoken back to the user
	// (e.g. "ten minutes").
	Label string

	// FiredAt is when the countdown elapsed.
	FiredAt time.Time
}

// Option is a functional option for configuring a [Scheduler].
type Option func(*Scheduler)

// WithBuffer sets the event channel capacity. Default: 16.
func WithBuffer(n int) Option {
	return func(s *Scheduler) { s.buffer = n }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// Scheduler owns the background task set. All methods are safe for
// concurrent use.
type Scheduler struct {
	buffer int
	logger *slog.Logger

	mu     sync.Mutex
	events chan Event
	tasks  map[string]context.CancelFunc
	wg     sync.WaitGroup
	quit   chan struct{}
	closed bool
}

// New returns a running Scheduler with no tasks.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		buffer: 16,
		logger: slog.Default(),
		tasks:  make(map[string]context.CancelFunc),
		quit:   make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.events = make(chan Event, s.buffer)
	return s
}

// Events returns the channel completion events are posted on. The channel is
// closed by [Scheduler.Shutdown] after all tasks have finished.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// After schedules a task that posts an [Event] once d has elapsed, and
// returns its identifier for cancellation. A task scheduled after Shutdown
// is dropped and returns an empty identifier.
func (s *Scheduler) After(kind, label string, d time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Warn("task scheduled after shutdown, dropping", "kind", kind, "label", label)
		return ""
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	s.tasks[id] = cancel

	s.wg.Add(1)
	go s.run(ctx, id, kind, label, d)

	s.logger.Debug("task scheduled", "id", id, "kind", kind, "label", label, "after", d)
	return id
}

// Cancel stops the task with the given identifier before it fires. It
// reports whether a pending task was found.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	cancel, ok := s.tasks[id]
	delete(s.tasks, id)
	s.mu.Unlock()

	if ok {
		cancel()
		s.logger.Debug("task cancelled", "id", id)
	}
	return ok
}

// Active returns the number of pending tasks.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Shutdown cancels all pending tasks, waits for their goroutines to exit,
// and closes the event channel. Returns ctx.Err if ctx expires first.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.quit)
	for id, cancel := range s.tasks {
		cancel()
		delete(s.tasks, id)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(s.events)
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context, id, kind, label string, d time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case fired := <-timer.C:
		s.mu.Lock()
		delete(s.tasks, id)
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}

		ev := Event{ID: id, Kind: kind, Label: label, FiredAt: fired}
		select {
		case s.events <- ev:
		case <-s.quit:
			// Main loop never drained the event before shutdown.
			s.logger.Warn("completion event dropped", "id", id, "kind", kind)
		}
	}
}
