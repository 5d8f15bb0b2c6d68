package audio

import (
	"context"
	"sync"
	"time"
)

// Guard serialises ownership of the shared audio device between the capture
// loop and playback. The device must never be held by both at once: some
// backends return contention errors when capture is re-armed while the
// playback stream is still draining.
//
// Acquire enforces a short handoff delay after the previous release. Callers
// that are continuing a follow-up dialogue cycle (no new wake-event arming
// needed) pass immediate=true to skip the delay.
type Guard struct {
	mu sync.Mutex

	handoffDelay time.Duration
	lastRelease  time.Time
}

// NewGuard creates a Guard with the given handoff delay. A zero delay
// disables the wait entirely.
func NewGuard(handoffDelay time.Duration) *Guard {
	return &Guard{handoffDelay: handoffDelay}
}

// Acquire blocks until the device is free, waits out the handoff delay when
// immediate is false, and returns a release function. The release function is
// idempotent and must be called when the owner is done with the device.
//
// Returns ctx.Err() if ctx is cancelled while waiting.
func (g *Guard) Acquire(ctx context.Context, immediate bool) (release func(), err error) {
	g.mu.Lock()

	if !immediate && g.handoffDelay > 0 {
		elapsed := time.Since(g.lastRelease)
		if wait := g.handoffDelay - elapsed; wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				g.mu.Unlock()
				return nil, ctx.Err()
			}
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.lastRelease = time.Now()
			g.mu.Unlock()
		})
	}, nil
}
