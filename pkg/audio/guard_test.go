package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuard_FirstAcquireDoesNotWait(t *testing.T) {
	t.Parallel()

	g := NewGuard(500 * time.Millisecond)

	start := time.Now()
	release, err := g.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	if elapsed := time.Since(start); elapsed >= 250*time.Millisecond {
		t.Fatalf("first acquisition waited %v with no prior release", elapsed)
	}
}

func TestGuard_WaitsOutHandoffDelayAfterRelease(t *testing.T) {
	t.Parallel()

	const delay = 60 * time.Millisecond
	g := NewGuard(delay)

	release, err := g.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	start := time.Now()
	release, err = g.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	release()

	// The release above is fresh, so nearly the whole delay must be waited.
	if elapsed := time.Since(start); elapsed < delay/2 {
		t.Fatalf("re-acquired after %v, want at least %v", elapsed, delay/2)
	}
}

func TestGuard_ImmediateSkipsHandoffDelay(t *testing.T) {
	t.Parallel()

	g := NewGuard(500 * time.Millisecond)

	release, err := g.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	// A follow-up cycle keeps the microphone hot: no handoff pause.
	start := time.Now()
	release, err = g.Acquire(context.Background(), true)
	if err != nil {
		t.Fatalf("immediate Acquire: %v", err)
	}
	release()

	if elapsed := time.Since(start); elapsed >= 250*time.Millisecond {
		t.Fatalf("immediate acquisition waited %v", elapsed)
	}
}

func TestGuard_ZeroDelayDisablesWait(t *testing.T) {
	t.Parallel()

	g := NewGuard(0)

	release, err := g.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	start := time.Now()
	release, err = g.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	release()

	if elapsed := time.Since(start); elapsed >= 250*time.Millisecond {
		t.Fatalf("zero-delay guard waited %v", elapsed)
	}
}

func TestGuard_CtxCancelDuringWait(t *testing.T) {
	t.Parallel()

	g := NewGuard(5 * time.Second)

	release, err := g.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx, false); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire returned %v, want deadline exceeded", err)
	}

	// The guard must be free again after an abandoned wait.
	release, err = g.Acquire(context.Background(), true)
	if err != nil {
		t.Fatalf("Acquire after cancel: %v", err)
	}
	release()
}

func TestGuard_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	g := NewGuard(0)

	release, err := g.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()
	release()

	release, err = g.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("Acquire after double release: %v", err)
	}
	release()
}
