package audio

import (
	"context"
	"errors"
)

// ErrDeviceClosed is returned by device operations after Close.
var ErrDeviceClosed = errors.New("audio device is closed")

// InputDevice is a blocking source of capture frames. Exactly one goroutine
// may read from an InputDevice at a time; the capture loop owns it for the
// duration of a capture cycle.
type InputDevice interface {
	// ReadFrame blocks until the next frame is available or ctx is cancelled.
	// The returned frame is owned by the caller and remains valid after the
	// next ReadFrame call.
	ReadFrame(ctx context.Context) (Frame, error)

	// Close releases the underlying device handle. Calling Close more than
	// once is safe and returns nil.
	Close() error
}

// OutputDevice plays synthesised speech and notification sounds. Playback is
// blocking: Play returns once the buffer has been handed to the device in
// full or ctx is cancelled.
type OutputDevice interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
	Close() error
}
