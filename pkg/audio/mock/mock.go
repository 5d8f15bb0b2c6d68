// Package mock provides test doubles for the audio package interfaces.
//
// Use InputDevice to script a fixed frame sequence into the capture loop and
// OutputDevice to record what was played.
package mock

import (
	"context"
	"sync"

	"github.com/hearthd/hearth/pkg/audio"
)

// InputDevice is a scripted implementation of audio.InputDevice. ReadFrame
// returns the queued frames in order; once the script is exhausted it returns
// ExhaustedErr (or blocks on ctx when ExhaustedErr is nil).
type InputDevice struct {
	mu sync.Mutex

	// Frames is the scripted frame sequence, consumed front to back.
	Frames []audio.Frame

	// ReadErrs maps read-call indices (0-based) to injected errors. A read
	// that hits an injected error does not consume a frame.
	ReadErrs map[int]error

	// ExhaustedErr is returned once Frames runs out. When nil, ReadFrame
	// blocks until ctx is cancelled instead.
	ExhaustedErr error

	// ReadCount is the total number of ReadFrame calls observed.
	ReadCount int

	closed bool
}

// ReadFrame implements audio.InputDevice.
func (d *InputDevice) ReadFrame(ctx context.Context) (audio.Frame, error) {
	d.mu.Lock()
	idx := d.ReadCount
	d.ReadCount++

	if d.closed {
		d.mu.Unlock()
		return audio.Frame{}, audio.ErrDeviceClosed
	}
	if err, ok := d.ReadErrs[idx]; ok {
		d.mu.Unlock()
		return audio.Frame{}, err
	}
	if len(d.Frames) == 0 {
		exhausted := d.ExhaustedErr
		d.mu.Unlock()
		if exhausted != nil {
			return audio.Frame{}, exhausted
		}
		<-ctx.Done()
		return audio.Frame{}, ctx.Err()
	}
	f := d.Frames[0]
	d.Frames = d.Frames[1:]
	d.mu.Unlock()
	return f, nil
}

// Close implements audio.InputDevice.
func (d *InputDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Ensure InputDevice implements audio.InputDevice at compile time.
var _ audio.InputDevice = (*InputDevice)(nil)

// PlayCall records a single invocation of OutputDevice.Play.
type PlayCall struct {
	PCM        []byte
	SampleRate int
}

// OutputDevice is a recording implementation of audio.OutputDevice.
type OutputDevice struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by every Play call.
	PlayErr error

	// PlayCalls records every call to Play in order.
	PlayCalls []PlayCall
}

// Play implements audio.OutputDevice.
func (d *OutputDevice) Play(_ context.Context, pcm []byte, sampleRate int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	d.PlayCalls = append(d.PlayCalls, PlayCall{PCM: cp, SampleRate: sampleRate})
	return d.PlayErr
}

// Plays returns how many Play calls have been observed. Safe to call while
// another goroutine is playing.
func (d *OutputDevice) Plays() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.PlayCalls)
}

// Close implements audio.OutputDevice.
func (d *OutputDevice) Close() error { return nil }

// Ensure OutputDevice implements audio.OutputDevice at compile time.
var _ audio.OutputDevice = (*OutputDevice)(nil)
