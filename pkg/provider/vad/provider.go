// Package vad defines the Classifier interface for per-frame voice activity
// detection backends.
//
// A VAD classifier answers one question per frame: speech or silence. It is
// deliberately stateless from the caller's perspective — hysteresis (requiring
// several consecutive frames of the same class before changing capture state)
// belongs to the utterance recorder in internal/capture, not to the
// classifier. Implementations may keep internal smoothing state; Reset clears
// it between capture cycles.
//
// Classification is synchronous by design: Classify returns immediately,
// making it suitable for the low-latency frame loop that gates recording.
package vad

import "github.com/hearthd/hearth/pkg/audio"

// Class is the per-frame classification result.
type Class int

const (
	// Silence indicates no speech detected in the frame.
	Silence Class = iota

	// Speech indicates the frame contains speech.
	Speech
)

// String returns the human-readable name of the class.
func (c Class) String() string {
	switch c {
	case Silence:
		return "silence"
	case Speech:
		return "speech"
	default:
		return "unknown"
	}
}

// Classifier classifies individual audio frames as speech or silence.
//
// A Classifier should not be shared between goroutines unless the
// implementation documents concurrent safety; the capture loop calls it from
// a single goroutine.
type Classifier interface {
	// Classify analyses a single frame and returns its class. Returns an
	// error if the frame does not match the expected format or the engine
	// fails internally. This method must not block.
	Classify(frame audio.Frame) (Class, error)

	// Reset clears accumulated smoothing state without closing the
	// classifier. Call between capture cycles.
	Reset()

	// Close releases classifier resources. Safe to call more than once.
	Close() error
}
