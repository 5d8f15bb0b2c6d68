// Package wakeword defines the Scorer interface for wake-phrase detection
// backends.
//
// A wake-phrase scorer wraps an acoustic keyword-spotting model (e.g.,
// openWakeWord, Porcupine, or a custom ONNX classifier) and surfaces it as a
// per-frame score in [0, 1]. The scorer is a black box to the rest of the
// pipeline: the wake gate in internal/wake owns thresholding, cooldown, and
// state — the scorer only answers "how much does this frame sound like the
// wake phrase".
//
// Scoring is synchronous by design: Score returns immediately so it can sit
// in the hot frame loop without adding latency.
//
// Implementations need not be safe for concurrent use; the capture loop calls
// Score from a single goroutine.
package wakeword

import "github.com/hearthd/hearth/pkg/audio"

// Scorer scores audio frames for wake-phrase presence.
type Scorer interface {
	// Score returns the wake-phrase probability for frame in the range
	// [0.0, 1.0]. Most models are stateful across frames (sliding analysis
	// window); feed every captured frame in order, not just candidates.
	Score(frame audio.Frame) (float64, error)

	// Reset clears accumulated model state. Call when the audio stream is
	// interrupted so stale windows do not bleed into the next cycle.
	Reset()

	// Close releases model resources. Safe to call more than once.
	Close() error
}
