// Package stt defines the Transcriber interface for speech-to-text backends.
//
// Unlike streaming assistants that feed partial audio to a live recognition
// session, the hearth pipeline produces complete bounded utterances (the
// recorder handles speech-boundary detection itself), so the transcription
// contract is batch: one Utterance in, one Transcript out.
//
// Implementations must be safe for concurrent use; the pipeline may overlap a
// transcription with background work.
package stt

import (
	"context"
	"errors"
	"time"

	"github.com/hearthd/hearth/pkg/audio"
)

// ErrEmptyUtterance is returned when an utterance contains no audio.
var ErrEmptyUtterance = errors.New("stt: utterance contains no audio")

// Transcript is the text result for one utterance.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// Confidence is the overall recognition confidence (0.0–1.0). Zero when
	// the backend does not report confidence.
	Confidence float64

	// AudioDuration is the length of the transcribed utterance.
	AudioDuration time.Duration
}

// Transcriber converts a bounded utterance to text.
type Transcriber interface {
	// Transcribe runs recognition over the full utterance and blocks until
	// the transcript is available or ctx is cancelled. Returns
	// [ErrEmptyUtterance] for an utterance with no frames.
	Transcribe(ctx context.Context, u audio.Utterance) (Transcript, error)

	// Close releases backend resources (loaded models, connections). Safe to
	// call more than once.
	Close() error
}
