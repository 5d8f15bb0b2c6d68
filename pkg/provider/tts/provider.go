// Package tts defines the Synthesizer interface for text-to-speech backends.
//
// The assistant speaks short sentences — final answers, clarifying questions,
// apologies — so the contract is batch: one text in, one PCM buffer out. The
// caller owns playback and the audio-device handoff.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Synthesizer converts text to speakable PCM audio.
type Synthesizer interface {
	// Synthesize renders text as 16-bit signed little-endian mono PCM and
	// returns the buffer together with its sample rate. Blocks until
	// synthesis completes or ctx is cancelled.
	Synthesize(ctx context.Context, text string) (pcm []byte, sampleRate int, err error)

	// Close releases backend resources. Safe to call more than once.
	Close() error
}
