// Package mock provides a test double for the tts.Synthesizer interface.
package mock

import (
	"context"
	"sync"

	"github.com/hearthd/hearth/pkg/provider/tts"
)

// Synthesizer is a recording implementation of tts.Synthesizer. Every call
// returns PCM (default: a short non-empty placeholder buffer) and records the
// text that was spoken.
type Synthesizer struct {
	mu sync.Mutex

	// PCM is the buffer returned by Synthesize. When nil, a 16-byte
	// placeholder is returned so callers can distinguish "spoke something"
	// from "spoke nothing".
	PCM []byte

	// SampleRate is returned by Synthesize. Defaults to 22050 when zero.
	SampleRate int

	// SynthesizeErr, if non-nil, is returned by every Synthesize call.
	SynthesizeErr error

	// Spoken records the text of every Synthesize call in order.
	Spoken []string
}

// Synthesize implements tts.Synthesizer.
func (s *Synthesizer) Synthesize(_ context.Context, text string) ([]byte, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Spoken = append(s.Spoken, text)
	if s.SynthesizeErr != nil {
		return nil, 0, s.SynthesizeErr
	}
	pcm := s.PCM
	if pcm == nil {
		pcm = make([]byte, 16)
	}
	rate := s.SampleRate
	if rate == 0 {
		rate = 22050
	}
	return pcm, rate, nil
}

// Close implements tts.Synthesizer.
func (s *Synthesizer) Close() error { return nil }

// SpokenCount returns how many Synthesize calls have been observed. Safe to
// call while another goroutine is speaking.
func (s *Synthesizer) SpokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Spoken)
}

// LastSpoken returns the text of the most recent Synthesize call, or "" when
// nothing has been spoken.
func (s *Synthesizer) LastSpoken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Spoken) == 0 {
		return ""
	}
	return s.Spoken[len(s.Spoken)-1]
}

// Ensure Synthesizer implements tts.Synthesizer at compile time.
var _ tts.Synthesizer = (*Synthesizer)(nil)
