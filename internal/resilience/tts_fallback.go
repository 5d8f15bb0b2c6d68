package resilience

import (
	"context"

	"github.com/hearthd/hearth/pkg/provider/tts"
)

// TTSFallback implements [tts.Synthesizer] with automatic failover across
// multiple synthesis backends, each guarded by its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Synthesizer]
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Synthesizer, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional synthesis backend as a fallback.
func (f *TTSFallback) AddFallback(name string, s tts.Synthesizer) {
	f.group.AddFallback(name, s)
}

// Synthesize renders text through the first healthy backend. Fallback voices
// may sound different from the primary; that is preferable to silence.
func (f *TTSFallback) Synthesize(ctx context.Context, text string) ([]byte, int, error) {
	type result struct {
		pcm  []byte
		rate int
	}
	r, err := ExecuteWithResult(f.group, func(s tts.Synthesizer) (result, error) {
		pcm, rate, err := s.Synthesize(ctx, text)
		return result{pcm: pcm, rate: rate}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return r.pcm, r.rate, nil
}

// Close closes every backend in the group and joins their errors.
func (f *TTSFallback) Close() error {
	return closeAll(f.group, func(s tts.Synthesizer) error {
		return s.Close()
	})
}
