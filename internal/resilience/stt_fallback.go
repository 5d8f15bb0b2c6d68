package resilience

import (
	"context"

	"github.com/hearthd/hearth/pkg/audio"
	"github.com/hearthd/hearth/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] with automatic failover across
// multiple transcription backends, each guarded by its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional transcription backend as a fallback.
func (f *STTFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe runs recognition against the first healthy backend. An empty
// utterance is rejected up front — a bad input would otherwise fail every
// backend in turn and poison their breakers.
func (f *STTFallback) Transcribe(ctx context.Context, u audio.Utterance) (stt.Transcript, error) {
	if len(u.Frames) == 0 {
		return stt.Transcript{}, stt.ErrEmptyUtterance
	}
	return ExecuteWithResult(f.group, func(t stt.Transcriber) (stt.Transcript, error) {
		return t.Transcribe(ctx, u)
	})
}

// Close closes every backend in the group and joins their errors.
func (f *STTFallback) Close() error {
	return closeAll(f.group, func(t stt.Transcriber) error {
		return t.Close()
	})
}
