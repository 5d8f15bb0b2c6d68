// Package mock provides a test double for the stt.Transcriber interface.
package mock

import (
	"context"
	"sync"

	"github.com/hearthd/hearth/pkg/audio"
	"github.com/hearthd/hearth/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Utterance is the utterance passed to Transcribe.
	Utterance audio.Utterance
}

// Transcriber is a scripted implementation of stt.Transcriber. Transcribe
// returns the queued Transcripts in order; once exhausted it returns
// DefaultTranscript.
type Transcriber struct {
	mu sync.Mutex

	// Transcripts is the scripted result sequence, consumed front to back.
	Transcripts []stt.Transcript

	// DefaultTranscript is returned once Transcripts runs out.
	DefaultTranscript stt.Transcript

	// TranscribeErr, if non-nil, is returned by every Transcribe call.
	TranscribeErr error

	// TranscribeCalls records every call to Transcribe in order.
	TranscribeCalls []TranscribeCall
}

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(_ context.Context, u audio.Utterance) (stt.Transcript, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TranscribeCalls = append(t.TranscribeCalls, TranscribeCall{Utterance: u})
	if t.TranscribeErr != nil {
		return stt.Transcript{}, t.TranscribeErr
	}
	if len(t.Transcripts) == 0 {
		return t.DefaultTranscript, nil
	}
	tr := t.Transcripts[0]
	t.Transcripts = t.Transcripts[1:]
	return tr, nil
}

// Close implements stt.Transcriber.
func (t *Transcriber) Close() error { return nil }

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)
