// Package capture turns the continuous audio frame stream into bounded
// utterances using a rolling pre-roll buffer and hysteresis-gated
// voice-activity detection.
//
// The pre-roll buffer, not the speech-trigger threshold, is responsible for
// capture completeness: it continuously records the last ~1.5 s of audio so
// the first syllable survives even when the speaker starts before the
// voice-activity classifier confirms speech. The trigger threshold is
// therefore deliberately low.
package capture

import "github.com/hearthd/hearth/pkg/audio"

// PreRoll is a fixed-capacity circular buffer of audio frames. Frames are
// cloned on push, so a snapshot taken when an utterance begins never aliases
// slots that the still-rolling buffer is about to overwrite.
//
// PreRoll is not safe for concurrent use; the capture loop owns it.
type PreRoll struct {
	slots  []audio.Frame
	next   int
	filled int
}

// NewPreRoll returns a PreRoll holding up to capacity frames. A capacity of
// zero or less yields a buffer that stores nothing.
func NewPreRoll(capacity int) *PreRoll {
	if capacity < 0 {
		capacity = 0
	}
	return &PreRoll{slots: make([]audio.Frame, capacity)}
}

// Cap returns the buffer's frame capacity.
func (p *PreRoll) Cap() int {
	return len(p.slots)
}

// Len returns the number of frames currently buffered.
func (p *PreRoll) Len() int {
	return p.filled
}

// Push records a frame, overwriting the oldest slot once the buffer is full.
func (p *PreRoll) Push(f audio.Frame) {
	if len(p.slots) == 0 {
		return
	}
	p.slots[p.next] = f.Clone()
	p.next = (p.next + 1) % len(p.slots)
	if p.filled < len(p.slots) {
		p.filled++
	}
}

// Snapshot returns the buffered frames oldest-first. The returned slice is
// independent of the buffer, which keeps rolling untouched.
func (p *PreRoll) Snapshot() []audio.Frame {
	out := make([]audio.Frame, 0, p.filled)
	start := p.next - p.filled
	if start < 0 {
		start += len(p.slots)
	}
	for i := 0; i < p.filled; i++ {
		out = append(out, p.slots[(start+i)%len(p.slots)])
	}
	return out
}

// Clear drops all buffered frames.
func (p *PreRoll) Clear() {
	p.next = 0
	p.filled = 0
	for i := range p.slots {
		p.slots[i] = audio.Frame{}
	}
}
