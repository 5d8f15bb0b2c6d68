// Package audio defines the shared audio types and device interfaces for the
// hearth capture pipeline.
//
// Frames are the atomic unit of audio transport: the input device produces
// fixed-duration mono PCM frames, the wake gate and voice-activity classifier
// consume them one at a time, and the utterance recorder assembles them into
// bounded Utterances for transcription.
package audio

import "time"

// Frame is a single fixed-duration slice of mono PCM audio.
// A Frame is immutable once produced; consumers must not modify Data.
type Frame struct {
	// Data is 16-bit signed little-endian PCM.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for STT-optimised mono capture).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the playback duration of the frame derived from its
// sample count and sample rate. Returns zero for a frame with no data or an
// unset sample rate.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || len(f.Data) == 0 {
		return 0
	}
	samples := len(f.Data) / 2
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// Clone returns a deep copy of the frame. The recorder uses this when lifting
// frames out of the rolling pre-roll buffer so a finished utterance never
// aliases buffer slots that are about to be overwritten.
func (f Frame) Clone() Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return Frame{Data: data, SampleRate: f.SampleRate, Timestamp: f.Timestamp}
}

// Utterance is one complete spoken command: an ordered frame sequence bounded
// by a pre-roll segment at the front and a post-silence trailer at the end.
// It is created by the utterance recorder, consumed once by the transcriber,
// then discarded.
type Utterance struct {
	Frames []Frame
}

// Duration returns the total duration of all frames in the utterance.
func (u Utterance) Duration() time.Duration {
	var total time.Duration
	for _, f := range u.Frames {
		total += f.Duration()
	}
	return total
}

// PCM concatenates all frame data into a single contiguous PCM buffer,
// suitable for batch transcription engines.
func (u Utterance) PCM() []byte {
	var n int
	for _, f := range u.Frames {
		n += len(f.Data)
	}
	out := make([]byte, 0, n)
	for _, f := range u.Frames {
		out = append(out, f.Data...)
	}
	return out
}

// SampleRate returns the sample rate of the utterance's first frame, or zero
// for an empty utterance. All frames in an utterance share one rate.
func (u Utterance) SampleRate() int {
	if len(u.Frames) == 0 {
		return 0
	}
	return u.Frames[0].SampleRate
}
