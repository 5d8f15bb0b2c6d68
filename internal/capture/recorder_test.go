package capture_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hearthd/hearth/internal/capture"
	"github.com/hearthd/hearth/pkg/audio"
	audiomock "github.com/hearthd/hearth/pkg/audio/mock"
	"github.com/hearthd/hearth/pkg/provider/vad"
	vadmock "github.com/hearthd/hearth/pkg/provider/vad/mock"
)

// halfSecondFrame returns a 500 ms 16 kHz frame, convenient for duration-cap
// arithmetic.
func halfSecondFrame(mark byte) audio.Frame {
	data := make([]byte, 16000)
	for i := range data {
		data[i] = mark
	}
	return audio.Frame{Data: data, SampleRate: 16000}
}

func TestRecorderCapture(t *testing.T) {
	t.Parallel()

	t.Run("seeds with pre-roll and stops on silence run", func(t *testing.T) {
		t.Parallel()
		classifier := &vadmock.Classifier{Classes: []vad.Class{
			vad.Speech, vad.Speech, vad.Silence, vad.Silence, vad.Silence,
		}}
		r := capture.NewRecorder(classifier,
			capture.WithStartFrames(2),
			capture.WithStopFrames(3),
			capture.WithPreRollFrames(8),
			capture.WithNoSpeechTimeout(0),
		)

		// Frames observed while listening for the wake phrase.
		r.Observe(markedFrame(1))
		r.Observe(markedFrame(2))

		device := &audiomock.InputDevice{
			Frames: []audio.Frame{
				markedFrame(3), markedFrame(4), markedFrame(5), markedFrame(6), markedFrame(7),
			},
			ExhaustedErr: errors.New("script exhausted"),
		}

		utt, err := r.Capture(context.Background(), device)
		if err != nil {
			t.Fatalf("Capture: %v", err)
		}

		wantMarks := []byte{1, 2, 3, 4, 5, 6, 7}
		if len(utt.Frames) != len(wantMarks) {
			t.Fatalf("expected %d frames, got %d", len(wantMarks), len(utt.Frames))
		}
		for i, want := range wantMarks {
			if utt.Frames[i].Data[0] != want {
				t.Fatalf("frame %d: expected mark %d, got %d", i, want, utt.Frames[i].Data[0])
			}
		}
	})

	t.Run("continuous speech ends at the hard cap", func(t *testing.T) {
		t.Parallel()
		classifier := &vadmock.Classifier{DefaultClass: vad.Speech}
		r := capture.NewRecorder(classifier,
			capture.WithStartFrames(1),
			capture.WithStopFrames(1000),
			capture.WithMaxDuration(2*time.Second),
			capture.WithPreRollFrames(8),
			capture.WithNoSpeechTimeout(0),
		)

		var frames []audio.Frame
		for mark := byte(1); mark <= 10; mark++ {
			frames = append(frames, halfSecondFrame(mark))
		}
		device := &audiomock.InputDevice{Frames: frames, ExhaustedErr: errors.New("script exhausted")}

		utt, err := r.Capture(context.Background(), device)
		if err != nil {
			t.Fatalf("Capture: %v", err)
		}

		// Frame 1 triggers and arrives via the pre-roll seed; frames 2-5
		// accumulate the 2 s recording cap.
		if len(utt.Frames) != 5 {
			t.Fatalf("expected 5 frames, got %d", len(utt.Frames))
		}
		if device.ReadCount != 5 {
			t.Fatalf("expected 5 device reads, got %d", device.ReadCount)
		}
	})

	t.Run("transient read error is retried", func(t *testing.T) {
		t.Parallel()
		classifier := &vadmock.Classifier{Classes: []vad.Class{vad.Speech, vad.Silence}}
		r := capture.NewRecorder(classifier,
			capture.WithStartFrames(1),
			capture.WithStopFrames(1),
			capture.WithReadRetries(2),
			capture.WithRetryBackoff(time.Millisecond),
			capture.WithNoSpeechTimeout(0),
		)

		device := &audiomock.InputDevice{
			Frames:       []audio.Frame{markedFrame(1), markedFrame(2)},
			ReadErrs:     map[int]error{0: errors.New("transient underrun")},
			ExhaustedErr: errors.New("script exhausted"),
		}

		utt, err := r.Capture(context.Background(), device)
		if err != nil {
			t.Fatalf("Capture: %v", err)
		}
		if len(utt.Frames) != 2 {
			t.Fatalf("expected 2 frames, got %d", len(utt.Frames))
		}
	})

	t.Run("persistent read failure aborts with ErrDeviceFailure", func(t *testing.T) {
		t.Parallel()
		r := capture.NewRecorder(&vadmock.Classifier{},
			capture.WithReadRetries(2),
			capture.WithRetryBackoff(time.Millisecond),
		)

		device := &audiomock.InputDevice{ExhaustedErr: errors.New("mic unplugged")}

		_, err := r.Capture(context.Background(), device)
		if !errors.Is(err, capture.ErrDeviceFailure) {
			t.Fatalf("expected ErrDeviceFailure, got %v", err)
		}
	})

	t.Run("no speech before timeout returns ErrNoSpeech", func(t *testing.T) {
		t.Parallel()
		r := capture.NewRecorder(&vadmock.Classifier{},
			capture.WithNoSpeechTimeout(time.Second),
		)

		var frames []audio.Frame
		for mark := byte(1); mark <= 5; mark++ {
			frames = append(frames, halfSecondFrame(mark))
		}
		device := &audiomock.InputDevice{Frames: frames, ExhaustedErr: errors.New("script exhausted")}

		_, err := r.Capture(context.Background(), device)
		if !errors.Is(err, capture.ErrNoSpeech) {
			t.Fatalf("expected ErrNoSpeech, got %v", err)
		}
		if device.ReadCount != 2 {
			t.Fatalf("expected the timeout after 2 half-second frames, got %d reads", device.ReadCount)
		}
	})

	t.Run("context cancellation aborts a blocked read", func(t *testing.T) {
		t.Parallel()
		r := capture.NewRecorder(&vadmock.Classifier{})
		device := &audiomock.InputDevice{} // blocks once empty

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := r.Capture(ctx, device)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("classifier error treated as silence", func(t *testing.T) {
		t.Parallel()
		classifier := &vadmock.Classifier{ClassifyErr: errors.New("vad crashed")}
		r := capture.NewRecorder(classifier,
			capture.WithNoSpeechTimeout(time.Second),
		)

		var frames []audio.Frame
		for mark := byte(1); mark <= 5; mark++ {
			frames = append(frames, halfSecondFrame(mark))
		}
		device := &audiomock.InputDevice{Frames: frames, ExhaustedErr: errors.New("script exhausted")}

		_, err := r.Capture(context.Background(), device)
		if !errors.Is(err, capture.ErrNoSpeech) {
			t.Fatalf("expected ErrNoSpeech when every frame classifies as silence, got %v", err)
		}
	})
}
