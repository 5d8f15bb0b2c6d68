package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hearthd/hearth/pkg/audio"
	"github.com/hearthd/hearth/pkg/provider/vad"
)

// ErrDeviceFailure is returned when the input device keeps failing after the
// bounded retry budget is spent. It is distinct from "no speech detected":
// the caller must surface a device problem, not treat it as silence.
var ErrDeviceFailure = errors.New("capture: audio device failure")

// ErrNoSpeech is returned when no speech starts within the no-speech timeout
// after a capture cycle begins.
var ErrNoSpeech = errors.New("capture: no speech detected")

const (
	// Two consecutive speech frames (~60 ms at 30 ms/frame) start recording.
	// Deliberately low: the pre-roll buffer, not this threshold, protects
	// against losing speech onset.
	defaultStartFrames = 2

	// 23 consecutive silence frames (~690 ms) end recording.
	defaultStopFrames = 23

	// 50 frames of pre-roll (~1.5 s at 30 ms/frame).
	defaultPreRollFrames = 50

	defaultMaxDuration     = 10 * time.Second
	defaultNoSpeechTimeout = 8 * time.Second
	defaultReadRetries     = 3
	defaultRetryBackoff    = 50 * time.Millisecond
)

// RecorderOption is a functional option for configuring a [Recorder].
type RecorderOption func(*Recorder)

// WithStartFrames sets the consecutive-speech-frame trigger. Default: 2.
func WithStartFrames(n int) RecorderOption {
	return func(r *Recorder) { r.startFrames = n }
}

// WithStopFrames sets the consecutive-silence-frame stop. Default: 23.
func WithStopFrames(n int) RecorderOption {
	return func(r *Recorder) { r.stopFrames = n }
}

// WithPreRollFrames sets the pre-roll buffer capacity in frames. Default: 50.
func WithPreRollFrames(n int) RecorderOption {
	return func(r *Recorder) { r.preroll = NewPreRoll(n) }
}

// WithMaxDuration sets the hard recording cap, measured over the frames
// recorded after the speech trigger (the pre-roll seed does not count).
// Default: 10s.
func WithMaxDuration(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.maxDuration = d }
}

// WithNoSpeechTimeout sets how long a cycle waits for speech to start before
// giving up with [ErrNoSpeech]. Zero disables the timeout. Default: 8s.
func WithNoSpeechTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.noSpeechTimeout = d }
}

// WithReadRetries sets how many times a failed device read is retried before
// the cycle aborts with [ErrDeviceFailure]. Default: 3.
func WithReadRetries(n int) RecorderOption {
	return func(r *Recorder) { r.readRetries = n }
}

// WithRetryBackoff sets the base backoff between device read retries; the
// delay grows linearly with the attempt number. Default: 50ms.
func WithRetryBackoff(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.retryBackoff = d }
}

// WithRecorderLogger sets the logger. Defaults to [slog.Default].
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// Recorder captures one bounded utterance per cycle from an input device,
// gated by per-frame voice-activity classification with hysteresis.
//
// Recorder is not safe for concurrent use; the main loop owns it and runs at
// most one capture cycle at a time.
type Recorder struct {
	classifier vad.Classifier
	preroll    *PreRoll

	startFrames     int
	stopFrames      int
	maxDuration     time.Duration
	noSpeechTimeout time.Duration
	readRetries     int
	retryBackoff    time.Duration
	logger          *slog.Logger
}

// NewRecorder returns a Recorder using the given voice-activity classifier.
func NewRecorder(classifier vad.Classifier, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		classifier:      classifier,
		preroll:         NewPreRoll(defaultPreRollFrames),
		startFrames:     defaultStartFrames,
		stopFrames:      defaultStopFrames,
		maxDuration:     defaultMaxDuration,
		noSpeechTimeout: defaultNoSpeechTimeout,
		readRetries:     defaultReadRetries,
		retryBackoff:    defaultRetryBackoff,
		logger:          slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Observe feeds one frame into the rolling pre-roll buffer without starting a
// capture. The main loop calls this for every frame consumed while listening
// for the wake phrase, so the buffer already holds recent audio when a
// capture cycle begins.
func (r *Recorder) Observe(frame audio.Frame) {
	r.preroll.Push(frame)
}

// Capture runs one capture cycle: it reads frames from device until speech
// starts and then ends, and returns the bounded utterance, seeded with the
// pre-roll buffer contents at the moment recording began.
//
// The cycle ends when the consecutive-silence stop threshold is reached, or
// when the recorded duration hits the hard cap, whichever comes first. The
// pre-roll buffer is not cleared on return — it keeps rolling for the next
// cycle.
func (r *Recorder) Capture(ctx context.Context, device audio.InputDevice) (audio.Utterance, error) {
	r.classifier.Reset()

	var (
		frames     []audio.Frame
		recording  bool
		speechRun  int
		silenceRun int
		recorded   time.Duration
		waited     time.Duration
	)

	for {
		if err := ctx.Err(); err != nil {
			return audio.Utterance{}, err
		}

		frame, err := r.readFrame(ctx, device)
		if err != nil {
			return audio.Utterance{}, err
		}
		r.preroll.Push(frame)

		class, cerr := r.classifier.Classify(frame)
		if cerr != nil {
			r.logger.Warn("voice-activity classification failed, treating frame as silence", "error", cerr)
			class = vad.Silence
		}

		if class == vad.Speech {
			speechRun++
			silenceRun = 0
		} else {
			silenceRun++
			speechRun = 0
		}

		if !recording {
			waited += frame.Duration()
			if speechRun >= r.startFrames {
				recording = true
				frames = append(frames, r.preroll.Snapshot()...)
				r.logger.Debug("utterance recording started",
					"seed_frames", len(frames), "trigger_frames", r.startFrames)
				continue
			}
			if r.noSpeechTimeout > 0 && waited >= r.noSpeechTimeout {
				return audio.Utterance{}, ErrNoSpeech
			}
			continue
		}

		frames = append(frames, frame.Clone())
		recorded += frame.Duration()

		if silenceRun >= r.stopFrames {
			r.logger.Debug("utterance ended on silence",
				"frames", len(frames), "recorded", recorded)
			break
		}
		if recorded >= r.maxDuration {
			r.logger.Info("utterance hit the hard duration cap",
				"frames", len(frames), "recorded", recorded)
			break
		}
	}

	return audio.Utterance{Frames: frames}, nil
}

// readFrame reads one frame, retrying transient device errors with a bounded
// linear backoff. Context errors abort immediately.
func (r *Recorder) readFrame(ctx context.Context, device audio.InputDevice) (audio.Frame, error) {
	var lastErr error
	for attempt := 0; attempt <= r.readRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return audio.Frame{}, ctx.Err()
			case <-time.After(r.retryBackoff * time.Duration(attempt)):
			}
		}

		frame, err := device.ReadFrame(ctx)
		if err == nil {
			return frame, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return audio.Frame{}, err
		}
		lastErr = err
		r.logger.Warn("audio device read failed", "attempt", attempt+1, "error", err)
	}

	return audio.Frame{}, fmt.Errorf("capture: device read failed after %d attempts: %w",
		r.readRetries+1, errors.Join(ErrDeviceFailure, lastErr))
}
