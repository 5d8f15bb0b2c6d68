package vad

import (
	"encoding/binary"
	"math"

	"github.com/hearthd/hearth/pkg/audio"
)

const (
	// defaultSpeechRMS is the root-mean-square energy (in 16-bit PCM units)
	// above which a frame is classified as speech. The maximum possible value
	// for 16-bit audio is 32767; 500 corresponds to quiet speech at a normal
	// microphone distance.
	defaultSpeechRMS = 500.0

	// noiseFloorAlpha is the exponential smoothing factor for the adaptive
	// noise-floor estimate. Smaller values adapt more slowly.
	noiseFloorAlpha = 0.05
)

// EnergyClassifier is a pure-Go Classifier based on RMS energy with an
// adaptive noise floor. It is the default backend when no neural VAD model is
// configured, and the reference implementation used throughout the tests.
//
// The classifier tracks a slow-moving noise-floor estimate from frames it
// classifies as silence; a frame counts as speech when its RMS exceeds both
// the absolute threshold and twice the current noise floor. This keeps a
// noisy room from pinning the classifier at Speech.
type EnergyClassifier struct {
	speechRMS  float64
	noiseFloor float64
}

// Compile-time assertion that EnergyClassifier satisfies Classifier.
var _ Classifier = (*EnergyClassifier)(nil)

// EnergyOption is a functional option for configuring an EnergyClassifier.
type EnergyOption func(*EnergyClassifier)

// WithSpeechRMS sets the absolute RMS threshold above which a frame is
// classified as speech. Default: 500.
func WithSpeechRMS(threshold float64) EnergyOption {
	return func(c *EnergyClassifier) { c.speechRMS = threshold }
}

// NewEnergyClassifier returns an EnergyClassifier configured with the
// supplied options.
func NewEnergyClassifier(opts ...EnergyOption) *EnergyClassifier {
	c := &EnergyClassifier{speechRMS: defaultSpeechRMS}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify implements Classifier.
func (c *EnergyClassifier) Classify(frame audio.Frame) (Class, error) {
	level := rms(frame.Data)

	if level >= c.speechRMS && level >= 2*c.noiseFloor {
		return Speech, nil
	}

	// Fold silent frames into the noise-floor estimate.
	c.noiseFloor = (1-noiseFloorAlpha)*c.noiseFloor + noiseFloorAlpha*level
	return Silence, nil
}

// Reset implements Classifier. The noise-floor estimate is retained across
// cycles: the room does not get quieter because an utterance ended.
func (c *EnergyClassifier) Reset() {}

// Close implements Classifier.
func (c *EnergyClassifier) Close() error { return nil }

// rms computes the root-mean-square amplitude of 16-bit little-endian PCM.
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(n))
}
