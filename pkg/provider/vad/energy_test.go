package vad

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/hearthd/hearth/pkg/audio"
)

// sineFrame builds a mono 16-bit PCM frame containing a sine wave at the
// given peak amplitude.
func sineFrame(amplitude float64, samples int) audio.Frame {
	data := make([]byte, samples*2)
	for i := range samples {
		v := int16(amplitude * math.Sin(2*math.Pi*float64(i)/64))
		binary.LittleEndian.PutUint16(data[i*2:i*2+2], uint16(v))
	}
	return audio.Frame{Data: data, SampleRate: 16000}
}

func TestEnergyClassifier(t *testing.T) {
	t.Parallel()

	t.Run("loud frame is speech", func(t *testing.T) {
		t.Parallel()
		c := NewEnergyClassifier()
		got, err := c.Classify(sineFrame(8000, 480))
		if err != nil {
			t.Fatalf("Classify: unexpected error: %v", err)
		}
		if got != Speech {
			t.Fatalf("Classify: expected Speech, got %v", got)
		}
	})

	t.Run("quiet frame is silence", func(t *testing.T) {
		t.Parallel()
		c := NewEnergyClassifier()
		got, err := c.Classify(sineFrame(50, 480))
		if err != nil {
			t.Fatalf("Classify: unexpected error: %v", err)
		}
		if got != Silence {
			t.Fatalf("Classify: expected Silence, got %v", got)
		}
	})

	t.Run("empty frame is silence", func(t *testing.T) {
		t.Parallel()
		c := NewEnergyClassifier()
		got, err := c.Classify(audio.Frame{SampleRate: 16000})
		if err != nil {
			t.Fatalf("Classify: unexpected error: %v", err)
		}
		if got != Silence {
			t.Fatalf("Classify: expected Silence, got %v", got)
		}
	})

	t.Run("raised noise floor suppresses marginal speech", func(t *testing.T) {
		t.Parallel()
		c := NewEnergyClassifier(WithSpeechRMS(100))

		// Train the noise floor with sustained moderate noise.
		for range 200 {
			if _, err := c.Classify(sineFrame(90, 480)); err != nil {
				t.Fatalf("Classify: unexpected error: %v", err)
			}
		}

		// A frame just above the absolute threshold but below 2x the noise
		// floor must stay silence.
		got, err := c.Classify(sineFrame(160, 480))
		if err != nil {
			t.Fatalf("Classify: unexpected error: %v", err)
		}
		if got != Silence {
			t.Fatalf("Classify: expected Silence under raised noise floor, got %v", got)
		}
	})
}
