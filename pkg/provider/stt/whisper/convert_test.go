package whisper

import "testing"

func TestPCMToFloat32(t *testing.T) {
	t.Parallel()

	t.Run("known values", func(t *testing.T) {
		t.Parallel()
		// 0, +16384 (0.5), -32768 (-1.0) as little-endian int16.
		pcm := []byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x80}
		got := pcmToFloat32(pcm)
		want := []float32{0, 0.5, -1.0}
		if len(got) != len(want) {
			t.Fatalf("expected %d samples, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("sample %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	})

	t.Run("odd trailing byte ignored", func(t *testing.T) {
		t.Parallel()
		got := pcmToFloat32([]byte{0x00, 0x00, 0xFF})
		if len(got) != 1 {
			t.Fatalf("expected 1 sample, got %d", len(got))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		if got := pcmToFloat32(nil); len(got) != 0 {
			t.Fatalf("expected no samples, got %d", len(got))
		}
	})
}
