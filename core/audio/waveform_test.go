package audio

import "testing"

func TestToStereo(t *testing.T) {
	tests := []struct {
		name  string
		in    [][]float32
		first float32
		right float32
	}{
		{"mono duplicated", [][]float32{{1, 2}}, 1, 1},
		{"stereo unchanged", [][]float32{{1, 2}, {3, 4}}, 1, 3},
		{"surround truncated", [][]float32{{1}, {2}, {3}, {4}, {5}, {6}}, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := (&Waveform{SampleRate: 48000, Channels: tt.in}).ToStereo()
			if len(w.Channels) != 2 {
				t.Fatalf("channels = %d", len(w.Channels))
			}
			if w.Channels[0][0] != tt.first || w.Channels[1][0] != tt.right {
				t.Errorf("channels = %v", w.Channels)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	w := &Waveform{SampleRate: 10, Channels: [][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}}}
	if got := w.Truncate(3); got.Frames() != 3 || got.Channels[1][2] != 7 {
		t.Errorf("Truncate(3) = %v", got.Channels)
	}
	if got := w.Truncate(10); got != w {
		t.Error("shorter audio should be returned as is")
	}
}

func TestDeinterleave(t *testing.T) {
	w := Deinterleave([]float32{1, 10, 2, 20, 3, 30, 4}, 2, 48000)
	if w.Frames() != 3 {
		t.Fatalf("frames = %d, want 3", w.Frames())
	}
	if w.Channels[0][2] != 3 || w.Channels[1][0] != 10 {
		t.Errorf("channels = %v", w.Channels)
	}
	if got := Deinterleave(nil, 0, 48000); got.Frames() != 0 {
		t.Error("zero channels should yield no frames")
	}
}
