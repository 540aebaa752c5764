package audio

// Waveform is planar PCM audio: Channels[c][i] is sample i of channel c.
type Waveform struct {
	SampleRate int
	Channels   [][]float32
}

// Frames returns the number of samples per channel.
func (w *Waveform) Frames() int {
	if len(w.Channels) == 0 {
		return 0
	}
	return len(w.Channels[0])
}

// ToStereo returns exactly two channels: mono is duplicated and anything beyond the
// first two channels is dropped.
func (w *Waveform) ToStereo() *Waveform {
	switch len(w.Channels) {
	case 0, 2:
		return w
	case 1:
		dup := make([]float32, len(w.Channels[0]))
		copy(dup, w.Channels[0])
		return &Waveform{SampleRate: w.SampleRate, Channels: [][]float32{w.Channels[0], dup}}
	default:
		return &Waveform{SampleRate: w.SampleRate, Channels: w.Channels[:2]}
	}
}

// Truncate limits every channel to at most maxFrames samples.
func (w *Waveform) Truncate(maxFrames int) *Waveform {
	if maxFrames < 0 || w.Frames() <= maxFrames {
		return w
	}
	out := &Waveform{SampleRate: w.SampleRate, Channels: make([][]float32, len(w.Channels))}
	for c, ch := range w.Channels {
		out.Channels[c] = ch[:maxFrames]
	}
	return out
}

// Deinterleave splits interleaved samples into planar channels. A trailing partial
// frame is dropped.
func Deinterleave(samples []float32, channels, sampleRate int) *Waveform {
	w := &Waveform{SampleRate: sampleRate}
	if channels <= 0 {
		return w
	}
	frames := len(samples) / channels
	w.Channels = make([][]float32, channels)
	for c := range w.Channels {
		w.Channels[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			w.Channels[c][i] = samples[i*channels+c]
		}
	}
	return w
}
