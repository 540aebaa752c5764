package audio

import "context"

// Processor defines the audio operations the dataset pipeline needs from a decoder.
type Processor interface {
	// GetAudioDuration returns the container duration in whole seconds.
	GetAudioDuration(inputFile string) (int, error)
	// Decode returns the audio resampled to sampleRate with its native channel count.
	Decode(ctx context.Context, inputFile string, sampleRate int) (*Waveform, error)
}
