// Package preprocess turns labeled samples into tensor bundles that a training loop
// can load without touching the encoders again.
package preprocess

import (
	"context"

	"loraset/core/audio"
	"loraset/core/tensor"
)

const (
	// TargetSampleRate is the rate the VAE expects.
	TargetSampleRate = 48000
	// LatentDim is the feature width of VAE latents.
	LatentDim = 64
	// DefaultMaxDuration caps each clip, in seconds.
	DefaultMaxDuration = 240.0
	// DefaultTextMaxLength and DefaultLyricMaxLength are tokenizer padding lengths.
	DefaultTextMaxLength  = 256
	DefaultLyricMaxLength = 512
)

// AudioDecoder loads an audio file as PCM resampled to rate.
type AudioDecoder interface {
	Decode(ctx context.Context, path string, rate int) (*audio.Waveform, error)
}

// ConditionInputs feed the condition encoder.
type ConditionInputs struct {
	TextHidden     *tensor.Tensor
	TextMask       *tensor.Tensor
	LyricHidden    *tensor.Tensor
	LyricMask      *tensor.Tensor
	ReferAudio     *tensor.Tensor // [1, LatentDim] placeholder for text-to-music
	ReferOrderMask *tensor.Tensor // [1]
}

// Backend is the model side of preprocessing. Implementations may return tensors
// with a leading batch axis of one; it is squeezed before storage.
type Backend interface {
	// Ready returns an error unless every model component is loaded.
	Ready(ctx context.Context) error
	// EncodeAudio VAE-encodes stereo audio into latents [T, LatentDim].
	EncodeAudio(ctx context.Context, w *audio.Waveform) (*tensor.Tensor, error)
	// EncodeText tokenizes and encodes a caption: hidden [L, D] and mask [L].
	EncodeText(ctx context.Context, text string, maxLength int) (hidden, mask *tensor.Tensor, err error)
	// EmbedLyrics tokenizes lyrics and looks up token embeddings.
	EmbedLyrics(ctx context.Context, lyrics string, maxLength int) (hidden, mask *tensor.Tensor, err error)
	// EncodeCondition runs the condition encoder.
	EncodeCondition(ctx context.Context, in ConditionInputs) (hidden, mask *tensor.Tensor, err error)
	// SilenceLatent returns the latent of silent audio [S, LatentDim].
	SilenceLatent(ctx context.Context) (*tensor.Tensor, error)
}
