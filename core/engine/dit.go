package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"loraset/core/audio"
	"loraset/core/labeling"
	"loraset/core/preprocess"
	"loraset/core/tensor"
	"loraset/logger"
)

// DiTClient calls the DiT engine. It serves as the labeling audio encoder and as
// the preprocessing backend.
type DiTClient struct {
	baseClient
}

var (
	_ labeling.AudioEncoder = (*DiTClient)(nil)
	_ preprocess.Backend    = (*DiTClient)(nil)
)

// NewDiTClient creates a DiT engine client.
func NewDiTClient(apiURL, apiKey string, timeout time.Duration) *DiTClient {
	return &DiTClient{baseClient: newBaseClient(apiURL, apiKey, timeout)}
}

type healthResp struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// Ready checks that the engine is up with its models loaded.
func (c *DiTClient) Ready(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", "", nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var h healthResp
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return fmt.Errorf("decode health: %w", err)
	}
	if !h.ModelLoaded {
		return errors.New("model not initialized")
	}
	return nil
}

// WaitForHealthy polls Ready until it succeeds or ctx ends.
func (c *DiTClient) WaitForHealthy(ctx context.Context, interval time.Duration) error {
	for {
		err := c.Ready(ctx)
		if err == nil {
			logger.Info("DiT engine is healthy", logger.String("url", c.apiURL))
			return nil
		}
		logger.Info("DiT engine not ready, retrying",
			logger.ErrorField(err),
			logger.Duration("interval", interval))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

type codesReq struct {
	AudioPath string `json:"audio_path"`
}

type codesResp struct {
	Codes string `json:"codes"`
	Error string `json:"error"`
}

// ConvertToCodes asks the engine to tokenize an audio file it can read from disk.
func (c *DiTClient) ConvertToCodes(ctx context.Context, audioPath string) (string, error) {
	var out codesResp
	if err := c.postJSON(ctx, "/v1/audio/codes", codesReq{AudioPath: audioPath}, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("convert %s: %s", audioPath, out.Error)
	}
	return out.Codes, nil
}

// EncodeAudio sends planar audio as tensor "audio" [channels, frames] and returns
// the latents.
func (c *DiTClient) EncodeAudio(ctx context.Context, w *audio.Waveform) (*tensor.Tensor, error) {
	frames := w.Frames()
	data := make([]float32, 0, len(w.Channels)*frames)
	for _, ch := range w.Channels {
		data = append(data, ch...)
	}
	t, err := tensor.FromData(data, len(w.Channels), frames)
	if err != nil {
		return nil, err
	}
	in := tensor.NewBundle()
	in.Tensors["audio"] = t
	in.Metadata["sample_rate"] = strconv.Itoa(w.SampleRate)

	out, err := c.tensorsToTensors(ctx, "/v1/vae/encode", in)
	if err != nil {
		return nil, err
	}
	ts, err := pick(out, "latents")
	if err != nil {
		return nil, err
	}
	return ts[0], nil
}

type textReq struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

// EncodeText runs the text encoder over a caption.
func (c *DiTClient) EncodeText(ctx context.Context, text string, maxLength int) (*tensor.Tensor, *tensor.Tensor, error) {
	return c.hiddenAndMask(ctx, "/v1/text/encode", textReq{Text: text, MaxLength: maxLength})
}

// EmbedLyrics looks up token embeddings for lyrics.
func (c *DiTClient) EmbedLyrics(ctx context.Context, lyrics string, maxLength int) (*tensor.Tensor, *tensor.Tensor, error) {
	return c.hiddenAndMask(ctx, "/v1/lyrics/embed", textReq{Text: lyrics, MaxLength: maxLength})
}

func (c *DiTClient) hiddenAndMask(ctx context.Context, path string, in textReq) (*tensor.Tensor, *tensor.Tensor, error) {
	out, err := c.jsonToTensors(ctx, path, in)
	if err != nil {
		return nil, nil, err
	}
	ts, err := pick(out, "hidden_states", "attention_mask")
	if err != nil {
		return nil, nil, err
	}
	return ts[0], ts[1], nil
}

// EncodeCondition runs the condition encoder.
func (c *DiTClient) EncodeCondition(ctx context.Context, in preprocess.ConditionInputs) (*tensor.Tensor, *tensor.Tensor, error) {
	b := tensor.NewBundle()
	b.Tensors["text_hidden_states"] = in.TextHidden
	b.Tensors["text_attention_mask"] = in.TextMask
	b.Tensors["lyric_hidden_states"] = in.LyricHidden
	b.Tensors["lyric_attention_mask"] = in.LyricMask
	b.Tensors["refer_audio_acoustic_hidden_states_packed"] = in.ReferAudio
	b.Tensors["refer_audio_order_mask"] = in.ReferOrderMask

	out, err := c.tensorsToTensors(ctx, "/v1/condition/encode", b)
	if err != nil {
		return nil, nil, err
	}
	ts, err := pick(out, "encoder_hidden_states", "encoder_attention_mask")
	if err != nil {
		return nil, nil, err
	}
	return ts[0], ts[1], nil
}

// SilenceLatent fetches the latent of silent audio.
func (c *DiTClient) SilenceLatent(ctx context.Context) (*tensor.Tensor, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/silence-latent", "", nil)
	if err != nil {
		return nil, err
	}
	out, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	ts, err := pick(out, "silence_latent")
	if err != nil {
		return nil, err
	}
	return ts[0], nil
}
