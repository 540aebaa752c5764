package engine

import (
	"context"
	"time"

	"loraset/core/labeling"
)

// LLMClient calls the captioning LLM.
type LLMClient struct {
	baseClient
}

var _ labeling.Captioner = (*LLMClient)(nil)

// NewLLMClient creates a captioning client.
func NewLLMClient(apiURL, apiKey string, timeout time.Duration) *LLMClient {
	return &LLMClient{baseClient: newBaseClient(apiURL, apiKey, timeout)}
}

type understandReq struct {
	AudioCodes             string  `json:"audio_codes"`
	Temperature            float64 `json:"temperature"`
	UseConstrainedDecoding bool    `json:"use_constrained_decoding"`
}

type understandResp struct {
	Metadata *labeling.Metadata `json:"metadata"`
	Status   string             `json:"status"`
}

// Understand describes the audio behind codes. The engine declining is reported as
// a nil Metadata with its status, not as an error.
func (c *LLMClient) Understand(ctx context.Context, codes string, temperature float64, constrained bool) (*labeling.Metadata, string, error) {
	var out understandResp
	err := c.postJSON(ctx, "/v1/understand", understandReq{
		AudioCodes:             codes,
		Temperature:            temperature,
		UseConstrainedDecoding: constrained,
	}, &out)
	if err != nil {
		return nil, "", err
	}
	return out.Metadata, out.Status, nil
}
