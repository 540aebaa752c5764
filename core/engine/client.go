// Package engine talks to the model servers: the DiT engine (audio codes, VAE, text
// encoders, condition encoder) and the captioning LLM.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"loraset/core/tensor"
)

const (
	contentJSON        = "application/json"
	contentSafetensors = "application/octet-stream"
	// maxErrorBody bounds how much of a failed response is quoted in errors.
	maxErrorBody = 4 << 10
)

// baseClient carries what every engine client shares.
type baseClient struct {
	apiURL string
	apiKey string
	http   *http.Client
}

func newBaseClient(apiURL, apiKey string, timeout time.Duration) baseClient {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return baseClient{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

func (c *baseClient) newRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *baseClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%s %s: API error (status %d): %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

// postJSON sends in as JSON and decodes a JSON reply into out.
func (c *baseClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, contentJSON, bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// roundTrip sends a request and decodes a safetensors reply.
func (c *baseClient) roundTrip(req *http.Request) (*tensor.Bundle, error) {
	req.Header.Set("Accept", contentSafetensors)
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := tensor.ReadBundle(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: decode tensors: %w", req.URL.Path, err)
	}
	return b, nil
}

// jsonToTensors posts JSON and expects tensors back.
func (c *baseClient) jsonToTensors(ctx context.Context, path string, in any) (*tensor.Bundle, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, contentJSON, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return c.roundTrip(req)
}

// tensorsToTensors posts a bundle and expects tensors back.
func (c *baseClient) tensorsToTensors(ctx context.Context, path string, in *tensor.Bundle) (*tensor.Bundle, error) {
	var buf bytes.Buffer
	if _, err := in.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode tensors: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, contentSafetensors, &buf)
	if err != nil {
		return nil, err
	}
	return c.roundTrip(req)
}

func pick(b *tensor.Bundle, names ...string) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(names))
	for i, n := range names {
		t, ok := b.Tensors[n]
		if !ok {
			return nil, fmt.Errorf("response is missing tensor %q", n)
		}
		out[i] = t
	}
	return out, nil
}
