package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type httpEngine struct {
	endpoint string
	client   *http.Client
}

type httpRequest struct {
	Text  string          `json:"text"`
	Style json.RawMessage `json:"style"`
	Steps int             `json:"steps"`
	Speed float64         `json:"speed"`
}

type httpResponse struct {
	SamplesBase64 string  `json:"samples_base64"`
	Duration      float64 `json:"duration"`
	SampleRate    int     `json:"sample_rate"`
	Error         string  `json:"error,omitempty"`
}

// NewHTTPEngine talks to a long-running synthesis sidecar over HTTP. The
// sidecar exposes POST /synthesize and GET /health.
func NewHTTPEngine(endpoint string) Engine {
	return &httpEngine{
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

func (h *httpEngine) Ready() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < 300
}

func (h *httpEngine) Synthesize(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(httpRequest{
		Text:  req.Text,
		Style: req.Style.Data,
		Steps: req.Steps,
		Speed: req.Speed,
	})
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("tts engine request: %w", err)
	}
	defer resp.Body.Close()

	var payload httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("decode tts engine response: %w", err)
	}
	if resp.StatusCode >= 300 {
		if payload.Error != "" {
			return Result{}, fmt.Errorf("tts engine: %s", payload.Error)
		}
		return Result{}, fmt.Errorf("tts engine returned status %s", resp.Status)
	}
	return decodeResult(payload.SamplesBase64, payload.Duration, payload.SampleRate)
}
