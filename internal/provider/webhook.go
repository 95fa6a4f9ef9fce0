package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"studio/server/internal/model"
)

const (
	negativePrompt = "blurry, bad quality, distorted"
	source         = "Shadow Empire"
	maxBodyBytes   = 4 << 20
)

// WebhookRequest is the JSON body posted to the generation endpoint.
type WebhookRequest struct {
	Type           model.Variant `json:"type"`
	Prompt         string        `json:"prompt"`
	NegativePrompt string        `json:"negative_prompt"`
	Width          string        `json:"width"`
	Height         string        `json:"height"`
	NumFrames      string        `json:"num_frames,omitempty"`
	ModelID        string        `json:"model_id"`
	Source         string        `json:"source"`
	Timestamp      string        `json:"timestamp"`
}

func NewWebhookRequest(v model.Variant, prompt string, now time.Time) WebhookRequest {
	req := WebhookRequest{
		Type:           v,
		Prompt:         prompt,
		NegativePrompt: negativePrompt,
		Width:          "512",
		Height:         "512",
		ModelID:        "realistic-vision-v6",
		Source:         source,
		Timestamp:      FormatTimestamp(now),
	}
	if v == model.VariantVideo {
		req.NumFrames = "16"
		req.ModelID = "zeroscope"
	}
	return req
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// WebhookAdapter posts to the endpoint carried by each GenerateInput. The
// HTTP status is ignored; only the body shape decides the outcome.
type WebhookAdapter struct {
	client *http.Client
	now    func() time.Time
}

// NewWebhookAdapter builds an adapter. A zero timeout leaves calls unbounded.
func NewWebhookAdapter(timeout time.Duration) *WebhookAdapter {
	return &WebhookAdapter{
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

func (w *WebhookAdapter) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, *Error) {
	raw, err := json.Marshal(NewWebhookRequest(in.Variant, in.Prompt, w.now()))
	if err != nil {
		return GenerateOutput{}, networkError(fmt.Errorf("encode webhook body: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, in.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return GenerateOutput{}, networkError(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if in.TraceID != "" {
		req.Header.Set("X-Trace-Id", in.TraceID)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return GenerateOutput{}, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return GenerateOutput{}, networkError(fmt.Errorf("read webhook body: %w", err))
	}
	return Extract(body, in.Variant)
}
