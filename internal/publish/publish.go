// Package publish simulates posting gallery content to social platforms and
// forwards the publication to an optional webhook.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"studio/server/internal/metrics"
	"studio/server/internal/model"
	"studio/server/internal/provider"
	"studio/server/internal/store"
)

var (
	ErrNoContentSelected = errors.New("no content selected")
	ErrNoPlatforms       = errors.New("no platforms selected")
	ErrUnknownPlatform   = errors.New("unknown platform")
)

const DefaultDelay = 2 * time.Second

type Platform struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

var Platforms = []Platform{
	{ID: "instagram", Name: "Instagram", Icon: "📷"},
	{ID: "twitter", Name: "Twitter", Icon: "🐦"},
	{ID: "facebook", Name: "Facebook", Icon: "📘"},
	{ID: "linkedin", Name: "LinkedIn", Icon: "💼"},
	{ID: "youtube", Name: "YouTube", Icon: "📺"},
	{ID: "tiktok", Name: "TikTok", Icon: "🎵"},
}

func knownPlatform(id string) bool {
	for _, p := range Platforms {
		if p.ID == id {
			return true
		}
	}
	return false
}

type Request struct {
	ContentID    int64
	Platforms    []string
	ScheduleTime string
	WebhookURL   string
}

type Delivery struct {
	Outcome    model.DeliveryOutcome `json:"outcome"`
	StatusCode int                   `json:"status_code,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// Result is the local outcome. It is successful even when the webhook
// delivery was not.
type Result struct {
	Published     bool              `json:"published"`
	Scheduled     bool              `json:"scheduled"`
	ScheduleTime  string            `json:"schedule_time,omitempty"`
	PlatformCount int               `json:"platform_count"`
	Platforms     []string          `json:"platforms"`
	Content       model.ContentItem `json:"content"`
	Message       string            `json:"message"`
	Delivery      Delivery          `json:"delivery"`
}

// webhookBody is what the publication webhook receives.
type webhookBody struct {
	Content      model.ContentItem `json:"content"`
	Platforms    []string          `json:"platforms"`
	ScheduleTime string            `json:"scheduleTime"`
	Timestamp    string            `json:"timestamp"`
	Source       string            `json:"source"`
}

type Service struct {
	client  *http.Client
	delay   time.Duration
	metrics *metrics.Recorder
	log     *slog.Logger
	now     func() time.Time
}

func NewService(delay, timeout time.Duration, rec *metrics.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:  &http.Client{Timeout: timeout},
		delay:   delay,
		metrics: rec,
		log:     logger,
		now:     time.Now,
	}
}

// Normalize validates the platform list and collapses duplicates, keeping
// first-seen order.
func Normalize(platforms []string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if !knownPlatform(p) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrNoPlatforms
	}
	return out, nil
}

func (s *Service) Publish(ctx context.Context, contents *store.ContentStore, req Request) (Result, error) {
	if req.ContentID == 0 {
		return Result{}, ErrNoContentSelected
	}
	item, err := contents.Get(req.ContentID)
	if err != nil {
		return Result{}, ErrNoContentSelected
	}
	platforms, err := Normalize(req.Platforms)
	if err != nil {
		return Result{}, err
	}

	if err := sleep(ctx, s.delay); err != nil {
		return Result{}, err
	}

	res := Result{
		Published:     true,
		Scheduled:     req.ScheduleTime != "",
		ScheduleTime:  req.ScheduleTime,
		PlatformCount: len(platforms),
		Platforms:     platforms,
		Content:       item,
		Message:       message(req.ScheduleTime != "", len(platforms)),
		Delivery:      s.deliver(ctx, req.WebhookURL, webhookBody{Content: item, Platforms: platforms, ScheduleTime: req.ScheduleTime}),
	}
	s.metrics.ObservePublish(string(res.Delivery.Outcome))
	s.log.Info("content_published",
		"content_id", item.ID,
		"platforms", platforms,
		"scheduled", res.Scheduled,
		"delivery", res.Delivery.Outcome,
	)
	return res, nil
}

// deliver posts the publication. Any response counts as delivered; only a
// transport failure is reported, and it never fails the publication.
func (s *Service) deliver(ctx context.Context, url string, body webhookBody) Delivery {
	if url == "" {
		return Delivery{Outcome: model.DeliverySkipped}
	}
	body.Timestamp = provider.FormatTimestamp(s.now())
	body.Source = "Shadow Empire"
	raw, err := json.Marshal(body)
	if err != nil {
		return Delivery{Outcome: model.DeliveryBestEffortFailed, Error: err.Error()}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return Delivery{Outcome: model.DeliveryBestEffortFailed, Error: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.log.Warn("publish_webhook_failed", "error", err)
		return Delivery{Outcome: model.DeliveryBestEffortFailed, Error: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return Delivery{Outcome: model.DeliveryDelivered, StatusCode: resp.StatusCode}
}

func message(scheduled bool, n int) string {
	verb := "publicado"
	if scheduled {
		verb = "programado"
	}
	return fmt.Sprintf("Contenido %s exitosamente en %d plataforma(s)", verb, n)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
