// Package generation runs image, video and text generation requests against a
// studio session: validate, call out, then debit and append on success.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"studio/server/internal/events"
	"studio/server/internal/ledger"
	"studio/server/internal/metrics"
	"studio/server/internal/model"
	"studio/server/internal/provider"
	"studio/server/internal/store"
	"studio/server/internal/textgen"

	"github.com/google/uuid"
)

var (
	ErrEmptyInput        = errors.New("empty input")
	ErrMissingEndpoint   = errors.New("missing endpoint")
	ErrRequestInFlight   = errors.New("request in flight")
	ErrInvariantViolated = errors.New("ledger invariant violated")
	ErrRequestNotFound   = errors.New("generation request not found")
	ErrUnknownVariant    = errors.New("unknown variant")
)

const (
	CodeTextFailed = "TEXT_GENERATION_FAILED"
	CodeInternal   = "INTERNAL_ERROR"

	textFailureMessage     = "Error al generar el texto. Inténtalo de nuevo."
	internalFailureMessage = "No se pudo completar la generación. Inténtalo de nuevo."

	defaultRetention = 15 * time.Minute
)

type TextGenerator interface {
	Generate(ctx context.Context, req textgen.Request) (string, error)
}

// Target is the slice of a studio session a request acts on.
type Target struct {
	SessionID string
	Ledger    *ledger.Ledger
	Content   *store.ContentStore
	Controls  *Controls
	// Endpoint is the webhook for the submitted variant; unused for text.
	Endpoint string
}

type Input struct {
	Variant model.Variant
	Prompt  string
	Text    textgen.Request
	TraceID string
}

func (in Input) subject() string {
	if in.Variant == model.VariantText {
		return in.Text.Topic
	}
	return in.Prompt
}

type tracked struct {
	req  model.GenerationRequest
	done chan struct{}
}

type Service struct {
	prov    provider.Adapter
	text    TextGenerator
	hub     *events.Hub
	metrics *metrics.Recorder
	log     *slog.Logger
	now     func() time.Time

	retention time.Duration

	mu       sync.Mutex
	requests map[string]*tracked
}

func NewService(prov provider.Adapter, text TextGenerator, hub *events.Hub, rec *metrics.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		prov:      prov,
		text:      text,
		hub:       hub,
		metrics:   rec,
		log:       logger,
		now:       time.Now,
		retention: defaultRetention,
		requests:  map[string]*tracked{},
	}
}

// Submit validates in against the target and, when accepted, starts the
// request in the background. The returned record is in_flight. The work is
// detached from ctx: cancelling the caller abandons the result but does not
// stop the request from applying its effect.
func (s *Service) Submit(ctx context.Context, t Target, in Input) (model.GenerationRequest, error) {
	if !in.Variant.Valid() {
		return model.GenerationRequest{}, ErrUnknownVariant
	}
	if err := t.Controls.Begin(in.Variant); err != nil {
		return model.GenerationRequest{}, err
	}
	if err := validate(t, in); err != nil {
		t.Controls.Reject(in.Variant)
		s.metrics.ObserveGeneration(string(in.Variant), string(model.RequestRejected), 0)
		s.log.Info("generation_rejected",
			"session_id", t.SessionID,
			"variant", in.Variant,
			"reason", err.Error(),
			"trace_id", in.TraceID,
		)
		return model.GenerationRequest{}, err
	}

	now := s.now().UTC()
	req := model.GenerationRequest{
		ID:         uuid.NewString(),
		SessionID:  t.SessionID,
		Variant:    in.Variant,
		Input:      in.subject(),
		CreditCost: in.Variant.CreditCost(),
		Status:     model.RequestInFlight,
		TraceID:    in.TraceID,
		CreatedAt:  now,
	}
	tr := &tracked{req: req, done: make(chan struct{})}

	s.mu.Lock()
	s.sweepLocked(now)
	s.requests[req.ID] = tr
	s.mu.Unlock()

	t.Controls.Launch(in.Variant, req.ID)
	s.emitUpdate(req)

	go s.run(context.WithoutCancel(ctx), t, in, tr)
	return req, nil
}

// validate checks input, endpoint and balance in that order.
func validate(t Target, in Input) error {
	if strings.TrimSpace(in.subject()) == "" {
		return ErrEmptyInput
	}
	if in.Variant != model.VariantText && strings.TrimSpace(t.Endpoint) == "" {
		return ErrMissingEndpoint
	}
	if t.Ledger.Balance() < in.Variant.CreditCost() {
		return ledger.ErrInsufficientCredits
	}
	return nil
}

func (s *Service) run(ctx context.Context, t Target, in Input, tr *tracked) {
	started := s.now()
	req := tr.req

	item, code, msg := s.produce(ctx, t, in, req)
	if code == "" {
		code, msg = s.apply(t, req, &item)
	}

	req.EndedAt = s.now().UTC()
	if code == "" {
		req.Status = model.RequestSucceeded
		req.ContentID = item.ID
	} else {
		req.Status = model.RequestFailed
		req.ErrorCode = code
		req.ErrorMessage = msg
	}

	t.Controls.Finish(in.Variant, req.Status)

	s.mu.Lock()
	tr.req = req
	s.mu.Unlock()
	close(tr.done)

	s.metrics.ObserveGeneration(string(in.Variant), string(req.Status), s.now().Sub(started))
	s.emitUpdate(req)
}

// produce performs the external call or renders text. A non-empty code means
// the request failed without touching the session.
func (s *Service) produce(ctx context.Context, t Target, in Input, req model.GenerationRequest) (model.ContentItem, string, string) {
	if in.Variant == model.VariantText {
		content, err := s.text.Generate(ctx, in.Text)
		if err != nil {
			s.log.Error("generation_failed",
				"request_id", req.ID,
				"session_id", req.SessionID,
				"variant", req.Variant,
				"error", err,
				"trace_id", req.TraceID,
			)
			return model.ContentItem{}, CodeTextFailed, textFailureMessage
		}
		return model.NewTextItem(0, content, in.Text.Topic, in.Text.Platform, in.Text.Tone, time.Time{}), "", ""
	}

	out, perr := s.prov.Generate(ctx, provider.GenerateInput{
		Variant:  in.Variant,
		Prompt:   in.Prompt,
		Endpoint: t.Endpoint,
		TraceID:  req.TraceID,
	})
	if perr != nil {
		s.log.Warn("generation_failed",
			"request_id", req.ID,
			"session_id", req.SessionID,
			"variant", req.Variant,
			"category", perr.Category,
			"code", perr.Code,
			"detail", perr.InternalMessage,
			"trace_id", req.TraceID,
		)
		return model.ContentItem{}, perr.Code, perr.UserMessage
	}
	s.log.Info("generation_succeeded",
		"request_id", req.ID,
		"session_id", req.SessionID,
		"variant", req.Variant,
		"shape", out.Shape,
		"trace_id", req.TraceID,
	)
	return model.NewMediaItem(0, in.Variant, out.URL, in.Prompt, time.Time{}), "", ""
}

// apply debits the cost and then appends the item. The balance may have been
// drained by a concurrent request since validation; that case appends nothing.
func (s *Service) apply(t Target, req model.GenerationRequest, item *model.ContentItem) (string, string) {
	balance, err := t.Ledger.Debit(req.CreditCost, req.ID)
	if err != nil {
		s.log.Error("ledger_invariant_violation",
			"request_id", req.ID,
			"session_id", req.SessionID,
			"variant", req.Variant,
			"cost", req.CreditCost,
			"balance", balance,
			"error", fmt.Errorf("%w: %w", ErrInvariantViolated, err),
			"trace_id", req.TraceID,
		)
		return CodeInternal, internalFailureMessage
	}
	s.metrics.AddCreditsSpent(req.CreditCost)

	now := s.now().UTC()
	item.ID = t.Content.NextID(now)
	item.CreatedAt = now
	t.Content.Append(*item)

	s.emit(req.SessionID, model.EventBalanceChanged, map[string]any{
		"balance": balance,
		"delta":   -req.CreditCost,
		"reason":  "generation",
	})
	s.emit(req.SessionID, model.EventContentAdded, map[string]any{
		"item": *item,
	})
	return "", ""
}

// Get returns the request record. A terminal record is discarded once it has
// been returned.
func (s *Service) Get(sessionID, requestID string) (model.GenerationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.requests[requestID]
	if !ok || tr.req.SessionID != sessionID {
		return model.GenerationRequest{}, ErrRequestNotFound
	}
	if tr.req.Status.Terminal() {
		delete(s.requests, requestID)
	}
	return tr.req, nil
}

// Wait blocks until the request is terminal or ctx is done, then behaves
// like Get.
func (s *Service) Wait(ctx context.Context, sessionID, requestID string) (model.GenerationRequest, error) {
	s.mu.Lock()
	tr, ok := s.requests[requestID]
	owned := ok && tr.req.SessionID == sessionID
	s.mu.Unlock()
	if !owned {
		return model.GenerationRequest{}, ErrRequestNotFound
	}
	select {
	case <-tr.done:
	case <-ctx.Done():
		return model.GenerationRequest{}, ctx.Err()
	}
	return s.Get(sessionID, requestID)
}

// sweepLocked drops terminal records nobody came back for.
func (s *Service) sweepLocked(now time.Time) {
	for id, tr := range s.requests {
		if tr.req.Status.Terminal() && now.Sub(tr.req.EndedAt) > s.retention {
			delete(s.requests, id)
		}
	}
}

func (s *Service) emitUpdate(req model.GenerationRequest) {
	payload := map[string]any{
		"request_id": req.ID,
		"variant":    req.Variant,
		"status":     req.Status,
	}
	if req.ContentID != 0 {
		payload["content_id"] = req.ContentID
	}
	if req.ErrorCode != "" {
		payload["error_code"] = req.ErrorCode
		payload["error_message"] = req.ErrorMessage
	}
	s.emit(req.SessionID, model.EventGenerationUpdated, payload)
}

func (s *Service) emit(sessionID string, typ model.StudioEventType, payload map[string]any) {
	if s.hub == nil {
		return
	}
	s.hub.Emit(sessionID, typ, payload)
}
