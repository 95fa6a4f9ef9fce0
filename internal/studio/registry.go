package studio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"studio/server/internal/events"
	"studio/server/internal/generation"
	"studio/server/internal/ledger"
	"studio/server/internal/metrics"
	"studio/server/internal/model"
	"studio/server/internal/payment"
	"studio/server/internal/store"
	"studio/server/internal/view"

	"github.com/google/uuid"
)

type Options struct {
	InitialCredits int64
	PaymentDelay   time.Duration
	Webhooks       WebhookSettings
	Hub            *events.Hub
	Metrics        *metrics.Recorder
	Logger         *slog.Logger
}

// Registry creates one session per user on first use and keeps it for the
// lifetime of the process.
type Registry struct {
	opts Options
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{opts: opts, now: time.Now, sessions: map[string]*Session{}}
}

func (r *Registry) ForUser(userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		return s, nil
	}
	l, err := ledger.New(r.opts.InitialCredits)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: r.now().UTC(),
		Ledger:    l,
		Content:   store.NewContentStore(),
		View:      view.NewCoordinator(),
		Controls:  generation.NewControls(),
		hub:       r.opts.Hub,
		webhooks:  r.opts.Webhooks.trimmed(),
	}
	s.Payments = payment.NewFlow(l, r.opts.PaymentDelay, r.onSettle(s))
	r.sessions[userID] = s
	r.opts.Logger.Info("studio_session_created", "session_id", s.ID, "user_id", userID, "balance", r.opts.InitialCredits)
	return s, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) onSettle(s *Session) payment.SettleFunc {
	return func(p model.PendingPayment, balance int64) {
		r.opts.Metrics.ObservePayment(string(p.State))
		r.opts.Logger.Info("payment_settled",
			"session_id", s.ID,
			"payment_id", p.ID,
			"state", p.State,
			"amount", p.Amount,
			"price_cents", p.PriceCents,
			"balance", balance,
		)
		s.emit(model.EventPaymentUpdated, map[string]any{"payment": p})
		if p.State == model.PaymentConfirmed {
			r.opts.Metrics.AddCreditsPurchased(p.Amount)
			s.emit(model.EventBalanceChanged, map[string]any{
				"balance": balance,
				"delta":   p.Amount,
				"reason":  "recharge",
			})
		}
	}
}
