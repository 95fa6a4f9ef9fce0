// Package payment simulates the card checkout that recharges a session's
// ledger.
package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"studio/server/internal/ledger"
	"studio/server/internal/model"

	"github.com/google/uuid"
)

var (
	ErrUnknownPackage    = errors.New("unknown package")
	ErrBelowMinimum      = errors.New("custom amount below minimum")
	ErrAboveMaximum      = errors.New("custom amount above maximum")
	ErrNoPendingPayment  = errors.New("no pending payment")
	ErrPaymentInProgress = errors.New("payment in progress")
	ErrValidationFailure = errors.New("card validation failed")
)

const DefaultDelay = 1500 * time.Millisecond

type Card struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	Expiry string `json:"expiry"`
	CVC    string `json:"cvc"`
}

// Sanitize applies the same filtering the checkout form enforces on input.
func (c Card) Sanitize() Card {
	return Card{
		Number: keep(c.Number, "0123456789 ", 19),
		Name:   c.Name,
		Expiry: keep(c.Expiry, "0123456789/", 5),
		CVC:    keep(c.CVC, "0123456789", 4),
	}
}

// MissingFields lists the fields that are blank after sanitising.
func (c Card) MissingFields() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"number", c.Number},
		{"name", c.Name},
		{"expiry", c.Expiry},
		{"cvc", c.CVC},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func keep(s, allowed string, limit int) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == limit {
			break
		}
		if strings.ContainsRune(allowed, r) {
			b.WriteRune(r)
			n++
		}
	}
	return b.String()
}

// SettleFunc observes every payment leaving the flow. balance is the ledger
// balance after the settlement.
type SettleFunc func(p model.PendingPayment, balance int64)

// Flow is the per-session checkout: closed -> open -> processing ->
// confirmed -> closed, with cancel from open or processing.
type Flow struct {
	ledger   *ledger.Ledger
	delay    time.Duration
	onSettle SettleFunc
	now      func() time.Time

	mu      sync.Mutex
	pending *model.PendingPayment
	timer   *time.Timer
	done    chan struct{}
	last    *model.PendingPayment
}

func NewFlow(l *ledger.Ledger, delay time.Duration, onSettle SettleFunc) *Flow {
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Flow{ledger: l, delay: delay, onSettle: onSettle, now: time.Now}
}

func (f *Flow) OpenPackage(amount int64) (model.PendingPayment, error) {
	pkg, ok := PackageFor(amount)
	if !ok {
		return model.PendingPayment{}, ErrUnknownPackage
	}
	return f.open(pkg.Amount, pkg.PriceCents, false)
}

func (f *Flow) OpenCustom(amount int64) (model.PendingPayment, error) {
	if amount < MinCustomAmount {
		return model.PendingPayment{}, ErrBelowMinimum
	}
	if amount > MaxCustomAmount {
		return model.PendingPayment{}, ErrAboveMaximum
	}
	return f.open(amount, CustomPrice(amount), true)
}

// open replaces any offer that is still awaiting card details.
func (f *Flow) open(amount, priceCents int64, custom bool) (model.PendingPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending != nil && f.pending.State == model.PaymentProcessing {
		return model.PendingPayment{}, ErrPaymentInProgress
	}
	f.pending = &model.PendingPayment{
		ID:         uuid.NewString(),
		Amount:     amount,
		PriceCents: priceCents,
		Custom:     custom,
		State:      model.PaymentOpen,
		OpenedAt:   f.now().UTC(),
	}
	return *f.pending, nil
}

// Current returns the pending payment, or a closed placeholder.
func (f *Flow) Current() model.PendingPayment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return model.PendingPayment{State: model.PaymentClosed}
	}
	return *f.pending
}

// Confirm validates the card and starts processing. The ledger is credited
// when the processing delay elapses.
func (f *Flow) Confirm(card Card) (model.PendingPayment, error) {
	card = card.Sanitize()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return model.PendingPayment{}, ErrNoPendingPayment
	}
	if f.pending.State == model.PaymentProcessing {
		return model.PendingPayment{}, ErrPaymentInProgress
	}
	if missing := card.MissingFields(); len(missing) > 0 {
		return model.PendingPayment{}, &ValidationError{Fields: missing}
	}
	f.pending.State = model.PaymentProcessing
	f.done = make(chan struct{})
	id := f.pending.ID
	f.timer = time.AfterFunc(f.delay, func() { f.settle(id) })
	return *f.pending, nil
}

func (f *Flow) settle(id string) {
	f.mu.Lock()
	if f.pending == nil || f.pending.ID != id || f.pending.State != model.PaymentProcessing {
		f.mu.Unlock()
		return
	}
	p := *f.pending
	balance, err := f.ledger.Credit(p.Amount, "payment:"+p.ID)
	if err != nil {
		// amounts are bounded on open; Credit fails only on overflow
		p.State = model.PaymentCancelled
	} else {
		p.State = model.PaymentConfirmed
	}
	p.SettledAt = f.now().UTC()
	f.finishLocked(p)
	f.mu.Unlock()

	if f.onSettle != nil {
		f.onSettle(p, balance)
	}
}

// Cancel abandons the pending payment without touching the ledger.
func (f *Flow) Cancel() (model.PendingPayment, error) {
	f.mu.Lock()
	if f.pending == nil {
		f.mu.Unlock()
		return model.PendingPayment{}, ErrNoPendingPayment
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	p := *f.pending
	p.State = model.PaymentCancelled
	p.SettledAt = f.now().UTC()
	f.finishLocked(p)
	f.mu.Unlock()

	if f.onSettle != nil {
		f.onSettle(p, f.ledger.Balance())
	}
	return p, nil
}

func (f *Flow) finishLocked(p model.PendingPayment) {
	f.pending = nil
	f.timer = nil
	f.last = &p
	if f.done != nil {
		close(f.done)
		f.done = nil
	}
}

// Wait blocks until the payment being processed settles and returns it. With
// nothing processing it returns the last settled payment.
func (f *Flow) Wait(ctx context.Context) (model.PendingPayment, error) {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return model.PendingPayment{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return model.PendingPayment{}, ErrNoPendingPayment
	}
	return *f.last, nil
}

// ValidationError names the card fields that failed; it matches
// ErrValidationFailure.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "card validation failed: missing " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailure
}
