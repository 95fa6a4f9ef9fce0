package studio

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"studio/server/internal/events"
	"studio/server/internal/model"
	"studio/server/internal/payment"
	"studio/server/internal/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(hub *events.Hub) *Registry {
	return NewRegistry(Options{
		InitialCredits: 100,
		Webhooks:       WebhookSettings{Image: " https://hooks.test/image "},
		Hub:            hub,
		Logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
}

func TestForUserIsStable(t *testing.T) {
	r := newRegistry(nil)
	a, err := r.ForUser("u1")
	require.NoError(t, err)
	b, err := r.ForUser("u1")
	require.NoError(t, err)
	c, err := r.ForUser("u2")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, int64(100), a.Ledger.Balance())
	assert.Equal(t, view.TabDashboard, a.View.Active())
}

func TestTargetUsesVariantEndpoint(t *testing.T) {
	r := newRegistry(nil)
	s, err := r.ForUser("u1")
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.test/image", s.Target(model.VariantImage).Endpoint)
	assert.Equal(t, "", s.Target(model.VariantVideo).Endpoint)

	s.SetWebhooks(WebhookSettings{Video: "https://hooks.test/video"})
	assert.Equal(t, "https://hooks.test/video", s.Target(model.VariantVideo).Endpoint)
	assert.Equal(t, "", s.Target(model.VariantImage).Endpoint)
	assert.Same(t, s.Ledger, s.Target(model.VariantText).Ledger)
}

func TestSelectTabKeepsSessionState(t *testing.T) {
	hub := events.NewHub()
	r := newRegistry(hub)
	s, err := r.ForUser("u1")
	require.NoError(t, err)
	_, err = s.Ledger.Debit(5, "x")
	require.NoError(t, err)
	s.Content.Append(model.NewMediaItem(1, model.VariantImage, "u", "p", time.Now()))

	tab, err := s.SelectTab(view.TabGallery)
	require.NoError(t, err)
	assert.Equal(t, view.TabGallery, tab)
	_, err = s.SelectTab("nope")
	assert.ErrorIs(t, err, view.ErrUnknownTab)

	assert.Equal(t, int64(95), s.Ledger.Balance())
	assert.Equal(t, 1, s.Content.Len())
	evts := hub.Since(s.ID, 0)
	require.Len(t, evts, 1)
	assert.Equal(t, model.EventViewChanged, evts[0].Type)
}

func TestDashboardCounters(t *testing.T) {
	r := newRegistry(nil)
	s, err := r.ForUser("u1")
	require.NoError(t, err)
	now := time.Now()
	s.Content.Append(model.NewMediaItem(1, model.VariantImage, "u", "p", now))
	s.Content.Append(model.NewMediaItem(2, model.VariantVideo, "u", "p", now))
	s.Content.Append(model.NewTextItem(3, "c", "t", "blog", "casual", now))
	s.Content.Append(model.NewTextItem(4, "c", "t", "blog", "casual", now))

	d := s.Dashboard()
	assert.Equal(t, Counters{Balance: 100, Images: 1, Videos: 1, Texts: 2, Total: 4}, d.Counters)
	assert.Len(t, d.QuickActions, 3)
	assert.Equal(t, model.PaymentClosed, d.Payment.State)
	assert.Equal(t, model.RequestIdle, d.Generators[model.VariantImage].Status)
}

func TestConfirmedPaymentEmitsBalance(t *testing.T) {
	hub := events.NewHub()
	r := newRegistry(hub)
	s, err := r.ForUser("u1")
	require.NoError(t, err)

	_, err = s.Payments.OpenPackage(150)
	require.NoError(t, err)
	_, err = s.Payments.Confirm(payment.Card{Number: "4242", Name: "Ana", Expiry: "12/30", CVC: "123"})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	p, err := s.Payments.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentConfirmed, p.State)
	assert.Equal(t, int64(250), s.Ledger.Balance())
	assert.Equal(t, 0, s.Content.Len())

	assert.Eventually(t, func() bool {
		for _, evt := range hub.Since(s.ID, 0) {
			if evt.Type == model.EventBalanceChanged {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}
