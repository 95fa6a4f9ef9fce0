// Package studio owns the per-user studio sessions and the state they share
// across generators, checkout, gallery and publishing.
package studio

import (
	"strings"
	"sync"
	"time"

	"studio/server/internal/events"
	"studio/server/internal/generation"
	"studio/server/internal/ledger"
	"studio/server/internal/model"
	"studio/server/internal/payment"
	"studio/server/internal/store"
	"studio/server/internal/view"
)

type WebhookSettings struct {
	Image   string `json:"image_webhook_url"`
	Video   string `json:"video_webhook_url"`
	Publish string `json:"publish_webhook_url"`
}

func (w WebhookSettings) trimmed() WebhookSettings {
	return WebhookSettings{
		Image:   strings.TrimSpace(w.Image),
		Video:   strings.TrimSpace(w.Video),
		Publish: strings.TrimSpace(w.Publish),
	}
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	Ledger   *ledger.Ledger
	Content  *store.ContentStore
	View     *view.Coordinator
	Payments *payment.Flow
	Controls *generation.Controls

	hub *events.Hub

	mu       sync.RWMutex
	webhooks WebhookSettings
}

func (s *Session) Webhooks() WebhookSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.webhooks
}

func (s *Session) SetWebhooks(w WebhookSettings) WebhookSettings {
	w = w.trimmed()
	s.mu.Lock()
	s.webhooks = w
	s.mu.Unlock()
	return w
}

// Target binds a generation to this session with the endpoint configured
// for its variant.
func (s *Session) Target(v model.Variant) generation.Target {
	t := generation.Target{
		SessionID: s.ID,
		Ledger:    s.Ledger,
		Content:   s.Content,
		Controls:  s.Controls,
	}
	w := s.Webhooks()
	switch v {
	case model.VariantImage:
		t.Endpoint = w.Image
	case model.VariantVideo:
		t.Endpoint = w.Video
	}
	return t
}

func (s *Session) SelectTab(t view.Tab) (view.Tab, error) {
	changed, err := s.View.Select(t)
	if err != nil {
		return s.View.Active(), err
	}
	if changed {
		s.emit(model.EventViewChanged, map[string]any{"tab": t})
	}
	return t, nil
}

func (s *Session) emit(typ model.StudioEventType, payload map[string]any) {
	if s.hub == nil {
		return
	}
	s.hub.Emit(s.ID, typ, payload)
}

type QuickAction struct {
	ID          view.Tab `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

var QuickActions = []QuickAction{
	{ID: view.TabImages, Title: "Generar Imagen", Description: "Crea imágenes impresionantes con IA"},
	{ID: view.TabText, Title: "Crear Texto", Description: "Genera contenido persuasivo con IA"},
	{ID: view.TabSocial, Title: "Publicar en Redes", Description: "Comparte tu contenido en todas las plataformas"},
}

type Counters struct {
	Balance int64 `json:"balance"`
	Images  int   `json:"images"`
	Videos  int   `json:"videos"`
	Texts   int   `json:"texts"`
	Total   int   `json:"total"`
}

type Dashboard struct {
	ActiveTab    view.Tab                                  `json:"active_tab"`
	Counters     Counters                                  `json:"counters"`
	QuickActions []QuickAction                             `json:"quick_actions"`
	Generators   map[model.Variant]generation.ControlState `json:"generators"`
	Payment      model.PendingPayment                      `json:"payment"`
}

func (s *Session) Counters() Counters {
	return Counters{
		Balance: s.Ledger.Balance(),
		Images:  s.Content.CountByVariant(model.VariantImage),
		Videos:  s.Content.CountByVariant(model.VariantVideo),
		Texts:   s.Content.CountByVariant(model.VariantText),
		Total:   s.Content.Len(),
	}
}

func (s *Session) Dashboard() Dashboard {
	return Dashboard{
		ActiveTab:    s.View.Active(),
		Counters:     s.Counters(),
		QuickActions: QuickActions,
		Generators:   s.Controls.Snapshot(),
		Payment:      s.Payments.Current(),
	}
}
