package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"studio/server/internal/auth"
	"studio/server/internal/events"
	"studio/server/internal/export"
	"studio/server/internal/generation"
	"studio/server/internal/provider"
	"studio/server/internal/publish"
	"studio/server/internal/store"
	"studio/server/internal/studio"
	"studio/server/internal/suggest"
	"studio/server/internal/textgen"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	demoEmail    = "demo@studio.local"
	demoPassword = "demo123456"
)

type fixture struct {
	router   http.Handler
	webhook  *httptest.Server
	calls    atomic.Int64
	block    chan struct{}
	sessions *studio.Registry
}

type fixtureOptions struct {
	credits    int64
	blockImage bool
}

func setupTestRouter(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{block: make(chan struct{})}

	f.webhook = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if opts.blockImage {
			<-f.block
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"url":"https://cdn.example.com/render.png"}`)
	}))
	t.Cleanup(f.webhook.Close)
	// runs before Close so a blocked handler can return
	t.Cleanup(func() { close(f.block) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore()
	authSvc := auth.NewService(st, "test-secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, authSvc.SeedDemoUser(demoEmail, demoPassword))

	hub := events.NewHub()
	f.sessions = studio.NewRegistry(studio.Options{
		InitialCredits: opts.credits,
		PaymentDelay:   0,
		Webhooks: studio.WebhookSettings{
			Image:   f.webhook.URL,
			Video:   f.webhook.URL,
			Publish: f.webhook.URL,
		},
		Hub:    hub,
		Logger: logger,
	})
	rotator, err := suggest.NewRotator(suggest.DefaultSchedule, suggest.Prompts)
	require.NoError(t, err)

	s := NewServer(Deps{
		Auth:        authSvc,
		Users:       st,
		Sessions:    f.sessions,
		Generations: generation.NewService(provider.NewWebhookAdapter(5*time.Second), textgen.Generator{}, hub, nil, logger),
		Publisher:   publish.NewService(0, 5*time.Second, nil, logger),
		Exporter:    export.NewExporter(5 * time.Second),
		Suggestions: rotator,
		Hub:         hub,
		CORSOrigins: []string{"https://studio.example.com"},
		Logger:      logger,
	})
	f.router = s.Router()
	return f
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	rec, env := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    demoEmail,
		"password": demoPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	return tokens.AccessToken
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestStudioRequiresAuth(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})
	rec, env := f.do(t, http.MethodGet, "/api/v1/credits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestBootstrap(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})
	token := f.login(t)

	rec, env := f.do(t, http.MethodGet, "/api/v1/client/bootstrap", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	boot := decode[struct {
		SessionID   string           `json:"session_id"`
		CreditCosts map[string]int64 `json:"credit_costs"`
		Packages    []struct {
			Amount       int64  `json:"amount"`
			PriceDisplay string `json:"price_display"`
		} `json:"packages"`
		Tabs []tabInfo `json:"tabs"`
	}](t, env)

	assert.NotEmpty(t, boot.SessionID)
	assert.Equal(t, map[string]int64{"image": 5, "video": 10, "text": 2}, boot.CreditCosts)
	require.Len(t, boot.Packages, 4)
	assert.Equal(t, int64(150), boot.Packages[1].Amount)
	assert.Equal(t, "$12", boot.Packages[1].PriceDisplay)
	assert.Len(t, boot.Tabs, 7)
}

func TestImageGenerationWithoutCreditsNeverCallsWebhook(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 4})
	token := f.login(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/generations/images?wait=1", token, map[string]any{"prompt": "un dragón"})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INSUFFICIENT_CREDITS", env.Error.Code)
	assert.Equal(t, "Necesitas al menos 5 créditos para generar una imagen", env.Error.Message)
	assert.EqualValues(t, 4, env.Error.Details["balance"])
	assert.Zero(t, f.calls.Load())

	rec, env = f.do(t, http.MethodGet, "/api/v1/credits", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decode[struct {
		Balance int64 `json:"balance"`
	}](t, env).Balance)
}

func TestImageGenerationSucceeds(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})
	token := f.login(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/generations/images?wait=1", token, map[string]any{"prompt": "un dragón"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	req := decode[struct {
		Status    string `json:"status"`
		ContentID int64  `json:"content_id"`
	}](t, env)
	assert.Equal(t, "succeeded", req.Status)
	assert.NotZero(t, req.ContentID)
	assert.EqualValues(t, 1, f.calls.Load())

	_, env = f.do(t, http.MethodGet, "/api/v1/content/stats", token, nil)
	stats := decode[studio.Counters](t, env)
	assert.EqualValues(t, 95, stats.Balance)
	assert.Equal(t, 1, stats.Images)

	rec, env = f.do(t, http.MethodGet, "/api/v1/content/"+strconv.FormatInt(req.ContentID, 10), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "https://cdn.example.com/render.png")
}

func TestEmptyPromptRejected(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})
	token := f.login(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/generations/videos", token, map[string]any{"prompt": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EMPTY_INPUT", env.Error.Code)
	assert.Zero(t, f.calls.Load())
}

func TestSecondImageWhileInFlightIsRefused(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100, blockImage: true})
	token := f.login(t)

	rec, _ := f.do(t, http.MethodPost, "/api/v1/generations/images", token, map[string]any{"prompt": "uno"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec, env := f.do(t, http.MethodPost, "/api/v1/generations/images", token, map[string]any{"prompt": "dos"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "REQUEST_IN_FLIGHT", env.Error.Code)

	// text runs independently of the image control
	rec, _ = f.do(t, http.MethodPost, "/api/v1/generations/texts?wait=1", token, map[string]any{"topic": "Marketing"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPackagePaymentCreditsBalance(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})
	token := f.login(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/payments", token, map[string]any{"amount": 150})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	opened := decode[paymentView](t, env)
	assert.Equal(t, "$12", opened.PriceDisplay)

	rec, env = f.do(t, http.MethodPost, "/api/v1/payments/current/confirm?wait=1", token, map[string]any{
		"number": "4242 4242 4242 4242",
		"name":   "Ada",
		"expiry": "12/30",
		"cvc":    "123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	settled := decode[struct {
		Payment paymentView `json:"payment"`
		Balance int64       `json:"balance"`
	}](t, env)
	assert.Equal(t, "confirmed", string(settled.Payment.State))
	assert.EqualValues(t, 250, settled.Balance)
}

func TestPaymentValidation(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})
	token := f.login(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/payments", token, map[string]any{"amount": 7, "custom": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)

	rec, _ = f.do(t, http.MethodPost, "/api/v1/payments", token, map[string]any{"amount": 75})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/api/v1/payments", token, map[string]any{"amount": int64(math.MaxInt64), "custom": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ABOVE_MAXIMUM", env.Error.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/v1/payments", token, map[string]any{"amount": 25, "custom": true})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/api/v1/payments/current/confirm", token, map[string]any{"number": "4242"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.ElementsMatch(t, []any{"name", "expiry", "cvc"}, env.Error.Details["fields"])

	rec, _ = f.do(t, http.MethodPost, "/api/v1/payments/current/cancel", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, env = f.do(t, http.MethodGet, "/api/v1/credits", token, nil)
	assert.EqualValues(t, 100, decode[struct {
		Balance int64 `json:"balance"`
	}](t, env).Balance)
}

func TestViewSelection(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})
	token := f.login(t)

	rec, env := f.do(t, http.MethodPut, "/api/v1/view", token, map[string]any{"tab": "gallery"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"gallery"`)

	rec, _ = f.do(t, http.MethodPut, "/api/v1/view", token, map[string]any{"tab": "settings-advanced"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, env = f.do(t, http.MethodGet, "/api/v1/view", token, nil)
	assert.Contains(t, string(env.Data), `"active_tab":"gallery"`)
}

func TestTextDownloadAndPublish(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})
	token := f.login(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/generations/texts?wait=1", token, map[string]any{
		"topic":    "Marketing",
		"platform": "twitter",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decode[struct {
		ContentID int64 `json:"content_id"`
	}](t, env).ContentID
	require.NotZero(t, id)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/"+strconv.FormatInt(id, 10)+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	dl := httptest.NewRecorder()
	f.router.ServeHTTP(dl, req)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "shadow-empire-text-")
	assert.True(t, strings.HasPrefix(dl.Body.String(), "🚀 Marketing"))

	rec, env = f.do(t, http.MethodPost, "/api/v1/publish", token, map[string]any{
		"content_id": id,
		"platforms":  []string{"twitter", "linkedin", "twitter"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[publish.Result](t, env)
	assert.Equal(t, 2, res.PlatformCount)
	assert.Equal(t, "Contenido publicado exitosamente en 2 plataforma(s)", res.Message)
	assert.EqualValues(t, 1, f.calls.Load())

	rec, env = f.do(t, http.MethodPost, "/api/v1/publish", token, map[string]any{"platforms": []string{"twitter"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
}

func TestContentFilter(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})
	token := f.login(t)

	rec, _ := f.do(t, http.MethodGet, "/api/v1/content?type=audio", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := f.do(t, http.MethodGet, "/api/v1/content?type=all", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"total":0}`, string(env.Data))
}

func TestCORSPreflight(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/generations/images", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://studio.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEventStreamReplaysBacklog(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 100})
	token := f.login(t)

	rec, _ := f.do(t, http.MethodPut, "/api/v1/view", token, map[string]any{"tab": "credits"})
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	stream := httptest.NewRecorder()
	f.router.ServeHTTP(stream, req)

	assert.Equal(t, "text/event-stream", stream.Header().Get("Content-Type"))
	body := stream.Body.String()
	assert.Contains(t, body, "id: 1\n")
	assert.Contains(t, body, "event: view_changed\n")
	assert.Contains(t, body, `"tab":"credits"`)
}

func TestLoginAndMeCarryStudio(t *testing.T) {
	f := setupTestRouter(t, fixtureOptions{credits: 40})

	rec, env := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    demoEmail,
		"password": demoPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[struct {
		AccessToken string     `json:"access_token"`
		User        userView   `json:"user"`
		Studio      studioView `json:"studio"`
	}](t, env)
	assert.Equal(t, demoEmail, login.User.Email)
	assert.NotEmpty(t, login.Studio.SessionID)
	assert.EqualValues(t, 40, login.Studio.Counters.Balance)
	assert.Equal(t, "dashboard", string(login.Studio.ActiveTab))
	assert.Equal(t, 1, f.sessions.Len())

	rec, _ = f.do(t, http.MethodPut, "/api/v1/view", login.AccessToken, map[string]any{"tab": "gallery"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodGet, "/api/v1/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[struct {
		User   userView   `json:"user"`
		Studio studioView `json:"studio"`
	}](t, env)
	assert.Equal(t, "active", me.User.Status)
	assert.Equal(t, login.Studio.SessionID, me.Studio.SessionID)
	assert.Equal(t, "gallery", string(me.Studio.ActiveTab))

	// a second login resumes the same studio
	f.login(t)
	assert.Equal(t, 1, f.sessions.Len())
}
