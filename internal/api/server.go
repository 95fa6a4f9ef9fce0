package api

import (
	"log/slog"
	"net/http"
	"slices"

	"studio/server/internal/auth"
	"studio/server/internal/events"
	"studio/server/internal/export"
	"studio/server/internal/generation"
	"studio/server/internal/metrics"
	"studio/server/internal/publish"
	"studio/server/internal/store"
	"studio/server/internal/studio"
	"studio/server/internal/suggest"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Auth        *auth.Service
	Users       *store.MemoryStore
	Sessions    *studio.Registry
	Generations *generation.Service
	Publisher   *publish.Service
	Exporter    *export.Exporter
	Suggestions *suggest.Rotator
	Hub         *events.Hub
	Metrics     *metrics.Recorder
	// Gatherer backs /metrics; nil leaves the endpoint unmounted.
	Gatherer  prometheus.Gatherer
	RateLimit RateLimitConfig
	// CORSOrigins lists allowed browser origins; "*" allows any, empty disables CORS.
	CORSOrigins []string
	Logger      *slog.Logger
}

type Server struct {
	auth        *auth.Service
	users       *store.MemoryStore
	sessions    *studio.Registry
	generations *generation.Service
	publisher   *publish.Service
	exporter    *export.Exporter
	suggestions *suggest.Rotator
	hub         *events.Hub
	metrics     *metrics.Recorder
	gatherer    prometheus.Gatherer
	limiter     *rateLimiter
	corsOrigins []string
	log         *slog.Logger
}

func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		auth:        d.Auth,
		users:       d.Users,
		sessions:    d.Sessions,
		generations: d.Generations,
		publisher:   d.Publisher,
		exporter:    d.Exporter,
		suggestions: d.Suggestions,
		hub:         d.Hub,
		metrics:     d.Metrics,
		gatherer:    d.Gatherer,
		limiter:     newRateLimiter(d.RateLimit),
		corsOrigins: d.CORSOrigins,
		log:         logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if len(s.corsOrigins) > 0 {
		r.Use(cors.New(corsConfig(s.corsOrigins)))
	}
	r.Use(TraceMiddleware())
	r.Use(RequestLogMiddleware(s.log, s.metrics))

	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/healthz", func(c *gin.Context) {
		writeData(c, http.StatusOK, gin.H{"status": "ok"})
	})

	v1.POST("/auth/login", s.login)
	v1.POST("/auth/refresh", s.refresh)

	authed := v1.Group("")
	authed.Use(AuthMiddleware(s.auth))
	{
		authed.POST("/auth/logout", s.logout)
		authed.GET("/me", s.me)
	}

	studioed := authed.Group("")
	studioed.Use(SessionMiddleware(s.sessions))
	{
		studioed.GET("/client/bootstrap", s.clientBootstrap)
		studioed.GET("/view", s.getView)
		studioed.PUT("/view", s.putView)
		studioed.GET("/dashboard", s.dashboard)

		studioed.GET("/credits", s.getCredits)
		studioed.GET("/credits/ledger", s.getLedger)
		studioed.GET("/credits/packages", s.getPackages)
		studioed.POST("/payments", s.openPayment)
		studioed.GET("/payments/current", s.currentPayment)
		studioed.POST("/payments/current/confirm", s.confirmPayment)
		studioed.POST("/payments/current/cancel", s.cancelPayment)

		studioed.GET("/settings/webhooks", s.getWebhooks)
		studioed.PUT("/settings/webhooks", s.putWebhooks)

		limited := RateLimitMiddleware(s.limiter)
		studioed.GET("/generations", s.listGenerators)
		studioed.POST("/generations/images", limited, s.generateImage)
		studioed.POST("/generations/videos", limited, s.generateVideo)
		studioed.POST("/generations/texts", limited, s.generateText)
		studioed.GET("/generations/:request_id", s.getGeneration)

		studioed.GET("/suggestions/image", s.imageSuggestion)

		studioed.GET("/content", s.listContent)
		studioed.GET("/content/stats", s.contentStats)
		studioed.GET("/content/:content_id", s.getContent)
		studioed.GET("/content/:content_id/download", s.downloadContent)

		studioed.GET("/publish/platforms", s.publishPlatforms)
		studioed.POST("/publish", s.publishContent)

		studioed.GET("/events", s.streamEvents)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Last-Event-ID", "X-Trace-Id"}
	cfg.ExposeHeaders = []string{"X-Trace-Id", "Content-Disposition", "Retry-After"}
	return cfg
}
