// Package http serves the dashboard, the transaction form and the JSON API.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/dashboard"
	"fintrack/internal/log"
	"fintrack/internal/middleware/identity"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/ports"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

const (
	readinessTimeout = 2 * time.Second
	staticMaxAge     = 3600
)

// Options configures a Server. Zero values select sensible defaults.
type Options struct {
	Addr      string
	Identity  identity.Config
	RateLimit ratelimit.Config
	Logger    *log.Logger
}

type Server struct {
	http.Server
	templates    *template.Template
	dashboard    *dashboard.Service
	transactions *services.TransactionService
	store        ports.Pinger
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options, dash *dashboard.Service, tx *services.TransactionService, store ports.Pinger) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default(log.ComponentHTTP)
	}
	if opts.RateLimit.RequestsPerMinute <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}

	s := &Server{
		dashboard:    dash,
		transactions: tx,
		store:        store,
		limiter:      ratelimit.NewLimiter(opts.RateLimit),
		detector:     security.NewDetector(),
		tracer:       trace.NewMiddleware(),
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
	}
	t, err := parseTemplates()
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(log.RequestLogger(s.logger, trace.GetRequestID, s.detector.ClientIP))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(staticMaxAge)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ClientIP, s.onRateLimited))
		r.Use(identity.Middleware(opts.Identity, s.onMissingUser))
		r.Use(security.NoStore)
		r.Use(middleware.Compress(5))

		r.Get("/", s.handleDashboard)
		r.Get("/dashboard.json", s.handleDashboardJSON)
		r.Get("/transactions/new", s.handleNewTransaction)
		r.Post("/transactions", s.handleCreateTransaction)

		r.Route("/api", func(r chi.Router) {
			r.Get("/summary", s.handleAPISummary)
			r.Get("/transactions", s.handleAPIList)
			r.Get("/transactions/{kind}", s.handleAPIListByKind)
		})
	})

	return r
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()

		tm := s.tracer.GetMetrics()
		rm := s.limiter.GetMetrics()
		dm := s.detector.GetMetrics()
		s.logger.Info("HTTP server shutting down",
			log.FieldOperation, log.OpShutdown,
			"total_requests", tm.TotalRequests,
			"avg_response_ms", tm.AverageResponseTime.Milliseconds(),
			"rate_limited", rm.Rejected,
			"suspicious_requests", dm.SuspiciousRequests,
			"blocked_requests", dm.BlockedRequests)

		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
