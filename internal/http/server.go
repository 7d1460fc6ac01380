package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecomdash/internal/core"
	applog "ecomdash/internal/log"
	"ecomdash/internal/middleware/ratelimit"
	"ecomdash/internal/middleware/security"
	appweb "ecomdash/web"
)

// Renderer produces a report for a filter. It never fails; failed panels are
// marked inside the report.
type Renderer interface {
	Render(ctx context.Context, f core.Filter) core.Report
}

// QueryCache is the explicit invalidation hook of the result cache.
type QueryCache interface {
	Purge()
	Size() int
}

// Options are the server's collaborators.
type Options struct {
	Dashboard Renderer
	Cache     QueryCache
	// Ready checks the database; nil means always ready.
	Ready          func(ctx context.Context) error
	Formatter      core.Formatter
	Logger         *applog.Logger
	AllowedOrigins []string
	PurgePerMinute int
}

type Server struct {
	http.Server
	opts      Options
	templates *template.Template
	limiter   *ratelimit.Limiter
	now       func() time.Time
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		opts:    opts,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.PurgePerMinute}),
		now:     time.Now,
		started: time.Now(),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(template.FuncMap{
		"refreshLabel": refreshLabel,
		"query":        queryString,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "component", applog.ComponentHTTP, "error", err)
	} else {
		s.templates = t
	}

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(applog.Middleware(s.opts.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		slog.Warn("Failed to mount embedded static FS", "component", applog.ComponentHTTP, "error", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(security.Headers(security.DefaultHeadersConfig()))
		r.Use(security.NoStore)
		r.Get("/", s.handleDashboard)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Use(security.NoStore)
		r.Get("/dashboard", s.handleDashboardJSON)
		r.With(s.limiter.Middleware(clientIP, s.rateLimited)).Post("/cache/purge", s.handlePurge)
	})

	return r
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
