package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/noah-isme/oilprice-ni/internal/alert"
	"github.com/noah-isme/oilprice-ni/internal/common"
	"github.com/noah-isme/oilprice-ni/internal/health"
	"github.com/noah-isme/oilprice-ni/internal/obs"
	"github.com/noah-isme/oilprice-ni/internal/quote"
	"github.com/noah-isme/oilprice-ni/internal/security"
	"github.com/noah-isme/oilprice-ni/internal/supplier"
)

// Middleware is the chi middleware signature.
type Middleware = func(http.Handler) http.Handler

// Routes lists the handlers and middleware mounted by NewRouter. Nil
// middleware and nil handlers are skipped.
type Routes struct {
	Logger         zerolog.Logger
	HTTPMetrics    *obs.HTTPMetrics
	Tracing        bool
	CORSOrigins    []string
	Headers        security.Headers
	MaxBodyBytes   int64
	ReadLimit      Middleware
	AlertLimit     Middleware
	MetricsHandler http.Handler

	Health    health.Handler
	Quotes    *quote.Handler
	Suppliers *supplier.Handler
	Alerts    *alert.Handler
}

// NewRouter builds the public API router.
func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if rt.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if rt.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: rt.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: rt.Logger}.Middleware)
	r.Use(rt.Headers.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(rt.CORSOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.BodyLimit{Max: rt.MaxBodyBytes}.Middleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Get("/health/live", rt.Health.Live)
	r.Get("/health/ready", rt.Health.Ready)
	if rt.MetricsHandler != nil {
		r.Handle("/metrics", rt.MetricsHandler)
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Group(func(read chi.Router) {
			if rt.ReadLimit != nil {
				read.Use(rt.ReadLimit)
			}
			if rt.Quotes != nil {
				read.Get("/quotes", rt.Quotes.Compare)
				read.Get("/pricing/project", rt.Quotes.Project)
				read.Get("/pricing/savings", rt.Quotes.Savings)
			}
			if rt.Suppliers != nil {
				read.Get("/suppliers", rt.Suppliers.List)
				read.Get("/suppliers/{slug}", rt.Suppliers.Get)
			}
		})
		if rt.Alerts != nil {
			v.Group(func(write chi.Router) {
				if rt.AlertLimit != nil {
					write.Use(rt.AlertLimit)
				}
				write.Post("/alerts", rt.Alerts.Create)
			})
		}
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
