/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, copied onto the log line
  2. Logging:    One JSON log line per request (logging.Middleware)
  3. Metrics:    Request count and latency per route pattern
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the wallet frontend
  6. RateLimit:  Per-client token bucket on /api

ROUTE GROUPS:
  /api/status               Health
  /api/sessions/*           Wallet sessions and ledger commands
  /api/rewards, /api/promos Catalog
  /metrics                  Prometheus exposition

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/pointflow/serve.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/warp/pointflow/logging"
	"github.com/warp/pointflow/metrics"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	RateLimit      RateLimit
	Metrics        *metrics.Metrics
	Logger         logrus.FieldLogger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger))
	r.Use(metricsMiddleware(opts.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	limiter := NewRateLimiter(opts.RateLimit)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Get("/status", h.Status)

		// Catalog routes
		r.Get("/rewards", h.ListRewards)
		r.Get("/promos", h.ListPromos)

		// Session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.Connect)

			r.Route("/{wallet}", func(r chi.Router) {
				r.Delete("/", h.Disconnect)
				r.Get("/balance", h.GetBalance)
				r.Get("/transactions", h.GetTransactions)

				r.Post("/scan", h.Scan)
				r.Post("/send", h.Send)
				r.Post("/receive", h.Receive)
				r.Post("/swap", h.Swap)
				r.Post("/promos/{id}/redeem", h.RedeemPromo)

				r.Route("/redemptions", func(r chi.Router) {
					r.Post("/", h.BeginRedemption)
					r.Get("/{id}", h.GetRedemption)
					r.Delete("/{id}", h.CancelRedemption)
					r.Post("/{id}/complete", h.CompleteRedemption)
				})
			})
		})
	})

	return r
}

func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			m.Request(r.Method+" "+logging.RoutePattern(r), ww.Status(), time.Since(start))
		})
	}
}
