// Package http exposes the ledger over a small JSON API.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

const maxBodyBytes = 1 << 20

// Options tunes the server; zero values fall back to defaults.
type Options struct {
	RequestTimeout time.Duration

	// RateLimitPerMinute caps mutating requests per client. 0 disables it.
	RateLimitPerMinute int

	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
}

type Server struct {
	http.Server
	ledger  *services.LedgerService
	logger  *log.Logger
	tracer  *trace.Middleware
	limiter *ratelimit.Limiter
	ips     *security.ClientIPResolver
	now     func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.LedgerService, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	s := &Server{
		ledger: svc,
		logger: logger.WithComponent(log.ComponentHTTP),
		ips:    security.NewClientIPResolver(),
		now:    time.Now,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.ips.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	// Resolved once per request; the rate limiter reads it back via trace.ClientIP.
	s.tracer = trace.NewMiddleware(logger.Logger, s.ips.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/overview", s.handleOverview)
	mux.HandleFunc("GET /api/budget", s.handleBudget)
	mux.HandleFunc("GET /api/percentages", s.handlePercentages)
	mux.HandleFunc("POST /api/entries", s.handleCreateEntry)
	mux.HandleFunc("POST /api/entries/batch", s.handleCreateEntries)
	mux.HandleFunc("DELETE /api/entries/{element}", s.handleDeleteEntry)

	var handler http.Handler = http.TimeoutHandler(mux, opts.RequestTimeout, `{"error":"request timed out"}`)
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		handler = s.limiter.Middleware(trace.ClientIP, s.handleRateLimited,
			http.MethodPost, http.MethodDelete)(handler)
	}
	handler = log.RequestIDMiddleware(trace.GetRequestID)(handler)
	handler = log.Middleware(s.logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: opts.RequestTimeout,
		ReadTimeout:       opts.RequestTimeout,
		WriteTimeout:      2 * opts.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// handleMetrics writes request, rate limit and proxy counters in a
// Prometheus-like text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	var rm ratelimit.Metrics
	if s.limiter != nil {
		rm = s.limiter.GetMetrics()
	}
	snap := s.ledger.Snapshot(r.Context())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	writeMetric(w, "http_response_time_avg_microseconds", "gauge", "Mean response time", tm.AverageResponseTime)
	writeMetric(w, "rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rm.TotalHits)
	writeMetric(w, "rate_limit_active_clients", "gauge", "Clients tracked by the rate limiter", rm.ClientCount)
	writeMetric(w, "untrusted_forwarded_requests_total", "counter", "X-Forwarded-For from untrusted peers", s.ips.UntrustedForwards())
	writeMetric(w, "ledger_income_entries", "gauge", "Income entries in the ledger", int64(len(snap.Income)))
	writeMetric(w, "ledger_expense_entries", "gauge", "Expense entries in the ledger", int64(len(snap.Expense)))
}

func writeMetric(w io.Writer, name, kind, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, v)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
