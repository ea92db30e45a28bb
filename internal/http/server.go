package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgets/internal/cache"
	"budgets/internal/log"
	"budgets/internal/middleware/ratelimit"
	"budgets/internal/middleware/security"
	"budgets/internal/middleware/trace"
	"budgets/internal/services"
)

const (
	cacheSweepInterval = 10 * time.Minute
	readyTimeout       = 2 * time.Second
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the operations exposed over HTTP.
type Services struct {
	Ledger    *services.LedgerService
	Approvals *services.ApprovalService
	Reports   *services.ReportingService
	DB        Pinger
}

type Server struct {
	http.Server
	svc      Services
	logger   *log.Logger
	logs     *log.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	janitor  *cache.Janitor

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, limits ratelimit.Config, logger *log.Logger) *Server {
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:      svc,
		logger:   httpLogger,
		logs:     log.NewStructuredLogger(httpLogger),
		limiter:  ratelimit.NewLimiter(limits),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(httpLogger, s.detector.ExtractClientIP)

	s.janitor = cache.NewJanitor(func(removed int) {
		httpLogger.Debug("Cache cleanup completed", "entries_removed", removed)
	})
	if svc.Reports != nil {
		s.janitor.Register(svc.Reports.Cache())
	}
	s.janitor.Start(cacheSweepInterval)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /api/budgets/{id}", s.handleBudgetSummary)
	mux.HandleFunc("POST /api/budgets/{id}/archive", s.handleArchiveBudget)
	mux.HandleFunc("POST /api/budgets/{id}/categories", s.handleAddCategory)
	mux.HandleFunc("GET /api/budgets/{id}/expenses", s.handleListBudgetExpenses)

	mux.HandleFunc("PATCH /api/categories/{id}", s.handleUpdateAllocation)
	mux.HandleFunc("GET /api/categories/{id}/balance", s.handleCategoryBalance)
	mux.HandleFunc("GET /api/categories/{id}/expenses", s.handleListCategoryExpenses)
	mux.HandleFunc("POST /api/categories/{id}/expenses", s.handleCreateExpense)

	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("POST /api/expenses/{id}/status", s.handleTransition)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = s.withDetection(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(httpLogger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// withDetection logs requests that look like probes. They are still served.
func (s *Server) withDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.svc.DB.Ping(ctx); err != nil {
			s.logs.LogError(r.Context(), "Readiness check failed", err, log.OpRead, nil)
			ErrorResponse(http.StatusServiceUnavailable, "storage_unavailable", "database not reachable").Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
