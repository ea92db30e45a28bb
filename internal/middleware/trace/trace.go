package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"budgets/internal/log"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

type contextKey struct{}

// Middleware assigns a request id, scopes the request logger to it and logs
// request completion.
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.StructuredLogger
	total     int64
}

func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		logger:    log.NewStructuredLogger(logger),
	}
}

// Middleware returns HTTP middleware for request tracing. A well-formed
// incoming X-Request-ID is kept, anything else is replaced by a fresh UUID.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&m.total, 1)

		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		ctx := context.WithValue(r.Context(), contextKey{}, requestID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.logger.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestID extracts the request ID from context
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// TotalRequests returns how many requests passed through the middleware.
func (m *Middleware) TotalRequests() int64 {
	return atomic.LoadInt64(&m.total)
}
