package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/rankforge/rankforge/pkg/httputil"
	"github.com/rankforge/rankforge/pkg/observability"
)

// ActorHeader carries the caller identity resolved by the API gateway. The
// decision service trusts this header; it must never be reachable without the
// gateway in front.
const ActorHeader = "X-Rankforge-Actor"

// RequestIDHeader echoes the request id back to the caller
const RequestIDHeader = "X-Request-ID"

// Chain bundles the ambient middleware shared by every route
type Chain struct {
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewChain creates the ambient middleware chain
func NewChain(logger *observability.Logger, metrics *observability.Metrics) *Chain {
	return &Chain{logger: logger, metrics: metrics}
}

// RequestID assigns each request an id, honoring one supplied upstream, and
// attaches a request-scoped logger to the context.
func (c *Chain) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := observability.WithRequestID(r.Context(), requestID)
		ctx = observability.WithLogger(ctx, c.logger.WithField("request_id", requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Actor extracts the caller identity from the gateway header into the context
func (c *Chain) Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get(ActorHeader); actor != "" {
			r = r.WithContext(observability.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

// Recovery converts handler panics into 500 responses
func (c *Chain) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				observability.FromContext(r.Context()).
					WithField("panic", rec).
					WithField("path", r.URL.Path).
					Error("PANIC in HTTP handler")
				httputil.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Logging records the access log line and request metrics. The metric path
// label uses the mux route template, not the raw URL, to keep cardinality
// bounded.
func (c *Chain) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := routeTemplate(r)

		if c.metrics != nil {
			c.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
			c.metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration.Seconds())
		}

		observability.FromContext(r.Context()).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.status,
			"duration_ms": duration.Milliseconds(),
		}).Info("HTTP request")
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
