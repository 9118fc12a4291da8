// Package router wires HTTP routes and the shared middleware chain for both
// services.
package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sellergrid/service-core-go/internal/catalog"
	"github.com/sellergrid/service-core-go/internal/identity"
	"github.com/sellergrid/service-core-go/internal/token"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level using the provided sugared
// logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func chain(mux http.Handler, logger *zap.SugaredLogger, limiter *RateLimiter, metrics *Metrics) http.Handler {
	h := mux
	h = SecurityHeadersMiddleware()(h)
	if limiter != nil {
		h = limiter.Middleware()(h)
	}
	if metrics != nil {
		h = metrics.Middleware()(h)
	}
	h = LoggingMiddleware(logger)(h)
	return h
}

func health(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// RegisterIdentityRoutes mounts the identity service endpoints.
func RegisterIdentityRoutes(h *identity.Handler, tokens *token.Service, logger *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()
	health(mux)

	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("GET /auth/confirm-email", h.ConfirmEmail)
	mux.HandleFunc("POST /auth/forgot-password", h.ForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", h.ResetPassword)

	// administrative user CRUD sits behind a session
	auth := RequireSession(tokens)
	mux.Handle("GET /users", auth(http.HandlerFunc(h.ListUsers)))
	mux.Handle("GET /users/{id}", auth(http.HandlerFunc(h.GetUser)))
	mux.Handle("POST /users", auth(http.HandlerFunc(h.CreateUser)))
	mux.Handle("PUT /users/{id}", auth(http.HandlerFunc(h.UpdateUser)))
	mux.Handle("DELETE /users/{id}", auth(http.HandlerFunc(h.DeleteUser)))

	metrics := NewMetrics("identity")
	mux.Handle("GET /metrics", metrics.Handler())

	return chain(mux, logger, NewRateLimiter(DefaultRateLimit()), metrics)
}

// RegisterCatalogRoutes mounts the catalog service endpoints. Mutations
// require a valid session token issued by the identity service.
func RegisterCatalogRoutes(h *catalog.Handler, tokens *token.Service, logger *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()
	health(mux)

	mux.HandleFunc("GET /products", h.List)
	mux.HandleFunc("GET /products/{id}", h.Get)
	mux.HandleFunc("GET /products/owner/{ownerId}", h.ListByOwner)

	auth := RequireSession(tokens)
	mux.Handle("POST /products", auth(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /products/{id}", auth(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /products/{id}", auth(http.HandlerFunc(h.Delete)))

	metrics := NewMetrics("catalog")
	mux.Handle("GET /metrics", metrics.Handler())

	return chain(mux, logger, NewRateLimiter(DefaultRateLimit()), metrics)
}
