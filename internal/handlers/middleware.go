package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lunara/internal/metrics"
	"lunara/internal/models"
	"lunara/internal/security"
	"lunara/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey   ContextKey = "user"
	CallerContextKey ContextKey = "caller"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	kidTokens   *security.KidTokens
	limiter     *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, kidTokens *security.KidTokens, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService: authService,
		kidTokens:   kidTokens,
		limiter:     limiter,
	}
}

// Authenticate resolves the parent session cookie and the kid session token
// into a Caller on the request context. Either may be absent. Invalid
// cookies are cleared and otherwise ignored.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var caller service.Caller
		ctx := r.Context()

		if cookie, err := r.Cookie(security.SessionCookie); err == nil && cookie.Value != "" {
			user, err := m.authService.ValidateSession(ctx, cookie.Value)
			if err != nil {
				slog.Debug("discarding parent session", "error", err)
				http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookie))
			} else {
				caller.UserID = user.ID
				ctx = context.WithValue(ctx, UserContextKey, user)
			}
		}

		if cookie, err := r.Cookie(security.KidSessionCookie); err == nil && cookie.Value != "" {
			claims, err := m.kidTokens.Verify(cookie.Value)
			if err != nil {
				slog.Debug("discarding kid session", "error", err)
				http.SetCookie(w, security.CreateDeleteCookie(r, security.KidSessionCookie))
			} else {
				caller.KidID = claims.KidID
				caller.FamilyID = claims.FamilyID
			}
		}

		ctx = context.WithValue(ctx, CallerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests without a parent session
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetCallerFromContext(r.Context()).IsParent() {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCaller rejects requests that carry neither a parent nor a kid
// session. Per-kid access is checked by the services.
func (m *Middleware) RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := GetCallerFromContext(r.Context())
		if !caller.IsParent() && caller.KidID == 0 {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondWithError(w, http.StatusTooManyRequests, ErrRateLimited, "", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Logging middleware logs HTTP requests and records their duration
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(duration.Seconds())

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", duration,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// GetUserFromContext retrieves the parent user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetCallerFromContext returns the caller set by Authenticate, or the zero
// Caller when there is none
func GetCallerFromContext(ctx context.Context) service.Caller {
	caller, _ := ctx.Value(CallerContextKey).(service.Caller)
	return caller
}
