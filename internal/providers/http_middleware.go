package providers

import (
	"context"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"instametrics/internal/models"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	claimsKey    contextKey = "claims"

	RequestIDHeader = "X-Request-ID"
)

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*models.Claims)
	return claims, ok && claims != nil
}

func ContextWithClaims(ctx context.Context, claims *models.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a new one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func AccessLogMiddleware(logger Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Infof(GetLogTypeByRequestType(r.Method), "%s %s %d %s request_id=%s",
			r.Method, r.URL.Path, sw.status, time.Since(start), RequestIDFromContext(r.Context()))
	})
}

// CORSMiddleware allows any origin; the API is bearer-token authenticated.
func CORSMiddleware(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         3600,
	}).Handler(next)
}

// RateLimitByIP limits requests per client IP inside a one minute window.
func RateLimitByIP(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			WriteFailure(w, http.StatusTooManyRequests, "too many requests")
		}),
	)
}

type TokenValidator interface {
	Validate(ctx context.Context, token string) (*models.Claims, error)
}

type AuthMiddleware struct {
	validator TokenValidator
	logger    Logger
}

func NewAuthMiddleware(validator TokenValidator, logger Logger) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, logger: logger}
}

func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			WriteFailure(w, http.StatusUnauthorized, "authorization header required, use: Bearer <token>")
			return
		}

		claims, err := m.validator.Validate(r.Context(), token)
		if err != nil {
			m.logger.Debugf(GetLogTypeByRequestType(r.Method), "rejected token on %s: %s", r.URL.Path, err)
			WriteFailure(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}
