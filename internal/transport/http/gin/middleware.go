package httpgin

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kirinyoku/venue-go/internal/domain"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	requestIDHeader   = "X-Request-ID"
	idempotencyHeader = "Idempotency-Key"

	actorKey     = "actor"
	requestIDKey = "request_id"
)

// RequestIDMiddleware propagates X-Request-ID, minting a v7 uuid when the
// caller sent none.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			v, err := uuid.NewV7()
			if err != nil {
				v = uuid.New()
			}
			id = v.String()
		}

		c.Header(requestIDHeader, id)
		c.Set(requestIDKey, id)
		c.Next()
	}
}

// IdentityFromHeaders reads the caller identity set by the upstream token
// verifier. Requests without a valid user id are rejected with 401.
func IdentityFromHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader(HeaderUserID)), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
			return
		}

		role := domain.RoleUser
		if strings.EqualFold(strings.TrimSpace(c.GetHeader(HeaderUserRole)), string(domain.RoleAdmin)) {
			role = domain.RoleAdmin
		}

		c.Set(actorKey, domain.Actor{UserID: id, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	v, _ := c.Get(actorKey)
	a, _ := v.(domain.Actor)
	return a
}

// CORS allows the given origins, or any origin when the list is empty or
// contains "*".
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			requestIDHeader, HeaderUserID, HeaderUserRole,
			idempotencyHeader, "If-None-Match",
		},
		ExposeHeaders: []string{requestIDHeader, "ETag", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}

// LoggingMiddleware writes one record per request. Server errors log at
// error level and client errors at warn.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.String("path", c.Request.URL.Path),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.Duration("latency", time.Since(start)),
		}
		if a := actorFrom(c); a.UserID != 0 {
			attrs = append(attrs, slog.Int64("user_id", a.UserID), slog.String("role", string(a.Role)))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		logger.LogAttrs(c.Request.Context(), level, "http request", attrs...)
	}
}
