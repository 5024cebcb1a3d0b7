package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shortlink/internal/apperr"
	"shortlink/internal/auth"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
)

// RequestID tags every request with an id, reusing a sane incoming one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs one line per request.
func AccessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// RequireAuth rejects requests without a valid bearer token with 401.
func RequireAuth(v *auth.Verifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := v.Verify(auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			logger.DebugContext(c.Request.Context(), "authentication failed", "error", err, "path", c.FullPath())
			c.AbortWithStatusJSON(apperr.HTTPStatus(apperr.ErrUnauthorized), apperr.ErrUnauthorized)
			return
		}
		c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// OptionalAuth attaches the caller identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(v *auth.Verifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token != "" {
			userID, err := v.Verify(token)
			if err != nil {
				logger.DebugContext(c.Request.Context(), "ignoring invalid token", "error", err)
			} else {
				c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), userID))
			}
		}
		c.Next()
	}
}
