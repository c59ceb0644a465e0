// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an id, carries it and the session
// id in the request context and logs the outcome on the system channel
func RequestLogger(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		ctx := context.WithValue(c.Request.Context(), logging.ContextKeyRequestID, requestID)
		if sessionID := c.Param("id"); sessionID != "" && strings.HasPrefix(c.FullPath(), "/api/v1/sessions/:id") {
			ctx = context.WithValue(ctx, logging.ContextKeySession, sessionID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		log := logger.WithContext(logging.ChannelSystem, c.Request.Context())
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		}
		switch {
		case status >= http.StatusInternalServerError:
			if len(c.Errors) > 0 {
				attrs = append(attrs, "error", c.Errors.String())
			}
			log.Warn("Request failed", attrs...)
		default:
			log.Debug("Request completed", attrs...)
		}
	}
}
