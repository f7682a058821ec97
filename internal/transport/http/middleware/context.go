package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/social-platform-trust/internal/infra/logger"
)

const (
	// TraceIDHeader carries the trace identifier across services.
	TraceIDHeader = "X-Trace-ID"
	// RequestIDHeader carries the per-request correlation identifier.
	RequestIDHeader = "X-Request-ID"
	// TraceIDKey is the gin context key for the trace identifier.
	TraceIDKey = "trace_id"
	// RequestIDKey is the gin context key for the request identifier.
	RequestIDKey = "request_id"
	// UserIDKey is the gin context key for the authenticated user.
	UserIDKey = "user_id"
)

// EnrichContext assigns trace and request identifiers, echoes them in response headers
// and stores them on the request context for logger.WithContext.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Set(RequestIDKey, requestID)
		c.Header(TraceIDHeader, traceID)
		c.Header(RequestIDHeader, requestID)

		ctx := context.WithValue(c.Request.Context(), logger.TraceIDKey{}, traceID)
		ctx = context.WithValue(ctx, logger.RequestIDKey{}, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
