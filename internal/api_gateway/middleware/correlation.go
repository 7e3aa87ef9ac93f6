package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/logger"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	// RequestIDHeader is accepted when a till sends no correlation id
	RequestIDHeader = "X-Request-ID"

	// CorrelationIDKey is the gin context key holding the id
	CorrelationIDKey = "correlation_id"

	maxCorrelationIDLength = 128
)

// CorrelationID gives each request an id for tracing. The id is also put on the
// request context, where the posting engine stamps it on journal entries and the
// event producer copies it into message headers.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := incomingID(c)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(logger.WithCorrelationID(c.Request.Context(), correlationID))

		c.Next()
	}
}

// incomingID returns the caller's id when it is safe to log and store
func incomingID(c *gin.Context) string {
	for _, header := range []string{CorrelationIDHeader, RequestIDHeader} {
		id := c.GetHeader(header)
		if id != "" && validID(id) {
			return id
		}
	}
	return ""
}

func validID(id string) bool {
	if len(id) > maxCorrelationIDLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// GetCorrelationID returns the request's id, or "" outside the middleware
func GetCorrelationID(c *gin.Context) string {
	if id := c.GetString(CorrelationIDKey); id != "" {
		return id
	}
	if c.Request != nil {
		return logger.CorrelationID(c.Request.Context())
	}
	return ""
}
