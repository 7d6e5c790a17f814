package requestid

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerName = "X-Request-ID"
	contextKey = "request_id"
)

// Middleware propagates the caller-supplied X-Request-ID, minting a fresh
// UUID when the header is absent, and echoes the ID on the response so
// clients can correlate logs.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerName))
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Header(headerName, id)

		c.Next()
	}
}

// Value returns the request ID bound to the context, or "" when missing.
func Value(c *gin.Context) string {
	if c == nil {
		return ""
	}
	raw, exists := c.Get(contextKey)
	if !exists {
		return ""
	}
	id, _ := raw.(string)
	return id
}
