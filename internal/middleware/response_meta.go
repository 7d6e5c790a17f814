package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const metaContextKey = "insights_response_meta"

// WithResponseMeta seeds a per-request metadata map that handlers enrich and
// response.JSON serialises into the envelope. Handlers that time their own
// service call overwrite processing_time_ms; for everything else the
// middleware fills it in on the way out.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Set(metaContextKey, map[string]interface{}{})
		c.Next()

		meta := metaFor(c)
		if _, recorded := meta["processing_time_ms"]; !recorded {
			meta["processing_time_ms"] = time.Since(started).Milliseconds()
		}
	}
}

// SetCacheHit marks whether the response payload was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFor(c)["cache_hit"] = hit
}

// ExtractMeta returns the request's metadata map, or nil when the middleware
// is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, exists := c.Get(metaContextKey)
	if !exists {
		return nil
	}
	meta, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	return meta
}

func metaFor(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	if c != nil {
		c.Set(metaContextKey, meta)
	}
	return meta
}
