package middleware

import (
	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// ResponseMeta prepares a per-request meta map that handlers fill before they write the
// envelope.
func ResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// MarkCached records whether the response was served from cache.
func MarkCached(c *gin.Context, cached bool) {
	Meta(c)["cached"] = cached
}

// Meta returns the request's meta map, creating it when ResponseMeta did not run.
func Meta(c *gin.Context) map[string]interface{} {
	if value, ok := c.Get(responseMetaKey); ok {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := map[string]interface{}{}
	c.Set(responseMetaKey, meta)
	return meta
}
