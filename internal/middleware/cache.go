package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const gridMetaKey = "timetable_grid_meta"

// gridMeta is the envelope meta of a class timetable response.
type gridMeta struct {
	started  time.Time
	cacheHit *bool
}

// WithResponseMeta stamps the request start so grid responses can report
// whether they were served from cache and how long they took.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(gridMetaKey, &gridMeta{started: time.Now()})
		c.Next()
	}
}

// SetCacheHit records whether the class grid came from the redis cache.
func SetCacheHit(c *gin.Context, hit bool) {
	meta := lookupMeta(c)
	if meta == nil {
		meta = &gridMeta{}
		c.Set(gridMetaKey, meta)
	}
	meta.cacheHit = &hit
}

// ExtractMeta renders the recorded meta for the response envelope. It
// returns nil when nothing was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := lookupMeta(c)
	if meta == nil {
		return nil
	}
	out := make(map[string]interface{}, 2)
	if meta.cacheHit != nil {
		out["cache_hit"] = *meta.cacheHit
	}
	if !meta.started.IsZero() {
		out["processing_time_ms"] = time.Since(meta.started).Milliseconds()
	}
	return out
}

func lookupMeta(c *gin.Context) *gridMeta {
	if c == nil {
		return nil
	}
	value, ok := c.Get(gridMetaKey)
	if !ok {
		return nil
	}
	meta, _ := value.(*gridMeta)
	return meta
}
