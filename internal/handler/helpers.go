package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pitch-engagement-api/internal/middleware"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
)

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid id parameter")
	}
	return id, nil
}

// queryInt reads an optional integer parameter. Missing or non-numeric values yield 0 so
// the service applies its default.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func timedMeta(c *gin.Context, start time.Time, cacheHit bool) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}
