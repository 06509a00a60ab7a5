package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go-leave/internal/shared/response"
)

// Idempotency replays the cached response for a repeated POST carrying
// the same Idempotency-Key, and rejects a duplicate that arrives while
// the first attempt is still in flight.
func Idempotency(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempKey := c.GetHeader("Idempotency-Key")
		userID := c.GetString("user_id_validated")

		if idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		cacheKey := fmt.Sprintf("idemp:%s:%s:%s", c.FullPath(), userID, idempKey)
		lockKey := cacheKey + ":lock"

		// Replay matches the envelope the first response used.
		val, err := rdb.Get(c.Request.Context(), cacheKey).Result()
		if err == nil {
			c.AbortWithStatusJSON(http.StatusOK, response.ApiEnvelope{
				Ok:   true,
				Data: json.RawMessage(val),
			})
			return
		}

		// Short-lived lock so a crashed attempt cannot wedge the key.
		isNew, _ := rdb.SetNX(c.Request.Context(), lockKey, "locked", 30*time.Second).Result()

		if !isNew {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"code":    "PROCESSING",
				"message": "A request with this key is still being processed",
			})
			return
		}

		c.Set("idempotency_cache_key", cacheKey)
		c.Set("idempotency_lock_key", lockKey)

		c.Next()
	}
}
