package handler

import (
	"context"
	"net/http"
	"time"

	"inventnet/internal/infra"
	"inventnet/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// Redis, the breaker and the scheduler are optional and reported only when
// configured. An open breaker degrades nothing: the API itself still serves.
func Health(db *gorm.DB, rdb *redis.Client, cb *infra.CircuitBreaker, sched *worker.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if cb != nil {
			body["scheduler_breaker"] = cb.State().String()
		}
		if sched != nil {
			if next := sched.NextRun(); !next.IsZero() {
				body["scheduler_next_run"] = next
			}
		}
		c.JSON(status, body)
	}
}
