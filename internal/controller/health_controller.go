package controller

import (
	"context"
	"net/http"
	"ranking_engine/internal/util"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// QueueStats 后台队列状态
type QueueStats interface {
	Pending() int
}

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
	Queue QueueStats
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, queue QueueStats) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Queue: queue}
}

// @Summary 健康检查
// @Description 检查数据库、Redis 与后台队列状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{
		"database": "up",
		"redis":    "disabled",
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			util.Error(ctx, http.StatusServiceUnavailable, "Redis unavailable")
			return
		}
		components["redis"] = "up"
	}
	if c.Queue != nil {
		components["pendingTasks"] = c.Queue.Pending()
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
