package app

import (
	"ranking_engine/docs"
	"ranking_engine/internal/config"
	"ranking_engine/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	api.GET("/health", c.health.HealthCheck)

	ranking := api.Group("/ranking")
	{
		// 写入类：练习事件与手动刷新
		ranking.POST("/session", c.ranking.RecordSession)
		ranking.POST("/refresh", c.ranking.TriggerRefresh)

		// 查询类：只读当日缓存与历史
		ranking.GET("/stats/:user_id", c.ranking.GetStats)
		ranking.GET("/leaderboard", c.ranking.GetLeaderboard)
		ranking.GET("/history/:user_id", c.ranking.GetHistory)
		ranking.GET("/achievements/:user_id", c.ranking.GetAchievements)
	}

	// 本地存储的排行榜快照
	if cfg.Ranking.ExportSnapshot && cfg.Storage.Type == "local" {
		router.Static("/snapshots", cfg.Storage.LocalPath)
	}
}
