// 手动触发排行榜刷新脚本
//
// 刷新已由服务内的定时任务每天执行一次。
// 此脚本用于首次部署、批量导入练习数据或定时任务失败后手动补跑，结果以 YAML 输出。
//
// 用法: go run scripts/refresh_leaderboard.go -config configs

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"ranking_engine/internal/config"
	"ranking_engine/internal/repository"
	"ranking_engine/internal/service"
	"ranking_engine/pkg/database"
	"ranking_engine/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件所在目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Redis 连接失败: %v", err)
	}

	var snapshot *service.SnapshotService
	if cfg.Ranking.ExportSnapshot {
		snapshot = service.NewSnapshotService(service.NewStorageService(cfg))
	}

	leaderboardRepo := repository.NewLeaderboardRepository(db)
	leaderboard := service.NewLeaderboardService(
		service.NewRankingService(leaderboardRepo),
		leaderboardRepo,
		service.NewRefreshLock(rdb, cfg.Ranking.LockTTL),
		snapshot,
		cfg.Ranking.Location(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Ranking.RefreshTimeout)
	defer cancel()

	log.Println("手动触发排行榜刷新...")
	summary, err := leaderboard.Refresh(ctx)
	if err != nil {
		log.Fatalf("刷新失败: %v", err)
	}

	out := map[string]interface{}{
		"status":        summary.Status,
		"cache_date":    summary.CacheDate,
		"users_ranked":  summary.UsersRanked,
		"stale_removed": summary.StaleRemoved,
		"duration":      summary.Duration.String(),
	}
	if summary.SnapshotURL != "" {
		out["snapshot_url"] = summary.SnapshotURL
	}
	if err := yaml.NewEncoder(os.Stdout).Encode(out); err != nil {
		log.Fatalf("输出结果失败: %v", err)
	}
}
