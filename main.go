// @title 面试练习排行榜 API
// @version 1.0
// @description 表现分计算、连续练习追踪与每日全局排名。

// @BasePath /api

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"ranking_engine/internal/app"
	"ranking_engine/internal/config"
	"ranking_engine/pkg/database"
	"ranking_engine/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configDir string

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务与每日刷新任务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			application, err := app.NewApp(cfg, filepath.Join(configDir, "config.yaml"))
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "只执行数据库迁移，完成后退出",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger.InitLogger(cfg)
			defer logger.Log.Sync()

			db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			logger.Log.Info("Database migration completed", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}

func main() {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:           "ranking-engine",
		Short:         "面试练习排行榜服务",
		SilenceUsage:  true,
		SilenceErrors: true,
		// 不带子命令时等同于 serve
		RunE: serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configDir, "config", "c", "configs", "配置文件所在目录")
	root.AddCommand(serve, newMigrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
