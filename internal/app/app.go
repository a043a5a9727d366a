package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"ranking_engine/internal/config"
	"ranking_engine/internal/controller"
	"ranking_engine/internal/repository"
	"ranking_engine/internal/scheduler"
	"ranking_engine/internal/service"
	"ranking_engine/internal/worker"
	"ranking_engine/pkg/configwatcher"
	"ranking_engine/pkg/database"
	"ranking_engine/pkg/logger"
	"ranking_engine/pkg/monitoring"
	"ranking_engine/pkg/security"
	"ranking_engine/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	Config     *config.Config
	ConfigFile string
	Router     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client

	Dispatcher *worker.Dispatcher
	Scheduler  *scheduler.Scheduler

	services        *services
	server          *http.Server
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)

	// 后台协程（限流清理、配置监听）的生命周期
	ctx    context.Context
	cancel context.CancelFunc
}

type repositories struct {
	score       *repository.ScoreRepository
	streak      *repository.StreakRepository
	achievement *repository.AchievementRepository
	leaderboard *repository.LeaderboardRepository
}

type services struct {
	storage     *service.StorageService
	snapshot    *service.SnapshotService
	streak      *service.StreakService
	ranking     *service.RankingService
	leaderboard *service.LeaderboardService
	session     *service.SessionService
}

type controllers struct {
	ranking *controller.RankingController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		score:       repository.NewScoreRepository(db),
		streak:      repository.NewStreakRepository(db),
		achievement: repository.NewAchievementRepository(db),
		leaderboard: repository.NewLeaderboardRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}
	loc := cfg.Ranking.Location()

	if cfg.Ranking.ExportSnapshot {
		s.storage = service.NewStorageService(cfg)
		s.snapshot = service.NewSnapshotService(s.storage)
	}

	s.streak = service.NewStreakService(db, repos.streak, repos.achievement)
	s.ranking = service.NewRankingService(repos.leaderboard)

	s.leaderboard = service.NewLeaderboardService(
		s.ranking,
		repos.leaderboard,
		service.NewRefreshLock(rdb, cfg.Ranking.LockTTL),
		s.snapshot,
		loc,
	)
	if cfg.Ranking.MaxPageSize > 0 {
		s.leaderboard.MaxPageSize = cfg.Ranking.MaxPageSize
	}

	s.session = service.NewSessionService(db, repos.score, s.streak, a.Dispatcher, rdb, loc)
	if cfg.Ranking.DedupTTL > 0 {
		s.session.DedupTTL = cfg.Ranking.DedupTTL
	}

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		ranking: controller.NewRankingController(s.session, s.leaderboard, s.streak, a.Scheduler),
		health:  controller.NewHealthController(a.DB, a.Redis, a.Dispatcher),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	limiter := security.NewIPRateLimiter(a.ctx, cfg.RateLimit.MaxRequests, window)
	router.Use(limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp 组装所有依赖，不启动任何后台任务
func NewApp(cfg *config.Config, configFile string) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("initialize redis: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:     cfg,
		ConfigFile: configFile,
		DB:         db,
		Redis:      rdb,
		ctx:        ctx,
		cancel:     cancel,
	}

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("ranking-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		app.tracer = tp
	}

	app.Dispatcher = worker.NewDispatcher(cfg.Worker.Workers, cfg.Worker.QueueSize, cfg.Worker.TaskTimeout)

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, db, rdb)
	app.Scheduler = scheduler.New(
		cfg.Ranking.RefreshCron,
		cfg.Ranking.Location(),
		app.services.leaderboard,
		app.Dispatcher,
		cfg.Ranking.RefreshTimeout,
	)
	controllers := app.initControllers(app.services)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetMode(newCfg.Server.Mode)
	})

	return app, nil
}

// Start 启动后台队列、定时任务和 HTTP 服务
func (a *App) Start() error {
	a.Dispatcher.Start()
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if a.ConfigFile != "" {
		go func() {
			err := configwatcher.WatchConfig(a.ctx, a.ConfigFile, func(newCfg *config.Config) {
				for _, cb := range a.configCallbacks {
					cb(newCfg)
				}
			})
			if err != nil {
				logger.Log.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	a.server = &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop 按依赖顺序关闭：先停止接收请求，再停定时任务，最后排空后台队列
func (a *App) Stop(ctx context.Context) error {
	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if err := a.Scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}
	if err := a.Dispatcher.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop dispatcher: %w", err))
	}
	a.cancel()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	_ = logger.Log.Sync()
	return errors.Join(errs...)
}

// Run 启动并阻塞到收到退出信号
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Log.Info("Server exiting")
	return nil
}
