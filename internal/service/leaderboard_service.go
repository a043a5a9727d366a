package service

import (
	"context"
	"errors"
	"fmt"
	"ranking_engine/internal/model"
	"ranking_engine/internal/repository"
	"ranking_engine/internal/util"
	"ranking_engine/pkg/logger"
	"ranking_engine/pkg/monitoring"
	"ranking_engine/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type LeaderboardService struct {
	Ranking         *RankingService
	LeaderboardRepo *repository.LeaderboardRepository
	Lock            *RefreshLock
	// Snapshot 为 nil 时不导出快照
	Snapshot    *SnapshotService
	MaxPageSize int

	now func() time.Time
	loc *time.Location
}

func NewLeaderboardService(
	ranking *RankingService,
	leaderboardRepo *repository.LeaderboardRepository,
	lock *RefreshLock,
	snapshot *SnapshotService,
	loc *time.Location,
) *LeaderboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &LeaderboardService{
		Ranking:         ranking,
		LeaderboardRepo: leaderboardRepo,
		Lock:            lock,
		Snapshot:        snapshot,
		MaxPageSize:     util.MaxPageSize,
		now:             time.Now,
		loc:             loc,
	}
}

// SetClock 替换时间来源
func (s *LeaderboardService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *LeaderboardService) Today() string {
	return model.DateOf(s.now(), s.loc)
}

type RefreshSummary struct {
	Status       string        `json:"status"`
	UsersRanked  int           `json:"usersRanked"`
	CacheDate    string        `json:"cacheDate"`
	StaleRemoved int64         `json:"staleRemoved"`
	Duration     time.Duration `json:"duration"`
	SnapshotURL  string        `json:"snapshotUrl,omitempty"`
}

// Refresh 执行一次完整的排行榜刷新。每一步都是幂等的，失败后整体重跑即可收敛。
func (s *LeaderboardService) Refresh(ctx context.Context) (*RefreshSummary, error) {
	release, err := s.Lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, util.ErrRefreshInProgress) {
			monitoring.RefreshTotal.WithLabelValues("skipped").Inc()
		}
		return nil, err
	}
	defer release()

	ctx, span := tracing.Tracer.Start(ctx, "leaderboard.refresh")
	defer span.End()

	start := time.Now()
	today := s.Today()
	logger.Log.Info("Starting leaderboard cache update", zap.String("cache_date", today))

	summary, err := s.refresh(ctx, today)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		monitoring.RefreshTotal.WithLabelValues("failed").Inc()
		logger.Log.Error("Leaderboard cache update failed", zap.String("cache_date", today), zap.Error(err))
		return nil, err
	}

	summary.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("users_ranked", summary.UsersRanked))
	monitoring.RefreshTotal.WithLabelValues("succeeded").Inc()
	monitoring.RefreshDuration.Observe(summary.Duration.Seconds())
	monitoring.UsersRanked.Set(float64(summary.UsersRanked))
	logger.Log.Info("Leaderboard cache updated",
		zap.String("cache_date", today),
		zap.Int("users_ranked", summary.UsersRanked),
		zap.Int64("stale_removed", summary.StaleRemoved),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (s *LeaderboardService) refresh(ctx context.Context, today string) (*RefreshSummary, error) {
	results, err := s.Ranking.Calculate(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("calculate rankings: %w", err)
	}

	entries := ToCacheEntries(results, today)
	removed, err := s.LeaderboardRepo.ReplaceDay(ctx, today, entries)
	if err != nil {
		return nil, err
	}

	summary := &RefreshSummary{
		Status:       "success",
		UsersRanked:  len(results),
		CacheDate:    today,
		StaleRemoved: removed,
	}

	if s.Snapshot != nil {
		url, err := s.Snapshot.Export(ctx, today, entries, s.now())
		if err != nil {
			// 快照只是对外发布的副本，失败不影响本次刷新
			logger.Log.Warn("Leaderboard snapshot export failed", zap.String("cache_date", today), zap.Error(err))
		} else {
			summary.SnapshotURL = url
		}
	}
	return summary, nil
}

// GetStats 只读当日缓存，没有缓存行时返回 util.ErrStatsNotFound
func (s *LeaderboardService) GetStats(ctx context.Context, userID string) (*model.UserStats, error) {
	return s.LeaderboardRepo.FindStats(ctx, userID, s.Today())
}

type LeaderboardQuery struct {
	Page      int
	Limit     int
	Country   string
	Timeframe string
	// UserID 非空时附带该用户在全局榜上的位置
	UserID    string
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type UserPosition struct {
	Rank       int              `json:"rank"`
	Score      float64          `json:"score"`
	Streak     int              `json:"streak"`
	Badge      model.BadgeLevel `json:"badge"`
	RankChange int              `json:"rankChange"`
}

type LeaderboardPage struct {
	CacheDate    string                   `json:"cacheDate"`
	Leaderboard  []model.LeaderboardCache `json:"leaderboard"`
	Pagination   Pagination               `json:"pagination"`
	UserPosition *UserPosition            `json:"userPosition"`
}

func (s *LeaderboardService) normalize(q LeaderboardQuery) (LeaderboardQuery, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = util.DefaultPageSize
	}
	maxPage := s.MaxPageSize
	if maxPage <= 0 {
		maxPage = util.MaxPageSize
	}
	if q.Limit > maxPage {
		q.Limit = maxPage
	}
	if q.Country == "all" {
		q.Country = ""
	}
	switch q.Timeframe {
	case "":
		q.Timeframe = util.TimeframeAll
	case util.TimeframeAll, util.TimeframeWeekly, util.TimeframeMonthly:
	default:
		return q, fmt.Errorf("%w: unknown timeframe %q", util.ErrValidation, q.Timeframe)
	}
	return q, nil
}

// GetLeaderboard 分页读取当日排行榜
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, q LeaderboardQuery) (*LeaderboardPage, error) {
	q, err := s.normalize(q)
	if err != nil {
		return nil, err
	}

	filter := repository.LeaderboardFilter{
		CountryCode: q.Country,
		Offset:      (q.Page - 1) * q.Limit,
		Limit:       q.Limit,
	}
	now := s.now().UTC()
	switch q.Timeframe {
	case util.TimeframeWeekly:
		since := now.AddDate(0, 0, -7)
		filter.ActiveSince = &since
	case util.TimeframeMonthly:
		since := now.AddDate(0, -1, 0)
		filter.ActiveSince = &since
	}

	today := s.Today()
	entries, total, err := s.LeaderboardRepo.ListByDate(ctx, today, filter)
	if err != nil {
		return nil, err
	}

	page := &LeaderboardPage{
		CacheDate:   today,
		Leaderboard: entries,
		Pagination: Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: int((total + int64(q.Limit) - 1) / int64(q.Limit)),
		},
	}
	if q.UserID != "" {
		page.UserPosition, err = s.userPosition(ctx, q.UserID, today)
		if err != nil {
			return nil, err
		}
	}
	return page, nil
}

// userPosition 用户当天未上榜时返回 nil
func (s *LeaderboardService) userPosition(ctx context.Context, userID, date string) (*UserPosition, error) {
	stats, err := s.LeaderboardRepo.FindStats(ctx, userID, date)
	if errors.Is(err, util.ErrStatsNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &UserPosition{
		Rank:       stats.GlobalRank,
		Score:      stats.AdjustedScore,
		Streak:     stats.StreakCount,
		Badge:      stats.BadgeLevel,
		RankChange: stats.RankChange,
	}, nil
}

// GetHistory 返回最近 days 天的排名记录（包含今天）
func (s *LeaderboardService) GetHistory(ctx context.Context, userID string, days int) ([]model.LeaderboardHistory, error) {
	if days <= 0 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	since, err := model.AddDays(s.Today(), -(days - 1))
	if err != nil {
		return nil, err
	}
	return s.LeaderboardRepo.ListHistory(ctx, userID, since)
}
