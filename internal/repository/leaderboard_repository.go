package repository

import (
	"context"
	"errors"
	"fmt"
	"ranking_engine/internal/model"
	"ranking_engine/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 500

type LeaderboardRepository struct {
	DB *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{DB: db}
}

// RankingRow 参与排名的用户快照
type RankingRow struct {
	UserID                string
	PerformanceScore      float64
	LastActivityTimestamp time.Time
	CountryCode           *string
	StreakCount           int
}

// LeaderboardFilter 排行榜分页查询条件
type LeaderboardFilter struct {
	CountryCode string
	ActiveSince *time.Time
	Offset      int
	Limit       int
}

// LoadRankingRows 读取所有至少完成过一次练习的用户
func (r *LeaderboardRepository) LoadRankingRows(ctx context.Context) ([]RankingRow, error) {
	var rows []RankingRow
	err := r.DB.WithContext(ctx).
		Table("user_scores AS us").
		Select(`us.user_id AS user_id,
			us.performance_score AS performance_score,
			us.last_activity_timestamp AS last_activity_timestamp,
			us.country_code AS country_code,
			COALESCE(ust.streak_count, 0) AS streak_count`).
		Joins("LEFT JOIN user_streaks AS ust ON ust.user_id = us.user_id").
		Where("us.total_interviews > ?", 0).
		Order("us.performance_score DESC, us.last_activity_timestamp DESC, us.user_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load ranking rows: %w", err)
	}
	return rows, nil
}

// PreviousRanks 返回指定日期的排名，优先缓存表，缓存已清理时回退到历史表
func (r *LeaderboardRepository) PreviousRanks(ctx context.Context, date string) (map[string]int, error) {
	type rankRow struct {
		UserID     string
		GlobalRank int
	}

	var history []rankRow
	if err := r.DB.WithContext(ctx).
		Model(&model.LeaderboardHistory{}).
		Select("user_id, global_rank").
		Where("rank_date = ?", date).
		Scan(&history).Error; err != nil {
		return nil, fmt.Errorf("load previous history ranks: %w", err)
	}

	var cached []rankRow
	if err := r.DB.WithContext(ctx).
		Model(&model.LeaderboardCache{}).
		Select("user_id, global_rank").
		Where("cache_date = ?", date).
		Scan(&cached).Error; err != nil {
		return nil, fmt.Errorf("load previous cache ranks: %w", err)
	}

	ranks := make(map[string]int, len(history)+len(cached))
	for _, h := range history {
		ranks[h.UserID] = h.GlobalRank
	}
	for _, c := range cached {
		ranks[c.UserID] = c.GlobalRank
	}
	return ranks, nil
}

// ReplaceDay 在一个事务里完成旧缓存清理、当日缓存写入和历史追加
func (r *LeaderboardRepository) ReplaceDay(ctx context.Context, today string, entries []model.LeaderboardCache) (int64, error) {
	var removed int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("cache_date < ?", today).Delete(&model.LeaderboardCache{})
		if res.Error != nil {
			return fmt.Errorf("delete stale cache: %w", res.Error)
		}
		removed = res.RowsAffected

		if len(entries) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "cache_date"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"global_rank",
					"previous_rank",
					"rank_change",
					"performance_score",
					"adjusted_score",
					"streak_bonus",
					"streak_count",
					"badge_level",
					"country_code",
					"last_activity_timestamp",
					"updated_at",
				}),
			}).CreateInBatches(&entries, upsertBatchSize).Error
			if err != nil {
				return fmt.Errorf("upsert cache: %w", err)
			}
		}

		var todays []model.LeaderboardCache
		if err := tx.Where("cache_date = ?", today).Order("global_rank asc").Find(&todays).Error; err != nil {
			return fmt.Errorf("read today's cache: %w", err)
		}
		if len(todays) == 0 {
			return nil
		}

		history := make([]model.LeaderboardHistory, 0, len(todays))
		for _, c := range todays {
			history = append(history, model.LeaderboardHistory{
				UserID:           c.UserID,
				RankDate:         c.CacheDate,
				GlobalRank:       c.GlobalRank,
				PerformanceScore: c.PerformanceScore,
				AdjustedScore:    c.AdjustedScore,
				StreakCount:      c.StreakCount,
			})
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "rank_date"}},
			DoNothing: true,
		}).CreateInBatches(&history, upsertBatchSize).Error
		if err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	return removed, err
}

// FindStats 读取当日缓存并合并连续练习统计，没有缓存行时返回 util.ErrStatsNotFound
func (r *LeaderboardRepository) FindStats(ctx context.Context, userID, date string) (*model.UserStats, error) {
	var stats model.UserStats
	res := r.DB.WithContext(ctx).
		Table("leaderboard_cache AS lc").
		Select(`lc.user_id, lc.cache_date, lc.global_rank, lc.previous_rank, lc.rank_change,
			lc.performance_score, lc.adjusted_score, lc.streak_bonus, lc.streak_count, lc.badge_level,
			COALESCE(ust.longest_streak, 0) AS longest_streak,
			COALESCE(ust.total_sessions, 0) AS total_sessions`).
		Joins("LEFT JOIN user_streaks AS ust ON ust.user_id = lc.user_id").
		Where("lc.user_id = ? AND lc.cache_date = ?", userID, date).
		Limit(1).
		Scan(&stats)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, util.ErrStatsNotFound
	}
	return &stats, nil
}

func (r *LeaderboardRepository) ListByDate(ctx context.Context, date string, filter LeaderboardFilter) ([]model.LeaderboardCache, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.LeaderboardCache{}).Where("cache_date = ?", date)
	if filter.CountryCode != "" {
		query = query.Where("country_code = ?", filter.CountryCode)
	}
	if filter.ActiveSince != nil {
		query = query.Where("last_activity_timestamp >= ?", *filter.ActiveSince)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.LeaderboardCache
	err := query.Order("global_rank asc").Offset(filter.Offset).Limit(filter.Limit).Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *LeaderboardRepository) ListHistory(ctx context.Context, userID, since string) ([]model.LeaderboardHistory, error) {
	var history []model.LeaderboardHistory
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND rank_date >= ?", userID, since).
		Order("rank_date asc").
		Find(&history).Error
	return history, err
}

func (r *LeaderboardRepository) CountCache(ctx context.Context, date string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LeaderboardCache{}).Where("cache_date = ?", date).Count(&count).Error
	return count, err
}

func (r *LeaderboardRepository) CountHistory(ctx context.Context, date string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LeaderboardHistory{}).Where("rank_date = ?", date).Count(&count).Error
	return count, err
}

// IsNotFound 统一判断“不存在”类错误
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, util.ErrStatsNotFound)
}
