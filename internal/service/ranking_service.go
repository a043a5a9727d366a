package service

import (
	"context"
	"fmt"
	"ranking_engine/internal/model"
	"ranking_engine/internal/repository"
	"sort"
	"time"
)

// RankingInput 参与排名的单个用户
type RankingInput struct {
	UserID                string
	PerformanceScore      float64
	StreakCount           int
	LastActivityTimestamp time.Time
	CountryCode           *string
	// PreviousRank 为 0 表示前一天没有排名
	PreviousRank int
}

type RankingResult struct {
	UserID                string
	GlobalRank            int
	PreviousRank          int
	RankChange            int
	PerformanceScore      float64
	AdjustedScore         float64
	StreakBonus           float64
	StreakCount           int
	BadgeLevel            model.BadgeLevel
	CountryCode           *string
	LastActivityTimestamp time.Time
}

// ComputeRankings 按加成分降序、最近活跃时间降序稳定排序，名次从 1 开始且无重复
func ComputeRankings(inputs []RankingInput) []RankingResult {
	scored := make([]RankingResult, len(inputs))
	for i, in := range inputs {
		scored[i] = RankingResult{
			UserID:                in.UserID,
			PreviousRank:          in.PreviousRank,
			PerformanceScore:      in.PerformanceScore,
			AdjustedScore:         AdjustedScore(in.PerformanceScore, in.StreakCount),
			StreakBonus:           StreakBonus(in.StreakCount),
			StreakCount:           in.StreakCount,
			BadgeLevel:            BadgeLevel(in.PerformanceScore),
			CountryCode:           in.CountryCode,
			LastActivityTimestamp: in.LastActivityTimestamp,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.AdjustedScore != b.AdjustedScore {
			return a.AdjustedScore > b.AdjustedScore
		}
		return a.LastActivityTimestamp.After(b.LastActivityTimestamp)
	})

	for i := range scored {
		rank := i + 1
		scored[i].GlobalRank = rank
		if scored[i].PreviousRank <= 0 {
			scored[i].PreviousRank = rank
		}
		// 正数表示名次上升
		scored[i].RankChange = scored[i].PreviousRank - rank
	}
	return scored
}

type RankingService struct {
	LeaderboardRepo *repository.LeaderboardRepository
}

func NewRankingService(leaderboardRepo *repository.LeaderboardRepository) *RankingService {
	return &RankingService{LeaderboardRepo: leaderboardRepo}
}

// Calculate 读取当前所有有效用户并计算 today 的排名，前一天的名次用于计算变化
func (s *RankingService) Calculate(ctx context.Context, today string) ([]RankingResult, error) {
	rows, err := s.LeaderboardRepo.LoadRankingRows(ctx)
	if err != nil {
		return nil, err
	}

	yesterday, err := model.AddDays(today, -1)
	if err != nil {
		return nil, fmt.Errorf("invalid ranking date %q: %w", today, err)
	}
	previous, err := s.LeaderboardRepo.PreviousRanks(ctx, yesterday)
	if err != nil {
		return nil, err
	}

	inputs := make([]RankingInput, len(rows))
	for i, row := range rows {
		inputs[i] = RankingInput{
			UserID:                row.UserID,
			PerformanceScore:      row.PerformanceScore,
			StreakCount:           row.StreakCount,
			LastActivityTimestamp: row.LastActivityTimestamp,
			CountryCode:           row.CountryCode,
			PreviousRank:          previous[row.UserID],
		}
	}
	return ComputeRankings(inputs), nil
}

// ToCacheEntries 转换为当日缓存行
func ToCacheEntries(results []RankingResult, cacheDate string) []model.LeaderboardCache {
	entries := make([]model.LeaderboardCache, len(results))
	for i, r := range results {
		entries[i] = model.LeaderboardCache{
			UserID:                r.UserID,
			CacheDate:             cacheDate,
			GlobalRank:            r.GlobalRank,
			PreviousRank:          r.PreviousRank,
			RankChange:            r.RankChange,
			PerformanceScore:      r.PerformanceScore,
			AdjustedScore:         r.AdjustedScore,
			StreakBonus:           r.StreakBonus,
			StreakCount:           r.StreakCount,
			BadgeLevel:            r.BadgeLevel,
			CountryCode:           r.CountryCode,
			LastActivityTimestamp: r.LastActivityTimestamp,
		}
	}
	return entries
}
