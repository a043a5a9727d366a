package service

import (
	"math"
	"ranking_engine/internal/model"
)

const (
	weightAIAccuracy    = 0.6
	weightCommunication = 0.3
	weightCompletion    = 0.1

	streakBonusPerDay = 0.05
	maxStreakBonus    = 0.5
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PerformanceScore 按 0.6/0.3/0.1 加权，输入为 0-100，不做范围校验
func PerformanceScore(aiAccuracy, communication, completionRate float64) float64 {
	return round2(weightAIAccuracy*aiAccuracy + weightCommunication*communication + weightCompletion*completionRate)
}

// StreakBonus 每天 5%，10 天封顶 50%
func StreakBonus(streakDays int) float64 {
	if streakDays <= 0 {
		return 0
	}
	return math.Min(float64(streakDays)*streakBonusPerDay, maxStreakBonus)
}

func AdjustedScore(performanceScore float64, streakDays int) float64 {
	return round2(performanceScore * (1 + StreakBonus(streakDays)))
}

// BadgeLevel 基于原始表现分而不是加成后的分数
func BadgeLevel(score float64) model.BadgeLevel {
	switch {
	case score >= 90:
		return model.BadgeDiamond
	case score >= 80:
		return model.BadgePlatinum
	case score >= 70:
		return model.BadgeGold
	case score >= 60:
		return model.BadgeSilver
	default:
		return model.BadgeBronze
	}
}

// ClampScore 将输入限制在 0-100
func ClampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// CompletionRate 完成为 100，否则为 0
func CompletionRate(completed bool) float64 {
	if completed {
		return 100
	}
	return 0
}
