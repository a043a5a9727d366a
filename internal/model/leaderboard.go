package model

import "time"

type BadgeLevel string

const (
	BadgeDiamond  BadgeLevel = "diamond"
	BadgePlatinum BadgeLevel = "platinum"
	BadgeGold     BadgeLevel = "gold"
	BadgeSilver   BadgeLevel = "silver"
	BadgeBronze   BadgeLevel = "bronze"
)

// LeaderboardCache 每日排行榜快照，可随时重新计算
// swagger:model LeaderboardCache
type LeaderboardCache struct {
	BaseModel
	UserID                string     `gorm:"size:64;not null;uniqueIndex:idx_cache_user_date" json:"userId"`
	CacheDate             string     `gorm:"size:10;not null;uniqueIndex:idx_cache_user_date;index" json:"cacheDate"`
	GlobalRank            int        `gorm:"not null;index" json:"globalRank"`
	PreviousRank          int        `gorm:"not null" json:"previousRank"`
	RankChange            int        `gorm:"not null;default:0" json:"rankChange"`
	PerformanceScore      float64    `gorm:"not null" json:"performanceScore"`
	AdjustedScore         float64    `gorm:"not null" json:"adjustedScore"`
	StreakBonus           float64    `gorm:"not null" json:"streakBonus"`
	StreakCount           int        `gorm:"not null;default:0" json:"streakCount"`
	BadgeLevel            BadgeLevel `gorm:"size:16;not null" json:"badgeLevel"`
	CountryCode           *string    `gorm:"size:8;index" json:"countryCode,omitempty"`
	LastActivityTimestamp time.Time  `json:"lastActivityTimestamp"`
}

func (LeaderboardCache) TableName() string {
	return "leaderboard_cache"
}

// LeaderboardHistory 每日排名的永久记录，只追加不更新
// swagger:model LeaderboardHistory
type LeaderboardHistory struct {
	BaseModel
	UserID           string  `gorm:"size:64;not null;uniqueIndex:idx_history_user_date" json:"userId"`
	RankDate         string  `gorm:"size:10;not null;uniqueIndex:idx_history_user_date" json:"rankDate"`
	GlobalRank       int     `gorm:"not null" json:"globalRank"`
	PerformanceScore float64 `gorm:"not null" json:"performanceScore"`
	AdjustedScore    float64 `gorm:"not null" json:"adjustedScore"`
	StreakCount      int     `gorm:"not null;default:0" json:"streakCount"`
}

func (LeaderboardHistory) TableName() string {
	return "leaderboard_history"
}

// UserStats 当日排行榜数据与连续练习统计合并后的视图
// swagger:model UserStats
type UserStats struct {
	UserID           string     `json:"userId"`
	CacheDate        string     `json:"cacheDate"`
	GlobalRank       int        `json:"globalRank"`
	PreviousRank     int        `json:"previousRank"`
	RankChange       int        `json:"rankChange"`
	PerformanceScore float64    `json:"performanceScore"`
	AdjustedScore    float64    `json:"adjustedScore"`
	StreakBonus      float64    `json:"streakBonus"`
	StreakCount      int        `json:"streakCount"`
	BadgeLevel       BadgeLevel `json:"badgeLevel"`
	LongestStreak    int        `json:"longestStreak"`
	TotalSessions    int        `json:"totalSessions"`
}
