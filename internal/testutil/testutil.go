package testutil

import (
	"path/filepath"
	"ranking_engine/internal/config"
	"ranking_engine/internal/model"
	"ranking_engine/pkg/database"
	"testing"
	"time"

	"gorm.io/gorm"
)

// SetupTestDB 在临时目录中创建已迁移的 SQLite 数据库
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "ranking_test.db"),
	}
	db, err := database.InitDB(cfg, "release")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// FixedClock 返回固定时间的时钟，可通过 Set 推进
type FixedClock struct {
	now time.Time
}

func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now() time.Time {
	return c.now
}

func (c *FixedClock) Set(now time.Time) {
	c.now = now
}

func (c *FixedClock) AddDays(days int) {
	c.now = c.now.AddDate(0, 0, days)
}

// SeedUser 写入一条已有练习记录的用户数据
func SeedUser(t *testing.T, db *gorm.DB, userID string, performance float64, streak int, lastActivity time.Time) {
	t.Helper()

	score := &model.UserScore{
		UserID:                userID,
		AIAccuracyScore:       performance,
		CommunicationScore:    performance,
		CompletionRate:        100,
		PerformanceScore:      performance,
		TotalInterviews:       1,
		SuccessfulInterviews:  1,
		LastActivityTimestamp: lastActivity,
	}
	if err := db.Create(score).Error; err != nil {
		t.Fatalf("Failed to seed user score: %v", err)
	}
	if streak <= 0 {
		return
	}
	s := &model.UserStreak{
		UserID:         userID,
		LastActiveDate: model.DateOf(lastActivity, time.UTC),
		StreakCount:    streak,
		LongestStreak:  streak,
		TotalSessions:  streak,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("Failed to seed user streak: %v", err)
	}
}
