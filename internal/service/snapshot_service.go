package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"ranking_engine/internal/model"
	"time"
)

// LeaderboardSnapshot 对外发布的每日排行榜文件内容
type LeaderboardSnapshot struct {
	CacheDate   string                   `json:"cacheDate"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Total       int                      `json:"total"`
	Entries     []model.LeaderboardCache `json:"entries"`
}

type SnapshotService struct {
	Storage *StorageService
}

func NewSnapshotService(storage *StorageService) *SnapshotService {
	return &SnapshotService{Storage: storage}
}

func SnapshotObjectName(cacheDate string) string {
	return fmt.Sprintf("leaderboard/%s.json", cacheDate)
}

// Export 同一天重复导出会覆盖同名文件
func (s *SnapshotService) Export(ctx context.Context, cacheDate string, entries []model.LeaderboardCache, generatedAt time.Time) (string, error) {
	payload, err := json.Marshal(LeaderboardSnapshot{
		CacheDate:   cacheDate,
		GeneratedAt: generatedAt,
		Total:       len(entries),
		Entries:     entries,
	})
	if err != nil {
		return "", err
	}
	return s.Storage.Upload(ctx, SnapshotObjectName(cacheDate), bytes.NewReader(payload), int64(len(payload)), "application/json")
}
