package service

import (
	"context"
	"ranking_engine/internal/repository"
	"ranking_engine/internal/testutil"
	"reflect"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestComputeRankingsOrdersByAdjustedScore(t *testing.T) {
	results := ComputeRankings([]RankingInput{
		{UserID: "low", PerformanceScore: 60, LastActivityTimestamp: baseTime},
		{UserID: "streaky", PerformanceScore: 80, StreakCount: 10, LastActivityTimestamp: baseTime},
		{UserID: "high", PerformanceScore: 95, LastActivityTimestamp: baseTime},
	})

	want := []string{"streaky", "high", "low"}
	for i, r := range results {
		if r.UserID != want[i] {
			t.Fatalf("rank %d = %s, want %s", i+1, r.UserID, want[i])
		}
		if r.GlobalRank != i+1 {
			t.Errorf("%s GlobalRank = %d, want %d", r.UserID, r.GlobalRank, i+1)
		}
	}
	if results[0].AdjustedScore != 120 || results[0].StreakBonus != 0.5 {
		t.Errorf("streaky adjusted = %v bonus = %v", results[0].AdjustedScore, results[0].StreakBonus)
	}
	// 徽章按原始分计算
	if results[0].BadgeLevel != "platinum" {
		t.Errorf("streaky badge = %s, want platinum", results[0].BadgeLevel)
	}
}

func TestComputeRankingsTieBreaksByRecency(t *testing.T) {
	results := ComputeRankings([]RankingInput{
		{UserID: "earlier", PerformanceScore: 75, LastActivityTimestamp: baseTime.Add(-time.Hour)},
		{UserID: "later", PerformanceScore: 75, LastActivityTimestamp: baseTime},
	})
	if results[0].UserID != "later" || results[1].UserID != "earlier" {
		t.Fatalf("tie should favour most recent activity, got %s then %s", results[0].UserID, results[1].UserID)
	}
}

func TestComputeRankingsIsDeterministic(t *testing.T) {
	inputs := []RankingInput{
		{UserID: "a", PerformanceScore: 70, StreakCount: 2, LastActivityTimestamp: baseTime},
		{UserID: "b", PerformanceScore: 70, StreakCount: 2, LastActivityTimestamp: baseTime},
		{UserID: "c", PerformanceScore: 85, LastActivityTimestamp: baseTime},
		{UserID: "d", PerformanceScore: 50, StreakCount: 9, LastActivityTimestamp: baseTime},
	}
	first := ComputeRankings(inputs)
	for i := 0; i < 10; i++ {
		if again := ComputeRankings(inputs); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestComputeRankingsAssignsContiguousRanks(t *testing.T) {
	inputs := make([]RankingInput, 50)
	for i := range inputs {
		inputs[i] = RankingInput{
			UserID:                string(rune('A' + i%26)),
			PerformanceScore:      float64(i % 7 * 10),
			LastActivityTimestamp: baseTime,
		}
	}
	results := ComputeRankings(inputs)
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		if r.GlobalRank < 1 || r.GlobalRank > len(inputs) || seen[r.GlobalRank] {
			t.Fatalf("invalid or duplicate rank %d", r.GlobalRank)
		}
		seen[r.GlobalRank] = true
	}
}

func TestComputeRankingsRankChangeSign(t *testing.T) {
	results := ComputeRankings([]RankingInput{
		{UserID: "climber", PerformanceScore: 90, LastActivityTimestamp: baseTime, PreviousRank: 3},
		{UserID: "steady", PerformanceScore: 80, LastActivityTimestamp: baseTime, PreviousRank: 2},
		{UserID: "faller", PerformanceScore: 70, LastActivityTimestamp: baseTime, PreviousRank: 1},
		{UserID: "newcomer", PerformanceScore: 60, LastActivityTimestamp: baseTime},
	})

	want := map[string]struct{ prev, change int }{
		"climber":  {3, 2},
		"steady":   {2, 0},
		"faller":   {1, -2},
		"newcomer": {4, 0},
	}
	for _, r := range results {
		w := want[r.UserID]
		if r.PreviousRank != w.prev || r.RankChange != w.change {
			t.Errorf("%s previous=%d change=%d, want previous=%d change=%d",
				r.UserID, r.PreviousRank, r.RankChange, w.prev, w.change)
		}
	}
}

func TestCalculateExcludesUsersWithoutInterviews(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedUser(t, db, "active", 80, 2, baseTime)
	if err := db.Exec("INSERT INTO user_scores (user_id, performance_score, total_interviews, last_activity_timestamp, created_at, updated_at) VALUES (?, ?, 0, ?, ?, ?)",
		"idle", 99, baseTime, baseTime, baseTime).Error; err != nil {
		t.Fatalf("seed idle user: %v", err)
	}

	svc := NewRankingService(repository.NewLeaderboardRepository(db))
	results, err := svc.Calculate(context.Background(), "2026-03-10")
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(results) != 1 || results[0].UserID != "active" {
		t.Fatalf("results = %+v, want only active", results)
	}
	if results[0].StreakCount != 2 {
		t.Errorf("StreakCount = %d, want 2", results[0].StreakCount)
	}
}
