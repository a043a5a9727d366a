package service

import (
	"context"
	"ranking_engine/internal/model"
	"ranking_engine/internal/repository"
	"ranking_engine/internal/testutil"
	"testing"

	"gorm.io/gorm"
)

func newStreakService(db *gorm.DB) *StreakService {
	return NewStreakService(db, repository.NewStreakRepository(db), repository.NewAchievementRepository(db))
}

func TestNextStreak(t *testing.T) {
	current := model.UserStreak{
		UserID:         "u1",
		LastActiveDate: "2026-03-10",
		StreakCount:    4,
		LongestStreak:  6,
		TotalSessions:  9,
	}

	tests := []struct {
		name        string
		date        string
		wantStatus  model.StreakStatus
		wantStreak  int
		wantLongest int
		wantLast    string
	}{
		{"same day", "2026-03-10", model.StreakMaintained, 4, 6, "2026-03-10"},
		{"next day", "2026-03-11", model.StreakIncreased, 5, 6, "2026-03-11"},
		{"gap", "2026-03-13", model.StreakReset, 1, 6, "2026-03-13"},
		{"backdated", "2026-03-08", model.StreakReset, 1, 6, "2026-03-08"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, status, err := NextStreak(current, tt.date)
			if err != nil {
				t.Fatalf("NextStreak: %v", err)
			}
			if status != tt.wantStatus {
				t.Errorf("status = %s, want %s", status, tt.wantStatus)
			}
			if next.StreakCount != tt.wantStreak || next.LongestStreak != tt.wantLongest || next.LastActiveDate != tt.wantLast {
				t.Errorf("got streak=%d longest=%d last=%s", next.StreakCount, next.LongestStreak, next.LastActiveDate)
			}
			if next.TotalSessions != current.TotalSessions+1 {
				t.Errorf("TotalSessions = %d, want %d", next.TotalSessions, current.TotalSessions+1)
			}
		})
	}
}

func TestNextStreakRaisesLongest(t *testing.T) {
	next, _, err := NextStreak(model.UserStreak{LastActiveDate: "2026-03-10", StreakCount: 6, LongestStreak: 6}, "2026-03-11")
	if err != nil {
		t.Fatal(err)
	}
	if next.StreakCount != 7 || next.LongestStreak != 7 {
		t.Errorf("streak=%d longest=%d, want 7/7", next.StreakCount, next.LongestStreak)
	}
}

func TestNextStreakRejectsBadDate(t *testing.T) {
	if _, _, err := NextStreak(model.UserStreak{LastActiveDate: "2026-03-10"}, "not-a-date"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestUpdateStreakTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newStreakService(db)
	ctx := context.Background()

	steps := []struct {
		date       string
		wantStatus model.StreakStatus
		wantStreak int
	}{
		{"2026-03-01", model.StreakNew, 1},
		{"2026-03-01", model.StreakMaintained, 1},
		{"2026-03-02", model.StreakIncreased, 2},
		{"2026-03-05", model.StreakReset, 1},
	}
	for i, step := range steps {
		update, err := svc.UpdateStreak(ctx, "alice", step.date)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if update.Status != step.wantStatus || update.StreakCount != step.wantStreak {
			t.Fatalf("step %d: status=%s streak=%d, want %s/%d", i, update.Status, update.StreakCount, step.wantStatus, step.wantStreak)
		}
		if update.TotalSessions != i+1 {
			t.Errorf("step %d: TotalSessions = %d, want %d", i, update.TotalSessions, i+1)
		}
	}

	stored, err := svc.StreakRepo.FindByUserID(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if stored.LongestStreak != 2 || stored.StreakCount != 1 || stored.LastActiveDate != "2026-03-05" {
		t.Errorf("stored = %+v", stored)
	}
	if stored.StreakCount > stored.LongestStreak {
		t.Error("streak_count must never exceed longest_streak")
	}
}

func TestUpdateStreakReplayIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newStreakService(db)
	ctx := context.Background()

	if _, err := svc.UpdateStreak(ctx, "bob", "2026-03-01"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStreak(ctx, "bob", "2026-03-02"); err != nil {
		t.Fatal(err)
	}
	replay, err := svc.UpdateStreak(ctx, "bob", "2026-03-02")
	if err != nil {
		t.Fatal(err)
	}
	if replay.Status != model.StreakMaintained || replay.StreakCount != 2 {
		t.Errorf("replay status=%s streak=%d, want maintained/2", replay.Status, replay.StreakCount)
	}
}

func TestMilestoneAwardedOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newStreakService(db)
	ctx := context.Background()

	dates := []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07"}
	var last *StreakUpdate
	for _, d := range dates {
		update, err := svc.UpdateStreak(ctx, "carol", d)
		if err != nil {
			t.Fatalf("%s: %v", d, err)
		}
		last = update
	}
	if last.StreakCount != 7 {
		t.Fatalf("streak = %d, want 7", last.StreakCount)
	}
	if len(last.NewAchievements) != 1 || last.NewAchievements[0] != "streak_7" {
		t.Errorf("NewAchievements = %v, want [streak_7]", last.NewAchievements)
	}

	// 重复检查不会产生新记录
	again, err := svc.CheckMilestones(ctx, "carol", 7, "2026-03-07")
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("second check awarded %v", again)
	}

	achievements, err := svc.GetAchievements(ctx, "carol")
	if err != nil {
		t.Fatal(err)
	}
	count := map[string]int{}
	for _, a := range achievements {
		count[a.AchievementType]++
	}
	if count["streak_3"] != 1 || count["streak_7"] != 1 || len(achievements) != 2 {
		t.Errorf("achievements = %v", count)
	}
}

func TestMilestoneNotAwardedOnReset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newStreakService(db)
	ctx := context.Background()

	for _, d := range []string{"2026-03-01", "2026-03-02", "2026-03-10"} {
		if _, err := svc.UpdateStreak(ctx, "dave", d); err != nil {
			t.Fatal(err)
		}
	}
	achievements, err := svc.GetAchievements(ctx, "dave")
	if err != nil {
		t.Fatal(err)
	}
	if len(achievements) != 0 {
		t.Errorf("unexpected achievements %+v", achievements)
	}
}
