package service

import (
	"context"
	"errors"
	"ranking_engine/internal/model"
	"ranking_engine/internal/repository"
	"ranking_engine/internal/testutil"
	"ranking_engine/internal/util"
	"ranking_engine/internal/worker"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// inlineSubmitter 同步执行任务，便于断言持久化结果
type inlineSubmitter struct {
	err     error
	tasks   int
	lastErr error
}

func (s *inlineSubmitter) Submit(task worker.Task) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.tasks++
	s.lastErr = task.Run(context.Background())
	return "task", nil
}

func newSessionService(db *gorm.DB, submitter TaskSubmitter, rdb *redis.Client, clock *testutil.FixedClock) *SessionService {
	svc := NewSessionService(db, repository.NewScoreRepository(db), newStreakService(db), submitter, rdb, time.UTC)
	svc.SetClock(clock.Now)
	return svc
}

func floatPtr(v float64) *float64 { return &v }

func TestRecordSessionReturnsScoreAndPersists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clock := testutil.NewFixedClock(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	submitter := &inlineSubmitter{}
	svc := newSessionService(db, submitter, nil, clock)
	ctx := context.Background()

	result, err := svc.RecordSession(ctx, SessionInput{
		UserID:             "alice",
		AIAccuracyScore:    floatPtr(100),
		CommunicationScore: floatPtr(100),
		Completed:          true,
	})
	if err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if result.PerformanceScore != 100 || result.Status != "success" {
		t.Errorf("result = %+v", result)
	}
	if submitter.lastErr != nil {
		t.Fatalf("task failed: %v", submitter.lastErr)
	}

	score, err := svc.ScoreRepo.FindByUserID(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if score.TotalInterviews != 1 || score.SuccessfulInterviews != 1 || score.PerformanceScore != 100 {
		t.Errorf("score = %+v", score)
	}
	streak, err := svc.Streaks.StreakRepo.FindByUserID(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if streak.StreakCount != 1 || streak.LastActiveDate != "2026-03-10" {
		t.Errorf("streak = %+v", streak)
	}
}

func TestRecordSessionClampsInputs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clock := testutil.NewFixedClock(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	svc := newSessionService(db, &inlineSubmitter{}, nil, clock)

	result, err := svc.RecordSession(context.Background(), SessionInput{
		UserID:             "alice",
		AIAccuracyScore:    floatPtr(140),
		CommunicationScore: floatPtr(-20),
		Completed:          false,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.PerformanceScore != 60 {
		t.Errorf("PerformanceScore = %v, want 60", result.PerformanceScore)
	}
}

func TestRecordSessionValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clock := testutil.NewFixedClock(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	submitter := &inlineSubmitter{}
	svc := newSessionService(db, submitter, nil, clock)

	cases := []SessionInput{
		{AIAccuracyScore: floatPtr(1), CommunicationScore: floatPtr(1)},
		{UserID: "  ", AIAccuracyScore: floatPtr(1), CommunicationScore: floatPtr(1)},
		{UserID: "alice", CommunicationScore: floatPtr(1)},
		{UserID: "alice", AIAccuracyScore: floatPtr(1)},
	}
	for i, in := range cases {
		if _, err := svc.RecordSession(context.Background(), in); !errors.Is(err, util.ErrValidation) {
			t.Errorf("case %d: err = %v, want ErrValidation", i, err)
		}
	}
	if submitter.tasks != 0 {
		t.Errorf("invalid sessions must not be queued, got %d tasks", submitter.tasks)
	}
}

func TestRecordSessionQueueFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clock := testutil.NewFixedClock(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	svc := newSessionService(db, &inlineSubmitter{err: util.ErrQueueFull}, nil, clock)

	_, err := svc.RecordSession(context.Background(), SessionInput{
		UserID:             "alice",
		AIAccuracyScore:    floatPtr(50),
		CommunicationScore: floatPtr(50),
	})
	if !errors.Is(err, util.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestRecordSessionDeduplicatesEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, rdb := newTestRedis(t)
	clock := testutil.NewFixedClock(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	submitter := &inlineSubmitter{}
	svc := newSessionService(db, submitter, rdb, clock)
	ctx := context.Background()

	in := SessionInput{
		UserID:             "alice",
		AIAccuracyScore:    floatPtr(80),
		CommunicationScore: floatPtr(80),
		Completed:          true,
		EventID:            "evt-1",
	}
	if _, err := svc.RecordSession(ctx, in); err != nil {
		t.Fatal(err)
	}
	dup, err := svc.RecordSession(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if !dup.Duplicate || submitter.tasks != 1 {
		t.Errorf("duplicate=%v tasks=%d, want true/1", dup.Duplicate, submitter.tasks)
	}

	score, err := svc.ScoreRepo.FindByUserID(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if score.TotalInterviews != 1 {
		t.Errorf("TotalInterviews = %d, want 1", score.TotalInterviews)
	}
}

func TestRecordSessionReleasesDedupKeyWhenQueueFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr, rdb := newTestRedis(t)
	clock := testutil.NewFixedClock(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	svc := newSessionService(db, &inlineSubmitter{err: util.ErrQueueFull}, rdb, clock)

	_, err := svc.RecordSession(context.Background(), SessionInput{
		UserID:             "alice",
		AIAccuracyScore:    floatPtr(80),
		CommunicationScore: floatPtr(80),
		EventID:            "evt-2",
	})
	if !errors.Is(err, util.ErrQueueFull) {
		t.Fatalf("err = %v", err)
	}
	if mr.Exists("ranking:session:event:evt-2") {
		t.Error("dedup key should be released so the client can retry")
	}
}

func TestFailedSessionRollsBackAndAllowsRetry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr, rdb := newTestRedis(t)
	clock := testutil.NewFixedClock(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	submitter := &inlineSubmitter{}
	svc := newSessionService(db, submitter, rdb, clock)
	ctx := context.Background()

	// 连续练习表缺失时整个事务失败，得分更新也不能落库
	if err := db.Migrator().DropTable(&model.UserStreak{}); err != nil {
		t.Fatal(err)
	}
	in := SessionInput{
		UserID:             "alice",
		AIAccuracyScore:    floatPtr(80),
		CommunicationScore: floatPtr(80),
		Completed:          true,
		EventID:            "evt-3",
	}
	if _, err := svc.RecordSession(ctx, in); err != nil {
		t.Fatal(err)
	}
	if submitter.lastErr == nil {
		t.Fatal("expected background task to fail")
	}
	var rows int64
	db.Model(&model.UserScore{}).Count(&rows)
	if rows != 0 {
		t.Errorf("user_scores rows after failed transaction = %d, want 0", rows)
	}
	if mr.Exists("ranking:session:event:evt-3") {
		t.Error("dedup key should be released after a failed task")
	}

	if err := db.AutoMigrate(&model.UserStreak{}); err != nil {
		t.Fatal(err)
	}
	retry, err := svc.RecordSession(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if retry.Duplicate || submitter.lastErr != nil {
		t.Fatalf("retry duplicate=%v err=%v", retry.Duplicate, submitter.lastErr)
	}
	score, err := svc.ScoreRepo.FindByUserID(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if score.TotalInterviews != 1 {
		t.Errorf("TotalInterviews = %d, want 1", score.TotalInterviews)
	}
}

func TestApplySessionScoreRunningAverage(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	country := "DE"

	first := applySessionScore(model.UserScore{UserID: "u"}, SessionEvent{
		AIAccuracy: 80, Communication: 60, Completed: true, OccurredAt: at, CountryCode: &country,
	})
	second := applySessionScore(first, SessionEvent{
		AIAccuracy: 60, Communication: 100, Completed: false, OccurredAt: at.Add(time.Hour),
	})

	if second.AIAccuracyScore != 70 || second.CommunicationScore != 80 {
		t.Errorf("averages = %v / %v, want 70 / 80", second.AIAccuracyScore, second.CommunicationScore)
	}
	if second.TotalInterviews != 2 || second.SuccessfulInterviews != 1 || second.CompletionRate != 50 {
		t.Errorf("counts = %d/%d rate=%v", second.TotalInterviews, second.SuccessfulInterviews, second.CompletionRate)
	}
	// 0.6*70 + 0.3*80 + 0.1*50
	if second.PerformanceScore != 71 {
		t.Errorf("PerformanceScore = %v, want 71", second.PerformanceScore)
	}
	if second.CountryCode == nil || *second.CountryCode != "DE" {
		t.Error("country code should be kept when the event carries none")
	}
	if !second.LastActivityTimestamp.Equal(at.Add(time.Hour)) {
		t.Errorf("LastActivityTimestamp = %v", second.LastActivityTimestamp)
	}
}

func TestSessionsAcrossDaysBuildStreak(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clock := testutil.NewFixedClock(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC))
	submitter := &inlineSubmitter{}
	svc := newSessionService(db, submitter, nil, clock)
	ctx := context.Background()

	in := SessionInput{UserID: "erin", AIAccuracyScore: floatPtr(70), CommunicationScore: floatPtr(70), Completed: true}
	for i := 0; i < 3; i++ {
		if _, err := svc.RecordSession(ctx, in); err != nil {
			t.Fatal(err)
		}
		if submitter.lastErr != nil {
			t.Fatal(submitter.lastErr)
		}
		clock.AddDays(1)
	}

	streak, err := svc.Streaks.StreakRepo.FindByUserID(ctx, "erin")
	if err != nil {
		t.Fatal(err)
	}
	if streak.StreakCount != 3 || streak.TotalSessions != 3 {
		t.Errorf("streak = %+v", streak)
	}
	achievements, _ := svc.Streaks.GetAchievements(ctx, "erin")
	if len(achievements) != 1 || achievements[0].AchievementType != "streak_3" {
		t.Errorf("achievements = %+v", achievements)
	}
}
