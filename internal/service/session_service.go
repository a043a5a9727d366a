package service

import (
	"context"
	"errors"
	"fmt"
	"ranking_engine/internal/model"
	"ranking_engine/internal/repository"
	"ranking_engine/internal/util"
	"ranking_engine/internal/worker"
	"ranking_engine/pkg/logger"
	"ranking_engine/pkg/monitoring"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sessionTaskName   = "session.process"
	sessionDedupKey   = "ranking:session:event:%s"
	defaultSessionTTL = 24 * time.Hour
)

// TaskSubmitter 后台任务队列
type TaskSubmitter interface {
	Submit(task worker.Task) (string, error)
}

// SessionInput 一次面试练习完成事件
type SessionInput struct {
	UserID             string   `json:"user_id" binding:"required,max=64"`
	AIAccuracyScore    *float64 `json:"ai_accuracy_score" binding:"required"`
	CommunicationScore *float64 `json:"communication_score" binding:"required"`
	Completed          bool     `json:"completed"`
	CountryCode        *string  `json:"country_code,omitempty" binding:"omitempty,max=8"`
	// EventID 可选，配置了 Redis 时用于丢弃重复投递的事件
	EventID string `json:"event_id,omitempty" binding:"omitempty,max=128"`
}

type SessionResult struct {
	Status           string  `json:"status"`
	PerformanceScore float64 `json:"performance_score"`
	Duplicate        bool    `json:"duplicate,omitempty"`
}

// SessionEvent 已校验并截断到 0-100 的事件
type SessionEvent struct {
	UserID        string
	AIAccuracy    float64
	Communication float64
	Completed     bool
	CountryCode   *string
	OccurredAt    time.Time
	SessionDate   string
}

type SessionService struct {
	DB         *gorm.DB
	ScoreRepo  *repository.ScoreRepository
	Streaks    *StreakService
	Dispatcher TaskSubmitter
	// Redis 为 nil 时不做事件去重
	Redis    *redis.Client
	DedupTTL time.Duration

	now func() time.Time
	loc *time.Location
}

func NewSessionService(
	db *gorm.DB,
	scoreRepo *repository.ScoreRepository,
	streaks *StreakService,
	dispatcher TaskSubmitter,
	rdb *redis.Client,
	loc *time.Location,
) *SessionService {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionService{
		DB:         db,
		ScoreRepo:  scoreRepo,
		Streaks:    streaks,
		Dispatcher: dispatcher,
		Redis:      rdb,
		DedupTTL:   defaultSessionTTL,
		now:        time.Now,
		loc:        loc,
	}
}

func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

func validateSession(in SessionInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", util.ErrValidation)
	}
	if in.AIAccuracyScore == nil {
		return fmt.Errorf("%w: ai_accuracy_score is required", util.ErrValidation)
	}
	if in.CommunicationScore == nil {
		return fmt.Errorf("%w: communication_score is required", util.ErrValidation)
	}
	return nil
}

// RecordSession 同步计算本次表现分并把持久化更新交给后台任务，不等待任务完成
func (s *SessionService) RecordSession(ctx context.Context, in SessionInput) (*SessionResult, error) {
	if err := validateSession(in); err != nil {
		monitoring.SessionsRecorded.WithLabelValues("invalid").Inc()
		return nil, err
	}

	now := s.now()
	event := SessionEvent{
		UserID:        strings.TrimSpace(in.UserID),
		AIAccuracy:    ClampScore(*in.AIAccuracyScore),
		Communication: ClampScore(*in.CommunicationScore),
		Completed:     in.Completed,
		OccurredAt:    now.UTC(),
		SessionDate:   model.DateOf(now, s.loc),
	}
	if in.CountryCode != nil && strings.TrimSpace(*in.CountryCode) != "" {
		code := strings.ToUpper(strings.TrimSpace(*in.CountryCode))
		event.CountryCode = &code
	}

	score := PerformanceScore(event.AIAccuracy, event.Communication, CompletionRate(event.Completed))
	result := &SessionResult{Status: "success", PerformanceScore: score}

	dedupKey, err := s.claimEvent(ctx, in.EventID)
	if errors.Is(err, util.ErrDuplicateEvent) {
		monitoring.SessionsRecorded.WithLabelValues("duplicate").Inc()
		result.Duplicate = true
		return result, nil
	}
	if err != nil {
		// 去重只是尽力而为，Redis 故障时继续处理
		logger.Log.Warn("Session dedup check failed", zap.String("event_id", in.EventID), zap.Error(err))
	}

	_, err = s.Dispatcher.Submit(worker.Task{
		Name: sessionTaskName,
		Run: func(ctx context.Context) error {
			if _, err := s.ProcessSession(ctx, event); err != nil {
				s.releaseEvent(dedupKey)
				return err
			}
			return nil
		},
	})
	if err != nil {
		s.releaseEvent(dedupKey)
		monitoring.SessionsRecorded.WithLabelValues("rejected").Inc()
		return nil, err
	}

	monitoring.SessionsRecorded.WithLabelValues("accepted").Inc()
	return result, nil
}

func (s *SessionService) claimEvent(ctx context.Context, eventID string) (string, error) {
	if s.Redis == nil || eventID == "" {
		return "", nil
	}
	key := fmt.Sprintf(sessionDedupKey, eventID)
	ttl := s.DedupTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	ok, err := s.Redis.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", util.ErrDuplicateEvent
	}
	return key, nil
}

// releaseEvent 事件未能入队或处理失败时释放去重标记，允许客户端重试
func (s *SessionService) releaseEvent(key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Redis.Del(ctx, key).Err(); err != nil {
		logger.Log.Warn("Failed to release session dedup key", zap.String("key", key), zap.Error(err))
	}
}

// applySessionScore 把一次会话累加到用户得分上，AI 与沟通分为历史平均值
func applySessionScore(current model.UserScore, event SessionEvent) model.UserScore {
	next := current
	n := float64(current.TotalInterviews)
	next.AIAccuracyScore = round2((current.AIAccuracyScore*n + event.AIAccuracy) / (n + 1))
	next.CommunicationScore = round2((current.CommunicationScore*n + event.Communication) / (n + 1))
	next.TotalInterviews = current.TotalInterviews + 1
	if event.Completed {
		next.SuccessfulInterviews = current.SuccessfulInterviews + 1
	}
	next.CompletionRate = round2(float64(next.SuccessfulInterviews) / float64(next.TotalInterviews) * 100)
	next.PerformanceScore = PerformanceScore(next.AIAccuracyScore, next.CommunicationScore, next.CompletionRate)
	if event.OccurredAt.After(current.LastActivityTimestamp) {
		next.LastActivityTimestamp = event.OccurredAt
	}
	if event.CountryCode != nil {
		next.CountryCode = event.CountryCode
	}
	return next
}

// ProcessSession 在一个事务里更新得分汇总和连续练习状态
func (s *SessionService) ProcessSession(ctx context.Context, event SessionEvent) (*StreakUpdate, error) {
	var update *StreakUpdate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.updateScoreTx(ctx, tx, event); err != nil {
			return err
		}
		var err error
		update, err = s.Streaks.UpdateStreakTx(ctx, tx, event.UserID, event.SessionDate)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("process session for %s: %w", event.UserID, err)
	}

	monitoring.StreakTransitions.WithLabelValues(string(update.Status)).Inc()
	logger.Log.Info("Session processed",
		zap.String("user_id", event.UserID),
		zap.String("session_date", event.SessionDate),
		zap.String("streak_status", string(update.Status)),
		zap.Int("streak_count", update.StreakCount))
	return update, nil
}

func (s *SessionService) updateScoreTx(ctx context.Context, tx *gorm.DB, event SessionEvent) error {
	scores := s.ScoreRepo.WithTx(tx)

	current, err := scores.LockByUserID(ctx, event.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		first := applySessionScore(model.UserScore{UserID: event.UserID}, event)
		first.LastActivityTimestamp = event.OccurredAt
		created, err := scores.CreateIfAbsent(ctx, &first)
		if err != nil {
			return fmt.Errorf("create user score: %w", err)
		}
		if created {
			return nil
		}
		current, err = scores.LockByUserID(ctx, event.UserID)
		if err != nil {
			return fmt.Errorf("reload user score: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load user score: %w", err)
	}

	next := applySessionScore(*current, event)
	if err := scores.Update(ctx, &next); err != nil {
		return fmt.Errorf("update user score: %w", err)
	}
	return nil
}
