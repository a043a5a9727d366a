package service

import (
	"context"
	"errors"
	"fmt"
	"ranking_engine/internal/model"
	"ranking_engine/internal/repository"
	"ranking_engine/pkg/logger"
	"ranking_engine/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type StreakService struct {
	DB              *gorm.DB
	StreakRepo      *repository.StreakRepository
	AchievementRepo *repository.AchievementRepository
}

func NewStreakService(
	db *gorm.DB,
	streakRepo *repository.StreakRepository,
	achievementRepo *repository.AchievementRepository,
) *StreakService {
	return &StreakService{
		DB:              db,
		StreakRepo:      streakRepo,
		AchievementRepo: achievementRepo,
	}
}

// StreakUpdate 一次会话事件对连续练习状态的影响
type StreakUpdate struct {
	UserID          string             `json:"userId"`
	StreakCount     int                `json:"streakCount"`
	LongestStreak   int                `json:"longestStreak"`
	TotalSessions   int                `json:"totalSessions"`
	Status          model.StreakStatus `json:"status"`
	NewAchievements []string           `json:"newAchievements,omitempty"`
}

// NextStreak 计算已有记录在 sessionDate 发生一次会话后的新状态
func NextStreak(current model.UserStreak, sessionDate string) (model.UserStreak, model.StreakStatus, error) {
	next := current
	daysDiff, err := model.DaysBetween(current.LastActiveDate, sessionDate)
	if err != nil {
		return current, "", fmt.Errorf("invalid streak dates: %w", err)
	}

	next.TotalSessions++
	switch {
	case daysDiff == 0:
		return next, model.StreakMaintained, nil
	case daysDiff == 1:
		next.StreakCount++
		if next.StreakCount > next.LongestStreak {
			next.LongestStreak = next.StreakCount
		}
		next.LastActiveDate = sessionDate
		return next, model.StreakIncreased, nil
	default:
		// 断签或补录的历史日期都重新计数
		next.StreakCount = 1
		next.LastActiveDate = sessionDate
		if next.LongestStreak < 1 {
			next.LongestStreak = 1
		}
		return next, model.StreakReset, nil
	}
}

// UpdateStreak 在独立事务中更新用户连续练习状态
func (s *StreakService) UpdateStreak(ctx context.Context, userID, sessionDate string) (*StreakUpdate, error) {
	var update *StreakUpdate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		update, err = s.UpdateStreakTx(ctx, tx, userID, sessionDate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}

// UpdateStreakTx 在调用方事务内执行读-改-写，行锁保证同一用户串行
func (s *StreakService) UpdateStreakTx(ctx context.Context, tx *gorm.DB, userID, sessionDate string) (*StreakUpdate, error) {
	ctx, span := tracing.Tracer.Start(ctx, "streak.update")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("session_date", sessionDate))

	streaks := s.StreakRepo.WithTx(tx)

	current, err := streaks.LockByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		first := &model.UserStreak{
			UserID:         userID,
			LastActiveDate: sessionDate,
			StreakCount:    1,
			LongestStreak:  1,
			TotalSessions:  1,
		}
		created, err := streaks.CreateIfAbsent(ctx, first)
		if err != nil {
			return nil, fmt.Errorf("create streak: %w", err)
		}
		if created {
			return &StreakUpdate{
				UserID:        userID,
				StreakCount:   1,
				LongestStreak: 1,
				TotalSessions: 1,
				Status:        model.StreakNew,
			}, nil
		}
		// 并发的首次插入已由其他事务完成，重新加锁读取
		current, err = streaks.LockByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("reload streak: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load streak: %w", err)
	}

	next, status, err := NextStreak(*current, sessionDate)
	if err != nil {
		return nil, err
	}
	if err := streaks.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update streak: %w", err)
	}

	update := &StreakUpdate{
		UserID:        userID,
		StreakCount:   next.StreakCount,
		LongestStreak: next.LongestStreak,
		TotalSessions: next.TotalSessions,
		Status:        status,
	}

	if status == model.StreakIncreased {
		awarded, err := s.checkMilestones(ctx, tx, userID, next.StreakCount, sessionDate)
		if err != nil {
			return nil, err
		}
		update.NewAchievements = awarded
	}
	return update, nil
}

func (s *StreakService) checkMilestones(ctx context.Context, tx *gorm.DB, userID string, streakCount int, sessionDate string) ([]string, error) {
	if !model.IsStreakMilestone(streakCount) {
		return nil, nil
	}

	achievement := model.NewStreakAchievement(userID, streakCount, sessionDate)
	created, err := s.AchievementRepo.WithTx(tx).CreateIfAbsent(ctx, achievement)
	if err != nil {
		return nil, fmt.Errorf("award %s: %w", achievement.AchievementType, err)
	}
	if !created {
		return nil, nil
	}

	logger.Log.Info("Streak achievement awarded",
		zap.String("user_id", userID),
		zap.String("achievement", achievement.AchievementType))
	return []string{achievement.AchievementType}, nil
}

// CheckMilestones 单独补发里程碑成就，重复调用不会产生重复记录
func (s *StreakService) CheckMilestones(ctx context.Context, userID string, streakCount int, date string) ([]string, error) {
	return s.checkMilestones(ctx, s.DB, userID, streakCount, date)
}

func (s *StreakService) GetAchievements(ctx context.Context, userID string) ([]model.Achievement, error) {
	return s.AchievementRepo.FindByUserID(ctx, userID)
}
