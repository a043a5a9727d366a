package repository

import (
	"context"
	"ranking_engine/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StreakRepository struct {
	DB *gorm.DB
}

func NewStreakRepository(db *gorm.DB) *StreakRepository {
	return &StreakRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库
func (r *StreakRepository) WithTx(tx *gorm.DB) *StreakRepository {
	return &StreakRepository{DB: tx}
}

// FindByUserID 不存在时返回 gorm.ErrRecordNotFound
func (r *StreakRepository) FindByUserID(ctx context.Context, userID string) (*model.UserStreak, error) {
	var streak model.UserStreak
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&streak).Error
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

// LockByUserID 在事务中以 FOR UPDATE 读取，保证同一用户的更新串行
func (r *StreakRepository) LockByUserID(ctx context.Context, userID string) (*model.UserStreak, error) {
	var streak model.UserStreak
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&streak).Error
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

// CreateIfAbsent 插入首条记录，已存在时不做任何修改并返回 false
func (r *StreakRepository) CreateIfAbsent(ctx context.Context, streak *model.UserStreak) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(streak)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *StreakRepository) Update(ctx context.Context, streak *model.UserStreak) error {
	return r.DB.WithContext(ctx).
		Model(&model.UserStreak{}).
		Where("user_id = ?", streak.UserID).
		Updates(map[string]interface{}{
			"last_active_date": streak.LastActiveDate,
			"streak_count":     streak.StreakCount,
			"longest_streak":   streak.LongestStreak,
			"total_sessions":   streak.TotalSessions,
		}).Error
}
