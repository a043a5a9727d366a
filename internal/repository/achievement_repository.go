package repository

import (
	"context"
	"ranking_engine/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) WithTx(tx *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: tx}
}

// CreateIfAbsent 幂等写入成就，(user_id, achievement_type) 冲突时忽略
func (r *AchievementRepository) CreateIfAbsent(ctx context.Context, achievement *model.Achievement) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_type"}},
			DoNothing: true,
		}).
		Create(achievement)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AchievementRepository) FindByUserID(ctx context.Context, userID string) ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("streak_milestone asc, created_at asc").
		Find(&achievements).Error
	if err != nil {
		return nil, err
	}
	return achievements, nil
}
