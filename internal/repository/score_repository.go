package repository

import (
	"context"
	"ranking_engine/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScoreRepository struct {
	DB *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{DB: db}
}

func (r *ScoreRepository) WithTx(tx *gorm.DB) *ScoreRepository {
	return &ScoreRepository{DB: tx}
}

func (r *ScoreRepository) FindByUserID(ctx context.Context, userID string) (*model.UserScore, error) {
	var score model.UserScore
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&score).Error
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *ScoreRepository) LockByUserID(ctx context.Context, userID string) (*model.UserScore, error) {
	var score model.UserScore
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&score).Error
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *ScoreRepository) CreateIfAbsent(ctx context.Context, score *model.UserScore) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(score)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ScoreRepository) Update(ctx context.Context, score *model.UserScore) error {
	return r.DB.WithContext(ctx).
		Model(&model.UserScore{}).
		Where("user_id = ?", score.UserID).
		Updates(map[string]interface{}{
			"ai_accuracy_score":       score.AIAccuracyScore,
			"communication_score":     score.CommunicationScore,
			"completion_rate":         score.CompletionRate,
			"performance_score":       score.PerformanceScore,
			"total_interviews":        score.TotalInterviews,
			"successful_interviews":   score.SuccessfulInterviews,
			"last_activity_timestamp": score.LastActivityTimestamp,
			"country_code":            score.CountryCode,
		}).Error
}
