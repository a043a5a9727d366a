package model

import (
	"fmt"

	"gorm.io/datatypes"
)

// StreakMilestones 触发连续练习成就的天数
var StreakMilestones = []int{3, 7, 14, 30, 60, 100}

// Achievement 用户成就，(user_id, achievement_type) 唯一
// swagger:model Achievement
type Achievement struct {
	BaseModel
	UserID                 string         `gorm:"size:64;not null;uniqueIndex:idx_achievement_user_type" json:"userId"`
	AchievementType        string         `gorm:"size:50;not null;uniqueIndex:idx_achievement_user_type" json:"achievementType"`
	AchievementName        string         `gorm:"size:100;not null" json:"achievementName"`
	AchievementDescription string         `gorm:"size:255" json:"achievementDescription"`
	StreakMilestone        int            `gorm:"default:0" json:"streakMilestone"`
	Metadata               datatypes.JSON `json:"metadata,omitempty" swaggertype:"object"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// IsStreakMilestone 判断连续天数是否命中成就节点
func IsStreakMilestone(days int) bool {
	for _, m := range StreakMilestones {
		if m == days {
			return true
		}
	}
	return false
}

func NewStreakAchievement(userID string, days int, reachedOn string) *Achievement {
	return &Achievement{
		UserID:                 userID,
		AchievementType:        fmt.Sprintf("streak_%d", days),
		AchievementName:        fmt.Sprintf("%d Day Streak", days),
		AchievementDescription: fmt.Sprintf("Maintained a %d day practice streak", days),
		StreakMilestone:        days,
		Metadata:               datatypes.JSON(fmt.Sprintf(`{"reached_on":%q}`, reachedOn)),
	}
}
