package model

// UserStreak 连续练习天数记录，每个用户一行
// swagger:model UserStreak
type UserStreak struct {
	BaseModel
	UserID         string `gorm:"size:64;not null;uniqueIndex" json:"userId"`
	LastActiveDate string `gorm:"size:10;not null" json:"lastActiveDate"`
	StreakCount    int    `gorm:"not null;default:1" json:"streakCount"`
	LongestStreak  int    `gorm:"not null;default:1" json:"longestStreak"`
	TotalSessions  int    `gorm:"not null;default:0" json:"totalSessions"`
}

func (UserStreak) TableName() string {
	return "user_streaks"
}

type StreakStatus string

const (
	StreakNew        StreakStatus = "new"
	StreakMaintained StreakStatus = "maintained"
	StreakIncreased  StreakStatus = "increased"
	StreakReset      StreakStatus = "reset"
)
