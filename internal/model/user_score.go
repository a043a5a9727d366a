package model

import "time"

// UserScore 用户面试练习的综合得分，每次会话完成后更新，从不删除
// swagger:model UserScore
type UserScore struct {
	BaseModel
	UserID                string    `gorm:"size:64;not null;uniqueIndex" json:"userId"`
	AIAccuracyScore       float64   `gorm:"not null;default:0" json:"aiAccuracyScore"`
	CommunicationScore    float64   `gorm:"not null;default:0" json:"communicationScore"`
	CompletionRate        float64   `gorm:"not null;default:0" json:"completionRate"`
	PerformanceScore      float64   `gorm:"not null;default:0;index" json:"performanceScore"`
	TotalInterviews       int       `gorm:"not null;default:0" json:"totalInterviews"`
	SuccessfulInterviews  int       `gorm:"not null;default:0" json:"successfulInterviews"`
	LastActivityTimestamp time.Time `gorm:"not null" json:"lastActivityTimestamp"`
	CountryCode           *string   `gorm:"size:8" json:"countryCode,omitempty"`
}

func (UserScore) TableName() string {
	return "user_scores"
}
