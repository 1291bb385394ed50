package model

import (
	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationChallengeJoined    NotificationType = "CHALLENGE_JOINED"
	NotificationChallengeCompleted NotificationType = "CHALLENGE_COMPLETED"
	NotificationChallengeFailed    NotificationType = "CHALLENGE_FAILED"
	NotificationPartialSuccess     NotificationType = "CHALLENGE_PARTIAL_SUCCESS"
	NotificationChallengeWithdrawn NotificationType = "CHALLENGE_WITHDRAWN"
	NotificationDailyReminder      NotificationType = "DAILY_REMINDER"
	NotificationStreakWarning      NotificationType = "STREAK_WARNING"
	NotificationRewardPaid         NotificationType = "REWARD_PAID"
	NotificationAchievement        NotificationType = "ACHIEVEMENT_UNLOCKED"
)

type Notification struct {
	BaseModel
	UserID  uint             `gorm:"not null;index" json:"userId"`
	Type    NotificationType `gorm:"size:32;not null" json:"type"`
	Title   string           `gorm:"size:200;not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	Data    datatypes.JSON   `json:"data,omitempty"`
	Read    bool             `gorm:"default:false;index" json:"read"`
}

func (Notification) TableName() string {
	return "notifications"
}
