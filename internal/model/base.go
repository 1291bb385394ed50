package model

import (
	"time"

	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AllModels lists every table managed by AutoMigrate, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Challenge{},
		&UserChallenge{},
		&DailyProgress{},
		&Transaction{},
		&Notification{},
		&Achievement{},
		&Conversation{},
		&ConversationMessage{},
		&VoiceSession{},
		&SpeechSubmission{},
	}
}
