package model

import "time"

type Achievement struct {
	BaseModel
	UserID      uint      `gorm:"not null;uniqueIndex:idx_user_achievement" json:"userId"`
	Code        string    `gorm:"size:50;not null;uniqueIndex:idx_user_achievement" json:"code"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Icon        string    `gorm:"size:255" json:"icon"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

func (Achievement) TableName() string {
	return "achievements"
}
