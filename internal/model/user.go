package model

import (
	"time"
)

type UserRole string

const (
	Learner UserRole = "learner"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name             string    `gorm:"size:100;not null" json:"name"`
	Email            string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password         string    `gorm:"size:100;not null" json:"-"`
	Role             UserRole  `gorm:"size:20;default:'learner'" json:"role"`
	WalletAddress    string    `gorm:"size:42;index" json:"walletAddress"`
	NativeLanguage   string    `gorm:"size:10" json:"nativeLanguage"`
	TargetLanguage   string    `gorm:"size:10" json:"targetLanguage"`
	ProficiencyLevel string    `gorm:"size:10" json:"proficiencyLevel"`
	Avatar           string    `gorm:"size:255" json:"avatar"`
	Disabled         bool      `gorm:"default:false" json:"disabled"`
	LastLogin        time.Time `json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}
