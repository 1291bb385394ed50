package model

import (
	"github.com/shopspring/decimal"
)

// Proficiency levels follow the CEFR scale.
var ProficiencyLevels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

// Challenge is the template users stake against. Its terms are frozen once
// anyone has joined; only the on-chain linkage and the active flag may change.
// swagger:model Challenge
type Challenge struct {
	BaseModel
	Title            string          `gorm:"size:120;not null" json:"title"`
	Description      string          `gorm:"type:text" json:"description"`
	LanguageCode     string          `gorm:"size:10;not null;index" json:"languageCode"`
	ProficiencyLevel string          `gorm:"size:10;not null;index" json:"proficiencyLevel"`
	DurationDays     int             `gorm:"not null" json:"durationDays"`
	DailyRequirement int             `gorm:"not null" json:"dailyRequirement"` // minutes
	StakeAmount      decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"stakeAmount"`
	YieldPercentage  float64         `gorm:"not null;default:0" json:"yieldPercentage"`
	IsHardcore       bool            `gorm:"default:false" json:"isHardcore"`
	MaxParticipants  int             `gorm:"default:0" json:"maxParticipants"` // 0 = unlimited
	InviteCode       string          `gorm:"size:16;uniqueIndex;not null" json:"inviteCode"`
	CreatorID        uint            `gorm:"index;not null" json:"creatorId"`
	IsActive         bool            `gorm:"default:true;index" json:"isActive"`
	ContractAddress  string          `gorm:"size:42" json:"contractAddress,omitempty"`
	ContractChain    string          `gorm:"size:32" json:"contractChain,omitempty"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// HasContract reports whether the creator linked a dedicated staking contract.
func (c *Challenge) HasContract() bool {
	return c.ContractAddress != ""
}
