package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserChallengeStatus string

const (
	UserChallengeActive    UserChallengeStatus = "ACTIVE"
	UserChallengeCompleted UserChallengeStatus = "COMPLETED"
	UserChallengeFailed    UserChallengeStatus = "FAILED"
	UserChallengeWithdrawn UserChallengeStatus = "WITHDRAWN"
)

// IsTerminal reports whether no further transition is allowed.
func (s UserChallengeStatus) IsTerminal() bool {
	return s != UserChallengeActive
}

// UserChallenge is one user's enrollment. (user_id, challenge_id) is unique,
// which is what makes a second join impossible regardless of status.
// swagger:model UserChallenge
type UserChallenge struct {
	BaseModel
	UserID             uint                `gorm:"not null;uniqueIndex:idx_user_challenge" json:"userId"`
	ChallengeID        uint                `gorm:"not null;uniqueIndex:idx_user_challenge;index" json:"challengeId"`
	Challenge          *Challenge          `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	StartDate          time.Time           `gorm:"not null" json:"startDate"`
	EndDate            time.Time           `gorm:"not null;index" json:"endDate"`
	StakedAmount       decimal.Decimal     `gorm:"type:decimal(20,6);not null" json:"stakedAmount"`
	StakeTxHash        string              `gorm:"size:66;not null" json:"stakeTxHash"`
	WalletAddress      string              `gorm:"size:42;not null" json:"walletAddress"`
	CurrentStreak      int                 `gorm:"default:0" json:"currentStreak"`
	LongestStreak      int                 `gorm:"default:0" json:"longestStreak"`
	ProgressPercentage int                 `gorm:"default:0" json:"progressPercentage"`
	Status             UserChallengeStatus `gorm:"size:16;not null;default:'ACTIVE';index" json:"status"`
	CompletionTxHash   string              `gorm:"size:66" json:"completionTxHash,omitempty"`
	RewardAmount       decimal.Decimal     `gorm:"type:decimal(20,6);default:0" json:"rewardAmount"`
	CompletedAt        *time.Time          `json:"completedAt,omitempty"`
}

func (UserChallenge) TableName() string {
	return "user_challenges"
}

// RewardSettled reports whether a payout has already been recorded.
func (uc *UserChallenge) RewardSettled() bool {
	return uc.CompletionTxHash != ""
}
