package model

import (
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionStake                TransactionType = "STAKE"
	TransactionReward               TransactionType = "REWARD"
	TransactionContractRegistration TransactionType = "CONTRACT_REGISTRATION"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionConfirmed TransactionStatus = "CONFIRMED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// Transaction mirrors one chain event. Rows are append-only; only Status changes.
type Transaction struct {
	BaseModel
	UserID          uint              `gorm:"not null;index" json:"userId"`
	ChallengeID     *uint             `gorm:"index" json:"challengeId,omitempty"`
	UserChallengeID *uint             `gorm:"index" json:"userChallengeId,omitempty"`
	TransactionType TransactionType   `gorm:"size:32;not null" json:"transactionType"`
	Amount          decimal.Decimal   `gorm:"type:decimal(20,6);default:0" json:"amount"`
	Currency        string            `gorm:"size:10;not null" json:"currency"`
	TxHash          string            `gorm:"size:66;not null;index" json:"txHash"`
	Status          TransactionStatus `gorm:"size:16;not null" json:"status"`
}

func (Transaction) TableName() string {
	return "transactions"
}
