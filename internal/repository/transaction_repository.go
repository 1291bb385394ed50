package repository

import (
	"lingo_stake_backend/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	DB *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{DB: db}
}

func (r *TransactionRepository) Create(tx *model.Transaction) error {
	return r.DB.Create(tx).Error
}

func (r *TransactionRepository) ListByUser(userID uint, txType model.TransactionType, page, limit int) ([]model.Transaction, int64, error) {
	query := r.DB.Model(&model.Transaction{}).Where("user_id = ?", userID)
	if txType != "" {
		query = query.Where("transaction_type = ?", txType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Transaction
	err := query.Scopes(paginate(page, limit)).Order("created_at DESC").Find(&list).Error
	return list, total, err
}

func (r *TransactionRepository) FindByHash(hash string) (*model.Transaction, error) {
	var tx model.Transaction
	if err := r.DB.Where("tx_hash = ?", hash).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdateStatus is the only mutation allowed on a ledger mirror row.
func (r *TransactionRepository) UpdateStatus(id uint, status model.TransactionStatus) error {
	return r.DB.Model(&model.Transaction{}).Where("id = ?", id).Update("status", status).Error
}
