package repository

import (
	"lingo_stake_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ConversationRepository struct {
	DB *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{DB: db}
}

func (r *ConversationRepository) Create(conv *model.Conversation) error {
	return r.DB.Create(conv).Error
}

// FindByIDAndUser loads the conversation with its messages in order.
func (r *ConversationRepository) FindByIDAndUser(id, userID uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.DB.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("id = ? AND user_id = ?", id, userID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) ListByUser(userID uint, page, limit int) ([]model.Conversation, int64, error) {
	query := r.DB.Model(&model.Conversation{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Conversation
	err := query.Scopes(paginate(page, limit)).Order("updated_at DESC").Find(&list).Error
	return list, total, err
}

// AppendMessages stores the messages and bumps the conversation's updated_at.
func (r *ConversationRepository) AppendMessages(convID uint, msgs ...model.ConversationMessage) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for i := range msgs {
			msgs[i].ConversationID = convID
			if err := tx.Create(&msgs[i]).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.Conversation{}).Where("id = ?", convID).Update("updated_at", time.Now()).Error
	})
}

func (r *ConversationRepository) Delete(id, userID uint) (bool, error) {
	var deleted bool
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Where("conversation_id = ?", id).Delete(&model.ConversationMessage{}).Error
	})
	return deleted, err
}
