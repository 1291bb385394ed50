package repository

import (
	"lingo_stake_backend/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(n *model.Notification) error {
	return r.DB.Create(n).Error
}

func (r *NotificationRepository) ListByUser(userID uint, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	query := r.DB.Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		// read is a reserved word in mysql; the map form lets gorm quote it
		query = query.Where(map[string]interface{}{"read": false})
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Notification
	err := query.Scopes(paginate(page, limit)).Order("created_at DESC").Find(&list).Error
	return list, total, err
}

func (r *NotificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Notification{}).
		Where("user_id = ?", userID).
		Where(map[string]interface{}{"read": false}).
		Count(&count).Error
	return count, err
}

// MarkRead returns false if the notification does not belong to the user.
func (r *NotificationRepository) MarkRead(id, userID uint) (bool, error) {
	var n model.Notification
	if err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if n.Read {
		return true, nil
	}
	return true, r.DB.Model(&n).Update("read", true).Error
}

func (r *NotificationRepository) MarkAllRead(userID uint) (int64, error) {
	res := r.DB.Model(&model.Notification{}).
		Where("user_id = ?", userID).
		Where(map[string]interface{}{"read": false}).
		Update("read", true)
	return res.RowsAffected, res.Error
}
