package repository

import (
	"lingo_stake_backend/internal/model"

	"gorm.io/gorm"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) FindByUserID(userID uint) ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.Where("user_id = ?", userID).Order("unlocked_at ASC").Find(&achievements).Error
	if err != nil {
		return nil, err
	}
	return achievements, nil
}

// Unlock inserts the achievement, returning ErrDuplicate if the user already has it.
func (r *AchievementRepository) Unlock(a *model.Achievement) error {
	return translate(r.DB.Create(a).Error)
}

func (r *AchievementRepository) Codes(userID uint) (map[string]bool, error) {
	var codes []string
	err := r.DB.Model(&model.Achievement{}).Where("user_id = ?", userID).Pluck("code", &codes).Error
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(codes))
	for _, c := range codes {
		owned[c] = true
	}
	return owned, nil
}
