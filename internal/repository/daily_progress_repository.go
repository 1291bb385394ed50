package repository

import (
	"lingo_stake_backend/internal/model"

	"gorm.io/gorm"
)

type DailyProgressRepository struct {
	DB *gorm.DB
}

func NewDailyProgressRepository(db *gorm.DB) *DailyProgressRepository {
	return &DailyProgressRepository{DB: db}
}

func (r *DailyProgressRepository) FindByDay(userChallengeID uint, day string) (*model.DailyProgress, error) {
	var p model.DailyProgress
	err := r.DB.Where("user_challenge_id = ? AND day = ?", userChallengeID, day).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create returns ErrDuplicate when the day already has a row.
func (r *DailyProgressRepository) Create(p *model.DailyProgress) error {
	return translate(r.DB.Create(p).Error)
}

// AddMinutes increments the stored minutes atomically and reloads the row.
func (r *DailyProgressRepository) AddMinutes(p *model.DailyProgress, minutes int) error {
	err := r.DB.Model(&model.DailyProgress{}).
		Where("id = ?", p.ID).
		Update("minutes_practiced", gorm.Expr("minutes_practiced + ?", minutes)).Error
	if err != nil {
		return err
	}
	return r.DB.First(p, p.ID).Error
}

// MarkCompleted flips completed to true and reports whether this call did it.
func (r *DailyProgressRepository) MarkCompleted(id uint) (bool, error) {
	res := r.DB.Model(&model.DailyProgress{}).
		Where("id = ? AND completed = ?", id, false).
		Update("completed", true)
	return res.RowsAffected == 1, res.Error
}

// ListByUserChallenge returns the history newest day first.
func (r *DailyProgressRepository) ListByUserChallenge(userChallengeID uint) ([]model.DailyProgress, error) {
	var list []model.DailyProgress
	err := r.DB.Where("user_challenge_id = ?", userChallengeID).Order("day DESC").Find(&list).Error
	return list, err
}

// CountCompletedDays counts distinct completed days.
func (r *DailyProgressRepository) CountCompletedDays(userChallengeID uint) (int, error) {
	var count int64
	err := r.DB.Model(&model.DailyProgress{}).
		Where("user_challenge_id = ? AND completed = ?", userChallengeID, true).
		Distinct("day").
		Count(&count).Error
	return int(count), err
}
