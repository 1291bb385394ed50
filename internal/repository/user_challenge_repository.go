package repository

import (
	"lingo_stake_backend/internal/model"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type UserChallengeRepository struct {
	DB *gorm.DB
}

func NewUserChallengeRepository(db *gorm.DB) *UserChallengeRepository {
	return &UserChallengeRepository{DB: db}
}

// Create returns ErrDuplicate when the (user, challenge) pair already exists.
func (r *UserChallengeRepository) Create(uc *model.UserChallenge) error {
	return translate(r.DB.Create(uc).Error)
}

func (r *UserChallengeRepository) FindByID(id uint) (*model.UserChallenge, error) {
	var uc model.UserChallenge
	if err := r.DB.Preload("Challenge").First(&uc, id).Error; err != nil {
		return nil, err
	}
	return &uc, nil
}

func (r *UserChallengeRepository) FindByUserAndChallenge(userID, challengeID uint) (*model.UserChallenge, error) {
	var uc model.UserChallenge
	err := r.DB.Preload("Challenge").
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		First(&uc).Error
	if err != nil {
		return nil, err
	}
	return &uc, nil
}

func (r *UserChallengeRepository) ListByUser(userID uint, status model.UserChallengeStatus) ([]model.UserChallenge, error) {
	query := r.DB.Preload("Challenge").Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var list []model.UserChallenge
	err := query.Order("created_at DESC").Find(&list).Error
	return list, err
}

// ListActive returns every ACTIVE enrollment with its challenge, oldest first.
func (r *UserChallengeRepository) ListActive() ([]model.UserChallenge, error) {
	var list []model.UserChallenge
	err := r.DB.Preload("Challenge").
		Where("status = ?", model.UserChallengeActive).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *UserChallengeRepository) CountByUserAndStatus(userID uint, status model.UserChallengeStatus) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserChallenge{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&count).Error
	return count, err
}

// UpdateStreak stores the recomputed streak and progress figures.
func (r *UserChallengeRepository) UpdateStreak(id uint, current, longest, progress int) error {
	return r.DB.Model(&model.UserChallenge{}).Where("id = ?", id).Updates(map[string]interface{}{
		"current_streak":      current,
		"longest_streak":      longest,
		"progress_percentage": progress,
	}).Error
}

// Transition moves an enrollment out of from into to, applying extra column
// updates in the same statement. It returns false when the row was no longer
// in from, so two concurrent transitions cannot both win.
func (r *UserChallengeRepository) Transition(id uint, from, to model.UserChallengeStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.DB.Model(&model.UserChallenge{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// RecordSettlement stores the payout hash and reward. It only overwrites a row
// whose hash is still prior, so a concurrent writer's hash is never lost.
func (r *UserChallengeRepository) RecordSettlement(id uint, prior, txHash string, reward decimal.Decimal, at time.Time) (bool, error) {
	query := r.DB.Model(&model.UserChallenge{}).Where("id = ?", id)
	if prior == "" {
		query = query.Where("(completion_tx_hash = '' OR completion_tx_hash IS NULL)")
	} else {
		query = query.Where("completion_tx_hash = ?", prior)
	}
	res := query.Updates(map[string]interface{}{
		"completion_tx_hash": txHash,
		"reward_amount":      reward,
		"completed_at":       at,
	})
	return res.RowsAffected == 1, res.Error
}

// MaxLongestStreak is the best streak the user reached in any challenge.
func (r *UserChallengeRepository) MaxLongestStreak(userID uint) (int, error) {
	var best int
	err := r.DB.Model(&model.UserChallenge{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(longest_streak), 0)").
		Scan(&best).Error
	return best, err
}
