package repository

import (
	"lingo_stake_backend/internal/model"

	"gorm.io/gorm"
)

type ChallengeFilter struct {
	LanguageCode     string
	ProficiencyLevel string
	Hardcore         *bool
	CreatorID        uint
	ActiveOnly       bool
}

type ChallengeRepository struct {
	DB *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{DB: db}
}

func (r *ChallengeRepository) Create(challenge *model.Challenge) error {
	return translate(r.DB.Create(challenge).Error)
}

func (r *ChallengeRepository) FindByID(id uint) (*model.Challenge, error) {
	var challenge model.Challenge
	if err := r.DB.First(&challenge, id).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *ChallengeRepository) FindByInviteCode(code string) (*model.Challenge, error) {
	var challenge model.Challenge
	if err := r.DB.Where("invite_code = ?", code).First(&challenge).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *ChallengeRepository) List(filter ChallengeFilter, page, limit int) ([]model.Challenge, int64, error) {
	query := r.DB.Model(&model.Challenge{})
	if filter.LanguageCode != "" {
		query = query.Where("language_code = ?", filter.LanguageCode)
	}
	if filter.ProficiencyLevel != "" {
		query = query.Where("proficiency_level = ?", filter.ProficiencyLevel)
	}
	if filter.Hardcore != nil {
		query = query.Where("is_hardcore = ?", *filter.Hardcore)
	}
	if filter.CreatorID != 0 {
		query = query.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var challenges []model.Challenge
	err := query.Scopes(paginate(page, limit)).Order("created_at DESC").Find(&challenges).Error
	return challenges, total, err
}

func (r *ChallengeRepository) Update(challenge *model.Challenge) error {
	return r.DB.Save(challenge).Error
}

// LinkContract sets the on-chain fields only if they were never set. It
// returns false when another request got there first.
func (r *ChallengeRepository) LinkContract(id uint, address, chain string) (bool, error) {
	res := r.DB.Model(&model.Challenge{}).
		Where("id = ? AND (contract_address = '' OR contract_address IS NULL)", id).
		Updates(map[string]interface{}{
			"contract_address": address,
			"contract_chain":   chain,
		})
	return res.RowsAffected == 1, res.Error
}

// CountParticipants counts every enrollment regardless of status.
func (r *ChallengeRepository) CountParticipants(challengeID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserChallenge{}).Where("challenge_id = ?", challengeID).Count(&count).Error
	return count, err
}
