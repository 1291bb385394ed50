package repository

import (
	"lingo_stake_backend/internal/model"

	"gorm.io/gorm"
)

// PracticeRepository stores voice calls and speech submissions.
type PracticeRepository struct {
	DB *gorm.DB
}

func NewPracticeRepository(db *gorm.DB) *PracticeRepository {
	return &PracticeRepository{DB: db}
}

func (r *PracticeRepository) CreateVoiceSession(s *model.VoiceSession) error {
	return translate(r.DB.Create(s).Error)
}

func (r *PracticeRepository) ListVoiceSessions(userID uint, limit int) ([]model.VoiceSession, error) {
	var list []model.VoiceSession
	err := r.DB.Where("user_id = ?", userID).Scopes(paginate(1, limit)).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *PracticeRepository) CreateSpeechSubmission(s *model.SpeechSubmission) error {
	return r.DB.Create(s).Error
}

func (r *PracticeRepository) ListSpeechSubmissions(userID uint, limit int) ([]model.SpeechSubmission, error) {
	var list []model.SpeechSubmission
	err := r.DB.Where("user_id = ?", userID).Scopes(paginate(1, limit)).Order("created_at DESC").Find(&list).Error
	return list, err
}

// CountPracticeSessions is used by the profile stats.
func (r *PracticeRepository) CountPracticeSessions(userID uint) (voice int64, speech int64, err error) {
	if err = r.DB.Model(&model.VoiceSession{}).Where("user_id = ?", userID).Count(&voice).Error; err != nil {
		return
	}
	err = r.DB.Model(&model.SpeechSubmission{}).Where("user_id = ?", userID).Count(&speech).Error
	return
}
