package database

import (
	"testing"
	"time"

	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedEnrollment(t *testing.T, db *gorm.DB) (*model.User, *model.Challenge) {
	t.Helper()
	user := &model.User{Name: "Ana", Email: "ana@example.com", Password: "x", Role: model.Learner}
	require.NoError(t, db.Create(user).Error)
	challenge := &model.Challenge{
		Title:            "Spanish sprint",
		LanguageCode:     "es",
		ProficiencyLevel: "A2",
		DurationDays:     10,
		DailyRequirement: 15,
		StakeAmount:      decimal.NewFromInt(10),
		InviteCode:       "SPRINT01",
		CreatorID:        user.ID,
		IsActive:         true,
	}
	require.NoError(t, db.Create(challenge).Error)
	return user, challenge
}

func TestUniqueParticipationIsTranslated(t *testing.T) {
	db, err := OpenTestDB(t.Name())
	require.NoError(t, err)
	user, challenge := seedEnrollment(t, db)

	row := func() *model.UserChallenge {
		return &model.UserChallenge{
			UserID:        user.ID,
			ChallengeID:   challenge.ID,
			StartDate:     time.Now(),
			EndDate:       time.Now().AddDate(0, 0, 10),
			StakedAmount:  decimal.NewFromInt(10),
			StakeTxHash:   "0xabc",
			WalletAddress: "0x2222222222222222222222222222222222222222",
			Status:        model.UserChallengeActive,
		}
	}

	require.NoError(t, db.Create(row()).Error)
	err = db.Create(row()).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUniqueProgressDayIsTranslated(t *testing.T) {
	db, err := OpenTestDB(t.Name())
	require.NoError(t, err)
	user, challenge := seedEnrollment(t, db)

	uc := &model.UserChallenge{
		UserID:        user.ID,
		ChallengeID:   challenge.ID,
		StartDate:     time.Now(),
		EndDate:       time.Now().AddDate(0, 0, 10),
		StakedAmount:  decimal.NewFromInt(10),
		StakeTxHash:   "0xabc",
		WalletAddress: "0x2222222222222222222222222222222222222222",
		Status:        model.UserChallengeActive,
	}
	require.NoError(t, db.Create(uc).Error)

	require.NoError(t, db.Create(&model.DailyProgress{UserChallengeID: uc.ID, Day: "2026-03-01", MinutesPracticed: 5}).Error)
	require.NoError(t, db.Create(&model.DailyProgress{UserChallengeID: uc.ID, Day: "2026-03-02", MinutesPracticed: 5}).Error)

	err = db.Create(&model.DailyProgress{UserChallengeID: uc.ID, Day: "2026-03-01", MinutesPracticed: 20}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUnknownDriver(t *testing.T) {
	_, err := dialectorFor(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
