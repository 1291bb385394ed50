package service

import (
	"errors"
	"fmt"
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/pkg/logger"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type achievementRule struct {
	Code        string
	Name        string
	Description string
	Icon        string
	// metric is "completed" or "streak"
	metric    string
	threshold int
}

var achievementRules = []achievementRule{
	{Code: "first_challenge", Name: "First Finish", Description: "Complete your first challenge", Icon: "trophy-bronze", metric: "completed", threshold: 1},
	{Code: "five_challenges", Name: "Committed Learner", Description: "Complete five challenges", Icon: "trophy-silver", metric: "completed", threshold: 5},
	{Code: "ten_challenges", Name: "Polyglot in Training", Description: "Complete ten challenges", Icon: "trophy-gold", metric: "completed", threshold: 10},
	{Code: "streak_7", Name: "Week Streak", Description: "Practice seven days in a row", Icon: "flame", metric: "streak", threshold: 7},
	{Code: "streak_30", Name: "Month Streak", Description: "Practice thirty days in a row", Icon: "flame-blue", metric: "streak", threshold: 30},
}

type AchievementService struct {
	AchievementRepo   *repository.AchievementRepository
	UserChallengeRepo *repository.UserChallengeRepository
	Notifications     *NotificationService
	Clock             clockwork.Clock
}

func NewAchievementService(
	achievementRepo *repository.AchievementRepository,
	userChallengeRepo *repository.UserChallengeRepository,
	notifications *NotificationService,
	clock clockwork.Clock,
) *AchievementService {
	return &AchievementService{
		AchievementRepo:   achievementRepo,
		UserChallengeRepo: userChallengeRepo,
		Notifications:     notifications,
		Clock:             clock,
	}
}

// Evaluate unlocks every rule the user now meets and returns the new ones.
func (s *AchievementService) Evaluate(userID uint) ([]model.Achievement, error) {
	completed, err := s.UserChallengeRepo.CountByUserAndStatus(userID, model.UserChallengeCompleted)
	if err != nil {
		return nil, err
	}
	streak, err := s.UserChallengeRepo.MaxLongestStreak(userID)
	if err != nil {
		return nil, err
	}
	owned, err := s.AchievementRepo.Codes(userID)
	if err != nil {
		return nil, err
	}

	var unlocked []model.Achievement
	for _, rule := range achievementRules {
		if owned[rule.Code] {
			continue
		}
		value := int(completed)
		if rule.metric == "streak" {
			value = streak
		}
		if value < rule.threshold {
			continue
		}

		a := model.Achievement{
			UserID:      userID,
			Code:        rule.Code,
			Name:        rule.Name,
			Description: rule.Description,
			Icon:        rule.Icon,
			UnlockedAt:  s.Clock.Now(),
		}
		if err := s.AchievementRepo.Unlock(&a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return unlocked, err
		}
		unlocked = append(unlocked, a)

		if s.Notifications != nil {
			s.Notifications.Notify(userID, model.NotificationAchievement,
				"Achievement unlocked",
				fmt.Sprintf("You earned \"%s\": %s", a.Name, a.Description),
				map[string]interface{}{"code": a.Code},
			)
		}
	}
	return unlocked, nil
}

// EvaluateQuietly runs Evaluate and only logs failures.
func (s *AchievementService) EvaluateQuietly(userID uint) {
	if _, err := s.Evaluate(userID); err != nil {
		logger.Log.Warn("Achievement evaluation failed", zap.Uint("userId", userID), zap.Error(err))
	}
}

func (s *AchievementService) List(userID uint) ([]model.Achievement, error) {
	return s.AchievementRepo.FindByUserID(userID)
}
