package service

import (
	"context"
	"fmt"
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/util"
	"lingo_stake_backend/pkg/web3"
	"strings"

	"golang.org/x/sync/errgroup"
)

// swagger:model UpdateProfileRequest
type UpdateProfileRequest struct {
	Name             string `json:"name" binding:"omitempty,max=100"`
	NativeLanguage   string `json:"nativeLanguage" binding:"omitempty,max=10"`
	TargetLanguage   string `json:"targetLanguage" binding:"omitempty,max=10"`
	ProficiencyLevel string `json:"proficiencyLevel"`
	WalletAddress    string `json:"walletAddress"`
}

// UserStats is the dashboard summary for one learner.
type UserStats struct {
	ActiveChallenges    int64 `json:"activeChallenges"`
	CompletedChallenges int64 `json:"completedChallenges"`
	FailedChallenges    int64 `json:"failedChallenges"`
	LongestStreak       int   `json:"longestStreak"`
	Achievements        int   `json:"achievements"`
	VoiceSessions       int64 `json:"voiceSessions"`
	SpeechSubmissions   int64 `json:"speechSubmissions"`
	UnreadNotifications int64 `json:"unreadNotifications"`
}

type UserService struct {
	UserRepo          *repository.UserRepository
	UserChallengeRepo *repository.UserChallengeRepository
	AchievementRepo   *repository.AchievementRepository
	PracticeRepo      *repository.PracticeRepository
	NotificationRepo  *repository.NotificationRepository
}

func NewUserService(
	userRepo *repository.UserRepository,
	userChallengeRepo *repository.UserChallengeRepository,
	achievementRepo *repository.AchievementRepository,
	practiceRepo *repository.PracticeRepository,
	notificationRepo *repository.NotificationRepository,
) *UserService {
	return &UserService{
		UserRepo:          userRepo,
		UserChallengeRepo: userChallengeRepo,
		AchievementRepo:   achievementRepo,
		PracticeRepo:      practiceRepo,
		NotificationRepo:  notificationRepo,
	}
}

func (s *UserService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if repository.IsNotFound(err) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

// UpdateProfile applies the non-empty fields of req.
func (s *UserService) UpdateProfile(userID uint, req *UpdateProfileRequest) (*model.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if req.WalletAddress != "" {
		wallet := strings.TrimSpace(req.WalletAddress)
		if !web3.IsAddress(wallet) {
			return nil, fmt.Errorf("%w: walletAddress is not a valid address", util.ErrValidationFailed)
		}
		user.WalletAddress = wallet
	}
	if req.ProficiencyLevel != "" {
		if !isProficiencyLevel(req.ProficiencyLevel) {
			return nil, fmt.Errorf("%w: proficiencyLevel must be one of %s",
				util.ErrValidationFailed, strings.Join(model.ProficiencyLevels, ", "))
		}
		user.ProficiencyLevel = req.ProficiencyLevel
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if req.NativeLanguage != "" {
		user.NativeLanguage = strings.ToLower(req.NativeLanguage)
	}
	if req.TargetLanguage != "" {
		user.TargetLanguage = strings.ToLower(req.TargetLanguage)
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateAvatar(userID uint, url string) error {
	return s.UserRepo.UpdateAvatar(userID, url)
}

// Stats gathers the dashboard counters concurrently.
func (s *UserService) Stats(ctx context.Context, userID uint) (*UserStats, error) {
	stats := &UserStats{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.ActiveChallenges, err = s.UserChallengeRepo.CountByUserAndStatus(userID, model.UserChallengeActive)
		return err
	})
	g.Go(func() (err error) {
		stats.CompletedChallenges, err = s.UserChallengeRepo.CountByUserAndStatus(userID, model.UserChallengeCompleted)
		return err
	})
	g.Go(func() (err error) {
		stats.FailedChallenges, err = s.UserChallengeRepo.CountByUserAndStatus(userID, model.UserChallengeFailed)
		return err
	})
	g.Go(func() (err error) {
		stats.LongestStreak, err = s.UserChallengeRepo.MaxLongestStreak(userID)
		return err
	})
	g.Go(func() error {
		list, err := s.AchievementRepo.FindByUserID(userID)
		stats.Achievements = len(list)
		return err
	})
	g.Go(func() (err error) {
		stats.VoiceSessions, stats.SpeechSubmissions, err = s.PracticeRepo.CountPracticeSessions(userID)
		return err
	})
	g.Go(func() (err error) {
		stats.UnreadNotifications, err = s.NotificationRepo.CountUnread(userID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
