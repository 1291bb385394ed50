package service

import (
	"context"
	"fmt"
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/util"
	"lingo_stake_backend/pkg/logger"
	"lingo_stake_backend/pkg/monitoring"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type SweepReport struct {
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	Processed      int       `json:"processed"`
	Completed      int       `json:"completed"`
	PartialSuccess int       `json:"partialSuccess"`
	Failed         int       `json:"failed"`
	Reminders      int       `json:"reminders"`
	StreakWarnings int       `json:"streakWarnings"`
	Errors         int       `json:"errors"`
}

// SweepService settles ended enrollments and nudges active ones. It is
// triggered from outside (cron endpoint, CLI or the optional ticker).
type SweepService struct {
	UserChallengeRepo *repository.UserChallengeRepository
	ProgressRepo      *repository.DailyProgressRepository
	Notifications     *NotificationService
	Achievements      *AchievementService
	Clock             clockwork.Clock
}

func NewSweepService(
	userChallengeRepo *repository.UserChallengeRepository,
	progressRepo *repository.DailyProgressRepository,
	notifications *NotificationService,
	achievements *AchievementService,
	clock clockwork.Clock,
) *SweepService {
	return &SweepService{
		UserChallengeRepo: userChallengeRepo,
		ProgressRepo:      progressRepo,
		Notifications:     notifications,
		Achievements:      achievements,
		Clock:             clock,
	}
}

type sweepOutcome string

const (
	outcomeCompleted     sweepOutcome = "completed"
	outcomePartial       sweepOutcome = "partial_success"
	outcomeFailed        sweepOutcome = "failed"
	outcomeReminder      sweepOutcome = "reminder"
	outcomeStreakWarning sweepOutcome = "streak_warning"
	outcomeOnTrack       sweepOutcome = "on_track"
	outcomeSkipped       sweepOutcome = "skipped"
	outcomeError         sweepOutcome = "error"
)

// Run processes every ACTIVE enrollment. A failing record is logged and
// counted; it never stops the rest of the sweep.
func (s *SweepService) Run(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{StartedAt: s.Clock.Now()}

	active, err := s.UserChallengeRepo.ListActive()
	if err != nil {
		return nil, err
	}

	for i := range active {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = s.Clock.Now()
			return report, err
		}

		uc := &active[i]
		report.Processed++

		outcomes, err := s.processOne(uc)
		if err != nil {
			report.Errors++
			monitoring.SweepOutcomes.WithLabelValues(string(outcomeError)).Inc()
			logger.Log.Error("Sweep failed for enrollment",
				zap.Uint("userChallengeId", uc.ID),
				zap.Uint("userId", uc.UserID),
				zap.Error(err),
			)
			sentry.CaptureException(fmt.Errorf("sweep user_challenge %d: %w", uc.ID, err))
			continue
		}

		for _, o := range outcomes {
			monitoring.SweepOutcomes.WithLabelValues(string(o)).Inc()
			switch o {
			case outcomeCompleted:
				report.Completed++
			case outcomePartial:
				report.PartialSuccess++
			case outcomeFailed:
				report.Failed++
			case outcomeReminder:
				report.Reminders++
			case outcomeStreakWarning:
				report.StreakWarnings++
			}
		}
	}

	report.FinishedAt = s.Clock.Now()
	logger.Log.Info("Sweep finished",
		zap.Int("processed", report.Processed),
		zap.Int("completed", report.Completed),
		zap.Int("partial", report.PartialSuccess),
		zap.Int("failed", report.Failed),
		zap.Int("reminders", report.Reminders),
		zap.Int("streakWarnings", report.StreakWarnings),
		zap.Int("errors", report.Errors),
	)
	return report, nil
}

func (s *SweepService) processOne(uc *model.UserChallenge) ([]sweepOutcome, error) {
	if uc.Challenge == nil {
		return nil, fmt.Errorf("challenge %d not found", uc.ChallengeID)
	}
	now := s.Clock.Now()

	rows, err := s.ProgressRepo.ListByUserChallenge(uc.ID)
	if err != nil {
		return nil, err
	}

	if now.After(uc.EndDate) {
		o, err := s.settleEnded(uc, rows)
		return []sweepOutcome{o}, err
	}
	return s.nudge(uc, rows, now)
}

func (s *SweepService) settleEnded(uc *model.UserChallenge, rows []model.DailyProgress) (sweepOutcome, error) {
	challenge := uc.Challenge
	completed := CompletedDays(rows)
	progress := ProgressPercentage(completed, challenge.DurationDays)
	if progress < uc.ProgressPercentage {
		progress = uc.ProgressPercentage
	}

	var (
		to      model.UserChallengeStatus
		outcome sweepOutcome
	)
	switch {
	case MeetsCompletionThreshold(completed, challenge.DurationDays):
		to, outcome = model.UserChallengeCompleted, outcomeCompleted
	case challenge.IsHardcore:
		to, outcome = model.UserChallengeFailed, outcomeFailed
	default:
		to, outcome = model.UserChallengeCompleted, outcomePartial
	}

	ok, err := s.UserChallengeRepo.Transition(uc.ID, model.UserChallengeActive, to, map[string]interface{}{
		"progress_percentage": progress,
	})
	if err != nil {
		return outcomeError, err
	}
	if !ok {
		return outcomeSkipped, nil
	}

	data := map[string]interface{}{"challengeId": uc.ChallengeID, "progress": progress}
	switch outcome {
	case outcomeCompleted:
		s.Notifications.Notify(uc.UserID, model.NotificationChallengeCompleted, "Challenge completed",
			fmt.Sprintf("You completed %d of %d days of \"%s\". Claim your reward from the challenge page.", completed, challenge.DurationDays, challenge.Title),
			data)
		s.Notifications.EmailUser(uc.UserID, "You completed your challenge",
			fmt.Sprintf("Congratulations! You completed %d of %d days of \"%s\". Your stake and yield are ready to claim.", completed, challenge.DurationDays, challenge.Title))
		if s.Achievements != nil {
			s.Achievements.EvaluateQuietly(uc.UserID)
		}
	case outcomeFailed:
		s.Notifications.Notify(uc.UserID, model.NotificationChallengeFailed, "Challenge failed",
			fmt.Sprintf("You completed %d of %d days of \"%s\". The hardcore stake was forfeited.", completed, challenge.DurationDays, challenge.Title),
			data)
	case outcomePartial:
		s.Notifications.Notify(uc.UserID, model.NotificationPartialSuccess, "Challenge ended",
			fmt.Sprintf("You completed %d of %d days of \"%s\". Your stake is returned since this is a no-loss challenge.", completed, challenge.DurationDays, challenge.Title),
			data)
	}

	logger.Log.Info("Enrollment settled by sweep",
		zap.Uint("userChallengeId", uc.ID),
		zap.String("status", string(to)),
		zap.Int("progress", progress),
	)
	return outcome, nil
}

// nudge refreshes the streak for a running enrollment and sends reminders.
func (s *SweepService) nudge(uc *model.UserChallenge, rows []model.DailyProgress, now time.Time) ([]sweepOutcome, error) {
	current := EvaluateStreak(rows, now)
	if current != uc.CurrentStreak {
		if err := s.UserChallengeRepo.UpdateStreak(uc.ID, current, max(uc.LongestStreak, current), uc.ProgressPercentage); err != nil {
			return nil, err
		}
		uc.CurrentStreak = current
	}

	today := util.DayKey(now)
	doneToday := false
	for _, r := range rows {
		if r.Day == today && r.Completed {
			doneToday = true
			break
		}
	}

	var outcomes []sweepOutcome
	data := map[string]interface{}{"challengeId": uc.ChallengeID}
	if !doneToday {
		s.Notifications.Notify(uc.UserID, model.NotificationDailyReminder, "Time to practice",
			fmt.Sprintf("You have not finished today's %d minutes for \"%s\" yet.", uc.Challenge.DailyRequirement, uc.Challenge.Title),
			data)
		outcomes = append(outcomes, outcomeReminder)
	}
	if uc.CurrentStreak == 0 && uc.Challenge.IsHardcore {
		s.Notifications.Notify(uc.UserID, model.NotificationStreakWarning, "Your stake is at risk",
			fmt.Sprintf("Your streak on hardcore challenge \"%s\" is broken. Keep practicing to reach %d%% and keep your stake.", uc.Challenge.Title, util.CompletionThresholdPercent),
			data)
		outcomes = append(outcomes, outcomeStreakWarning)
	}
	if len(outcomes) == 0 {
		outcomes = append(outcomes, outcomeOnTrack)
	}
	return outcomes, nil
}
