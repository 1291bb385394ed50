package service

import (
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/util"
	"time"
)

// EvaluateStreak counts consecutive completed days ending today. Rows may
// arrive in any order; a day counts if any of its rows is completed.
func EvaluateStreak(rows []model.DailyProgress, today time.Time) int {
	done := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.Completed {
			done[r.Day] = true
		}
	}

	day := util.StartOfDay(today)
	if !done[util.DayKey(day)] {
		return 0
	}

	streak := 1
	for {
		day = day.AddDate(0, 0, -1)
		if !done[util.DayKey(day)] {
			return streak
		}
		streak++
	}
}

// CompletedDays counts distinct completed days.
func CompletedDays(rows []model.DailyProgress) int {
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.Completed {
			seen[r.Day] = true
		}
	}
	return len(seen)
}

// ProgressPercentage is floor(100 * completed / duration) clamped to [0, 100].
func ProgressPercentage(completedDays, durationDays int) int {
	if durationDays <= 0 || completedDays <= 0 {
		return 0
	}
	pct := completedDays * 100 / durationDays
	if pct > 100 {
		return 100
	}
	return pct
}

// MeetsCompletionThreshold reports completed/duration >= 80% without floats.
func MeetsCompletionThreshold(completedDays, durationDays int) bool {
	if durationDays <= 0 {
		return false
	}
	return completedDays*100 >= util.CompletionThresholdPercent*durationDays
}
