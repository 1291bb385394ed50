package service

import "math"

// YieldQuote is a display-only preview of a challenge's payout. Payouts are
// computed on chain from the staked amount and yield basis points.
type YieldQuote struct {
	YieldAmount float64 `json:"yieldAmount"`
	TotalReward float64 `json:"totalReward"`
	DailyYield  float64 `json:"dailyYield"`
	APY         float64 `json:"apy"`
}

// CalculateYield returns a zero quote for non-positive or non-finite stake or
// duration instead of failing.
func CalculateYield(stake, yieldPercentage float64, durationDays int) YieldQuote {
	if durationDays <= 0 || stake <= 0 || math.IsNaN(stake) || math.IsInf(stake, 0) ||
		math.IsNaN(yieldPercentage) || math.IsInf(yieldPercentage, 0) {
		return YieldQuote{}
	}

	yieldAmount := stake * yieldPercentage / 100
	dailyYield := yieldAmount / float64(durationDays)

	return YieldQuote{
		YieldAmount: yieldAmount,
		TotalReward: stake + yieldAmount,
		DailyYield:  dailyYield,
		APY:         (dailyYield * 365 / stake) * 100,
	}
}
