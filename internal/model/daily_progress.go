package model

// DailyProgress is one calendar day of practice for a UserChallenge.
// Day is the YYYY-MM-DD key; (user_challenge_id, day) is unique.
type DailyProgress struct {
	BaseModel
	UserChallengeID  uint   `gorm:"not null;uniqueIndex:idx_progress_day" json:"userChallengeId"`
	Day              string `gorm:"size:10;not null;uniqueIndex:idx_progress_day" json:"day"`
	MinutesPracticed int    `gorm:"default:0" json:"minutesPracticed"`
	Completed        bool   `gorm:"default:false;index" json:"completed"`
}

func (DailyProgress) TableName() string {
	return "daily_progress"
}
