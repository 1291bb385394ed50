package model

// VoiceSession records a conversational practice call created with the voice provider.
type VoiceSession struct {
	BaseModel
	UserID       uint   `gorm:"not null;index" json:"userId"`
	CallID       string `gorm:"size:64;uniqueIndex" json:"callId"`
	JoinURL      string `gorm:"size:512" json:"joinUrl"`
	LanguageCode string `gorm:"size:10" json:"languageCode"`
	Level        string `gorm:"size:10" json:"level"`
	Topic        string `gorm:"size:200" json:"topic"`
}

func (VoiceSession) TableName() string {
	return "voice_sessions"
}
