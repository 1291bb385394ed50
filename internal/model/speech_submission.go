package model

// SpeechSubmission is an uploaded pronunciation attempt and its transcript.
type SpeechSubmission struct {
	BaseModel
	UserID        uint    `gorm:"not null;index" json:"userId"`
	LanguageCode  string  `gorm:"size:10" json:"languageCode"`
	ExpectedText  string  `gorm:"type:text" json:"expectedText,omitempty"`
	Transcript    string  `gorm:"type:text" json:"transcript"`
	AudioURL      string  `gorm:"size:512" json:"audioUrl"`
	DurationSec   float64 `json:"durationSec"`
	MatchAccuracy int     `json:"matchAccuracy"` // 0-100, word overlap with ExpectedText
}

func (SpeechSubmission) TableName() string {
	return "speech_submissions"
}
