package model

type Conversation struct {
	BaseModel
	UserID       uint                  `gorm:"not null;index" json:"userId"`
	Title        string                `gorm:"size:200" json:"title"`
	LanguageCode string                `gorm:"size:10" json:"languageCode"`
	Level        string                `gorm:"size:10" json:"level"`
	Messages     []ConversationMessage `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

func (Conversation) TableName() string {
	return "conversations"
}

type ConversationMessage struct {
	BaseModel
	ConversationID uint   `gorm:"not null;index" json:"conversationId"`
	Role           string `gorm:"size:16;not null" json:"role"` // user / assistant
	Content        string `gorm:"type:text;not null" json:"content"`
}

func (ConversationMessage) TableName() string {
	return "conversation_messages"
}
