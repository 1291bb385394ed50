package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/util"
	"net/http"
	"strings"
	"time"
)

// CallSession is what the client needs to join a voice call.
type CallSession struct {
	CallID  string `json:"callId"`
	JoinURL string `json:"joinUrl"`
}

// CallProvider creates conversational voice calls.
type CallProvider interface {
	CreateCall(ctx context.Context, systemPrompt string) (*CallSession, error)
}

type UltravoxClient struct {
	Config config.UltravoxConfig
	Client *http.Client
}

func NewUltravoxClient(cfg config.UltravoxConfig) *UltravoxClient {
	return &UltravoxClient{Config: cfg, Client: &http.Client{Timeout: 20 * time.Second}}
}

func (u *UltravoxClient) CreateCall(ctx context.Context, systemPrompt string) (*CallSession, error) {
	if u.Config.APIKey == "" {
		return nil, upstream("voice provider is not configured")
	}

	payload := map[string]interface{}{
		"systemPrompt": systemPrompt,
		"model":        u.Config.Model,
		"temperature":  0.4,
	}
	if u.Config.Voice != "" {
		payload["voice"] = u.Config.Voice
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(u.Config.BaseURL, "/")+"/calls", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", u.Config.APIKey)

	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, upstream("voice call request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, upstream("voice API error (status %d): %s", resp.StatusCode, truncate(string(raw), 300))
	}

	var session CallSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, upstream("voice response is not JSON: %v", err)
	}
	if session.CallID == "" || session.JoinURL == "" {
		return nil, upstream("voice API returned no call")
	}
	return &session, nil
}

type VoiceCallRequest struct {
	LanguageCode string `json:"languageCode" binding:"required,max=10"`
	Level        string `json:"level" binding:"required"`
	Topic        string `json:"topic" binding:"omitempty,max=200"`
}

type VoiceService struct {
	PracticeRepo *repository.PracticeRepository
	Provider     CallProvider
}

func NewVoiceService(practiceRepo *repository.PracticeRepository, provider CallProvider) *VoiceService {
	return &VoiceService{PracticeRepo: practiceRepo, Provider: provider}
}

func voicePrompt(language, level, topic string) string {
	if topic == "" {
		topic = "everyday life"
	}
	return fmt.Sprintf(
		"You are a friendly conversation partner helping a learner practice %s at CEFR level %s. "+
			"Speak only %s, at a pace and vocabulary suited to the level. Talk about %s. "+
			"If the learner makes a mistake, repeat the sentence correctly and move on.",
		language, level, language, topic)
}

// StartCall opens a voice practice call and records it.
func (s *VoiceService) StartCall(ctx context.Context, userID uint, req *VoiceCallRequest) (*model.VoiceSession, error) {
	if !isProficiencyLevel(req.Level) {
		return nil, fmt.Errorf("%w: level must be one of %s", util.ErrValidationFailed, strings.Join(model.ProficiencyLevels, ", "))
	}
	language := strings.ToLower(req.LanguageCode)

	call, err := s.Provider.CreateCall(ctx, voicePrompt(language, req.Level, req.Topic))
	if err != nil {
		return nil, err
	}

	session := &model.VoiceSession{
		UserID:       userID,
		CallID:       call.CallID,
		JoinURL:      call.JoinURL,
		LanguageCode: language,
		Level:        req.Level,
		Topic:        req.Topic,
	}
	if err := s.PracticeRepo.CreateVoiceSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *VoiceService) List(userID uint, limit int) ([]model.VoiceSession, error) {
	return s.PracticeRepo.ListVoiceSessions(userID, limit)
}
