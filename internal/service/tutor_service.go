package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/util"
	"lingo_stake_backend/pkg/logger"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ChatModel is the text-in / text-out provider behind the tutor.
type ChatModel interface {
	Complete(ctx context.Context, messages []AIChatMessage) (string, error)
	Stream(ctx context.Context, messages []AIChatMessage) (<-chan string, <-chan error)
}

const (
	tutorHistoryLimit = 20
	questionCacheTTL  = 24 * time.Hour
	maxQuestionCount  = 10
)

type TutorChatRequest struct {
	ConversationID uint   `json:"conversationId"`
	Message        string `json:"message" binding:"required,max=4000"`
	LanguageCode   string `json:"languageCode" binding:"omitempty,max=10"`
	Level          string `json:"level"`
}

type TutorReply struct {
	ConversationID uint   `json:"conversationId"`
	Reply          string `json:"reply"`
}

type QuestionRequest struct {
	LanguageCode string `json:"languageCode" binding:"required,max=10"`
	Level        string `json:"level" binding:"required"`
	Topic        string `json:"topic" binding:"omitempty,max=60"`
	Count        int    `json:"count"`
}

type PracticeQuestion struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

type QuestionSet struct {
	Questions []PracticeQuestion `json:"questions"`
	// Source is "ai", "cache" or "fallback".
	Source string `json:"source"`
}

type TutorService struct {
	ConversationRepo *repository.ConversationRepository
	QuestionCache    *repository.QuestionCacheRepository
	Model            ChatModel
	Clock            clockwork.Clock
}

func NewTutorService(
	conversationRepo *repository.ConversationRepository,
	questionCache *repository.QuestionCacheRepository,
	model ChatModel,
	clock clockwork.Clock,
) *TutorService {
	return &TutorService{
		ConversationRepo: conversationRepo,
		QuestionCache:    questionCache,
		Model:            model,
		Clock:            clock,
	}
}

func tutorSystemPrompt(language, level string) string {
	if language == "" {
		language = "the language the learner writes in"
	}
	if level == "" {
		level = "unknown"
	}
	return fmt.Sprintf(
		"You are a patient language tutor. The learner is practicing %s at CEFR level %s. "+
			"Reply mostly in %s using vocabulary suited to that level. "+
			"Gently correct mistakes and explain them briefly in English. "+
			"Keep answers short and end with a question that keeps the conversation going. "+
			"Politely decline requests unrelated to language learning.",
		language, level, language)
}

// prepare loads or opens the conversation and builds the prompt.
func (s *TutorService) prepare(userID uint, req *TutorChatRequest) (*model.Conversation, []AIChatMessage, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, nil, fmt.Errorf("%w: message is required", util.ErrValidationFailed)
	}

	var conv *model.Conversation
	if req.ConversationID != 0 {
		found, err := s.ConversationRepo.FindByIDAndUser(req.ConversationID, userID)
		if repository.IsNotFound(err) {
			return nil, nil, notFound("conversation")
		}
		if err != nil {
			return nil, nil, err
		}
		conv = found
	} else {
		conv = &model.Conversation{
			UserID:       userID,
			Title:        truncate(message, 60),
			LanguageCode: strings.ToLower(req.LanguageCode),
			Level:        req.Level,
		}
		if err := s.ConversationRepo.Create(conv); err != nil {
			return nil, nil, err
		}
	}

	messages := []AIChatMessage{{Role: "system", Content: tutorSystemPrompt(conv.LanguageCode, conv.Level)}}
	history := conv.Messages
	if len(history) > tutorHistoryLimit {
		history = history[len(history)-tutorHistoryLimit:]
	}
	for _, m := range history {
		messages = append(messages, AIChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, AIChatMessage{Role: "user", Content: message})
	return conv, messages, nil
}

func (s *TutorService) persistTurn(convID uint, question, answer string) {
	err := s.ConversationRepo.AppendMessages(convID,
		model.ConversationMessage{Role: "user", Content: question},
		model.ConversationMessage{Role: "assistant", Content: answer},
	)
	if err != nil {
		logger.Log.Error("Failed to save tutor messages", zap.Uint("conversationId", convID), zap.Error(err))
	}
}

func (s *TutorService) Chat(ctx context.Context, userID uint, req *TutorChatRequest) (*TutorReply, error) {
	conv, messages, err := s.prepare(userID, req)
	if err != nil {
		return nil, err
	}

	reply, err := s.Model.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	s.persistTurn(conv.ID, strings.TrimSpace(req.Message), reply)
	return &TutorReply{ConversationID: conv.ID, Reply: reply}, nil
}

// ChatStream relays the reply as it is generated and saves the full turn once
// the stream finishes cleanly.
func (s *TutorService) ChatStream(ctx context.Context, userID uint, req *TutorChatRequest) (uint, <-chan string, <-chan error, error) {
	conv, messages, err := s.prepare(userID, req)
	if err != nil {
		return 0, nil, nil, err
	}

	chunks, upstreamErrs := s.Model.Stream(ctx, messages)
	out := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		var full strings.Builder
		for chunk := range chunks {
			full.WriteString(chunk)
			select {
			case out <- chunk:
			case <-ctx.Done():
			}
		}
		if err := <-upstreamErrs; err != nil {
			errs <- err
			return
		}
		if full.Len() > 0 {
			s.persistTurn(conv.ID, strings.TrimSpace(req.Message), full.String())
		}
	}()

	return conv.ID, out, errs, nil
}

func (s *TutorService) ListConversations(userID uint, page, limit int) (*util.PageResponse, error) {
	list, total, err := s.ConversationRepo.ListByUser(userID, page, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: list, Total: total, Page: page, Limit: limit}, nil
}

func (s *TutorService) GetConversation(userID, id uint) (*model.Conversation, error) {
	conv, err := s.ConversationRepo.FindByIDAndUser(id, userID)
	if repository.IsNotFound(err) {
		return nil, notFound("conversation")
	}
	return conv, err
}

func (s *TutorService) DeleteConversation(userID, id uint) error {
	ok, err := s.ConversationRepo.Delete(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("conversation")
	}
	return nil
}

// Questions returns a practice set for the day. Sets are cached per
// language, level, topic and day; provider failures fall back to the
// built-in bank.
func (s *TutorService) Questions(ctx context.Context, req *QuestionRequest) (*QuestionSet, error) {
	if !isProficiencyLevel(req.Level) {
		return nil, fmt.Errorf("%w: level must be one of %s", util.ErrValidationFailed, strings.Join(model.ProficiencyLevels, ", "))
	}
	count := req.Count
	if count <= 0 || count > maxQuestionCount {
		count = 5
	}
	language := strings.ToLower(req.LanguageCode)
	topic := strings.ToLower(strings.TrimSpace(req.Topic))
	if topic == "" {
		topic = "general"
	}

	key := repository.QuestionSetKey(language, req.Level, topic, util.DayKey(s.Clock.Now()))
	if raw, ok := s.QuestionCache.Get(key); ok {
		var cached []PracticeQuestion
		if err := json.Unmarshal(raw, &cached); err == nil && len(cached) > 0 {
			return &QuestionSet{Questions: limitQuestions(cached, count), Source: "cache"}, nil
		}
	}

	questions, err := s.generateQuestions(ctx, language, req.Level, topic, count)
	if err != nil {
		if !errors.Is(err, util.ErrUpstreamProvider) {
			return nil, err
		}
		logger.Log.Warn("Question generation failed, using fallback bank",
			zap.String("language", language),
			zap.String("level", req.Level),
			zap.Error(err),
		)
		return &QuestionSet{Questions: FallbackQuestions(language, req.Level, count), Source: "fallback"}, nil
	}

	if raw, err := json.Marshal(questions); err == nil {
		if err := s.QuestionCache.Set(key, raw, questionCacheTTL); err != nil {
			logger.Log.Warn("Failed to cache questions", zap.String("key", key), zap.Error(err))
		}
	}
	return &QuestionSet{Questions: questions, Source: "ai"}, nil
}

func (s *TutorService) generateQuestions(ctx context.Context, language, level, topic string, count int) ([]PracticeQuestion, error) {
	prompt := fmt.Sprintf(
		"Write %d multiple-choice practice questions for a learner of language %q at CEFR level %s about %q. "+
			"Respond with only a JSON array. Each element has the fields prompt, options (4 strings), answer "+
			"(one of the options) and explanation (one English sentence).",
		count, language, level, topic)

	reply, err := s.Model.Complete(ctx, []AIChatMessage{
		{Role: "system", Content: "You generate language exercises and answer with strict JSON."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	questions, err := parseQuestions(reply)
	if err != nil {
		return nil, upstream("unusable question set: %v", err)
	}
	return limitQuestions(questions, count), nil
}

// parseQuestions accepts a bare JSON array or one wrapped in a code fence.
func parseQuestions(reply string) ([]PracticeQuestion, error) {
	text := strings.TrimSpace(reply)
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			text = text[start : end+1]
		}
	}

	var questions []PracticeQuestion
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, err
	}

	valid := questions[:0]
	for _, q := range questions {
		if strings.TrimSpace(q.Prompt) != "" && strings.TrimSpace(q.Answer) != "" {
			valid = append(valid, q)
		}
	}
	if len(valid) == 0 {
		return nil, errors.New("no complete questions")
	}
	return valid, nil
}

func limitQuestions(qs []PracticeQuestion, n int) []PracticeQuestion {
	if len(qs) > n {
		return qs[:n]
	}
	return qs
}
