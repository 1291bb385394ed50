package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/internal/util"
	"net/http"
	"strings"
	"sync"
	"time"
)

// AIService talks to an OpenAI-compatible chat completion endpoint
// (OpenRouter by default). The config can be swapped at runtime.
type AIService struct {
	mu     sync.RWMutex
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

// UpdateConfig is registered as a config reload callback.
func (s *AIService) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}

func (s *AIService) current() config.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
	Stream   bool            `json:"stream,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
		Delta   AIChatMessage `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func upstream(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", util.ErrUpstreamProvider, fmt.Sprintf(format, args...))
}

func (s *AIService) newRequest(ctx context.Context, messages []AIChatMessage, stream bool) (*http.Request, error) {
	cfg := s.current()
	if cfg.APIKey == "" {
		return nil, upstream("AI provider is not configured")
	}

	body, err := json.Marshal(ChatCompletionRequest{Model: cfg.Model, Messages: messages, Stream: stream})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// Complete sends the conversation and returns the assistant's reply.
func (s *AIService) Complete(ctx context.Context, messages []AIChatMessage) (string, error) {
	req, err := s.newRequest(ctx, messages, false)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", upstream("AI request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", upstream("AI API error (status %d): %s", resp.StatusCode, truncate(string(body), 300))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", upstream("AI response is not JSON: %v", err)
	}
	if result.Error != nil {
		return "", upstream("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", upstream("AI returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// Stream returns the reply as content deltas. The error channel receives at
// most one error and both channels are closed when the stream ends.
func (s *AIService) Stream(ctx context.Context, messages []AIChatMessage) (<-chan string, <-chan error) {
	out := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errChan)

		req, err := s.newRequest(ctx, messages, true)
		if err != nil {
			errChan <- err
			return
		}

		resp, err := s.client.Do(req)
		if err != nil {
			errChan <- upstream("AI request failed: %v", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errChan <- upstream("AI API error (status %d): %s", resp.StatusCode, truncate(string(body), 300))
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					errChan <- upstream("AI stream interrupted: %v", err)
				}
				return
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var chunk ChatCompletionResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case out <- chunk.Choices[0].Delta.Content:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
	}()

	return out, errChan
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
