package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/pkg/logger"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EmailSender delivers transactional mail. Delivery is best effort.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewEmailSender returns a SendGrid sender, or a sender that only logs when
// no API key is configured.
func NewEmailSender(cfg *config.EmailConfig) EmailSender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return logOnlySender{}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	return &SendGridSender{
		cfg:        *cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type logOnlySender struct{}

func (logOnlySender) Send(_ context.Context, to, subject, _ string) error {
	logger.Log.Debug("Email not sent, no provider configured", zap.String("to", to), zap.String("subject", subject))
	return nil
}

type SendGridSender struct {
	cfg        config.EmailConfig
	baseURL    string
	httpClient *http.Client
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgMail struct {
	Personalizations []struct {
		To []sgAddress `json:"to"`
	} `json:"personalizations"`
	From    sgAddress `json:"from"`
	Subject string    `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func (s *SendGridSender) Send(ctx context.Context, to, subject, body string) error {
	var mail sgMail
	mail.Personalizations = append(mail.Personalizations, struct {
		To []sgAddress `json:"to"`
	}{To: []sgAddress{{Email: to}}})
	mail.From = sgAddress{Email: s.cfg.FromEmail, Name: s.cfg.FromName}
	mail.Subject = subject
	mail.Content = append(mail.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{Type: "text/plain", Value: body})

	payload, err := json.Marshal(mail)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
