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
	"lingo_stake_backend/pkg/logger"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

const maxSpeechSeconds = 120

// Transcriber turns a normalized WAV file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath, language string) (string, error)
}

// OpenAITranscriber calls the audio transcription endpoint.
type OpenAITranscriber struct {
	Config config.OpenAIConfig
	Client *http.Client
}

func NewOpenAITranscriber(cfg config.OpenAIConfig) *OpenAITranscriber {
	return &OpenAITranscriber{Config: cfg, Client: &http.Client{Timeout: 60 * time.Second}}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, wavPath, language string) (string, error) {
	if t.Config.APIKey == "" {
		return "", upstream("transcription provider is not configured")
	}

	f, err := os.Open(wavPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	_ = w.WriteField("model", t.Config.TranscriptionModel)
	if language != "" {
		_ = w.WriteField("language", language)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(t.Config.BaseURL, "/")+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.Config.APIKey)

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", upstream("transcription request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", upstream("transcription API error (status %d): %s", resp.StatusCode, truncate(string(raw), 300))
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", upstream("transcription response is not JSON: %v", err)
	}
	return strings.TrimSpace(result.Text), nil
}

type SpeechUpload struct {
	Filename     string
	ContentType  string
	Size         int64
	Reader       io.Reader
	LanguageCode string
	ExpectedText string
}

type SpeechService struct {
	PracticeRepo *repository.PracticeRepository
	Storage      *StorageService
	Transcriber  Transcriber
	TempDir      string
	// Normalize and Probe wrap ffmpeg; tests replace them.
	Normalize func(in, out string) error
	Probe     func(path string) (*util.AudioInfo, error)
}

func NewSpeechService(practiceRepo *repository.PracticeRepository, storage *StorageService, transcriber Transcriber) *SpeechService {
	return &SpeechService{
		PracticeRepo: practiceRepo,
		Storage:      storage,
		Transcriber:  transcriber,
		TempDir:      os.TempDir(),
		Normalize:    util.NormalizeSpeech,
		Probe:        util.GetAudioInfo,
	}
}

// Submit stores the recording, transcribes it and scores it against the
// expected text when one is given.
func (s *SpeechService) Submit(ctx context.Context, userID uint, upload *SpeechUpload) (*model.SpeechSubmission, error) {
	if !util.HasAllowedExtension(upload.Filename, util.AllowedAudioExtensions) {
		return nil, fmt.Errorf("%w: unsupported audio format", util.ErrValidationFailed)
	}

	workDir, err := os.MkdirTemp(s.TempDir, "speech-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	original := filepath.Join(workDir, "original"+strings.ToLower(filepath.Ext(upload.Filename)))
	if err := writeFile(original, upload.Reader); err != nil {
		return nil, err
	}

	normalized := filepath.Join(workDir, "speech.wav")
	if err := s.Normalize(original, normalized); err != nil {
		return nil, fmt.Errorf("%w: could not decode audio: %v", util.ErrValidationFailed, err)
	}

	var duration float64
	if info, err := s.Probe(normalized); err == nil {
		duration = info.Duration
	}
	if duration > maxSpeechSeconds {
		return nil, fmt.Errorf("%w: recordings are limited to %d seconds", util.ErrValidationFailed, maxSpeechSeconds)
	}

	transcript, err := s.Transcriber.Transcribe(ctx, normalized, strings.ToLower(upload.LanguageCode))
	if err != nil {
		return nil, err
	}

	objectName := ObjectName("speech", userID, "speech.wav")
	url, err := s.Storage.UploadFile(ctx, objectName, normalized, "audio/wav")
	if err != nil {
		logger.Log.Warn("Failed to store speech recording", zap.Uint("userId", userID), zap.Error(err))
	}

	submission := &model.SpeechSubmission{
		UserID:        userID,
		LanguageCode:  strings.ToLower(upload.LanguageCode),
		ExpectedText:  upload.ExpectedText,
		Transcript:    transcript,
		AudioURL:      url,
		DurationSec:   duration,
		MatchAccuracy: MatchAccuracy(upload.ExpectedText, transcript),
	}
	if err := s.PracticeRepo.CreateSpeechSubmission(submission); err != nil {
		return nil, err
	}
	return submission, nil
}

func (s *SpeechService) List(userID uint, limit int) ([]model.SpeechSubmission, error) {
	return s.PracticeRepo.ListSpeechSubmissions(userID, limit)
}

func writeFile(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// MatchAccuracy is the share (0-100) of expected words found in the
// transcript, ignoring case and punctuation. Empty expected text scores 0.
func MatchAccuracy(expected, transcript string) int {
	want := words(expected)
	if len(want) == 0 {
		return 0
	}
	have := map[string]int{}
	for _, w := range words(transcript) {
		have[w]++
	}

	matched := 0
	for _, w := range want {
		if have[w] > 0 {
			have[w]--
			matched++
		}
	}
	return matched * 100 / len(want)
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}
