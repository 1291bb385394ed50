package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	text     string
	err      error
	language string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, wavPath, language string) (string, error) {
	f.language = language
	if _, err := os.Stat(wavPath); err != nil {
		return "", err
	}
	return f.text, f.err
}

func copyFile(in, out string) error {
	src, err := os.Open(in)
	if err != nil {
		return err
	}
	defer src.Close()
	return writeFile(out, src)
}

func newTestSpeech(t *testing.T, env *testEnv, tr Transcriber, seconds float64) *SpeechService {
	storage := NewStorageService(&config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()})
	s := NewSpeechService(repository.NewPracticeRepository(env.db), storage, tr)
	s.TempDir = t.TempDir()
	s.Normalize = copyFile
	s.Probe = func(string) (*util.AudioInfo, error) { return &util.AudioInfo{Duration: seconds}, nil }
	return s
}

func TestSpeechSubmit(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	tr := &fakeTranscriber{text: "Buenos días, ¿cómo estás?"}
	speech := newTestSpeech(t, env, tr, 3.5)

	sub, err := speech.Submit(context.Background(), alice.ID, &SpeechUpload{
		Filename:     "take1.webm",
		Reader:       strings.NewReader("fake audio"),
		LanguageCode: "ES",
		ExpectedText: "Buenos días, ¿cómo está usted?",
	})
	require.NoError(t, err)
	assert.Equal(t, "es", tr.language)
	assert.Equal(t, 60, sub.MatchAccuracy)
	assert.InDelta(t, 3.5, sub.DurationSec, 1e-9)
	assert.True(t, strings.HasPrefix(sub.AudioURL, "/uploads/speech/"))

	list, err := speech.List(alice.ID, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSpeechSubmitRejects(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com", aliceWallet)

	_, err := newTestSpeech(t, env, &fakeTranscriber{}, 1).Submit(context.Background(), alice.ID,
		&SpeechUpload{Filename: "notes.txt", Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, util.ErrValidationFailed)

	_, err = newTestSpeech(t, env, &fakeTranscriber{}, 300).Submit(context.Background(), alice.ID,
		&SpeechUpload{Filename: "long.mp3", Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, util.ErrValidationFailed)

	broken := newTestSpeech(t, env, &fakeTranscriber{}, 1)
	broken.Normalize = func(string, string) error { return errors.New("invalid data found when processing input") }
	_, err = broken.Submit(context.Background(), alice.ID, &SpeechUpload{Filename: "bad.wav", Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, util.ErrValidationFailed)

	_, err = newTestSpeech(t, env, &fakeTranscriber{err: util.ErrUpstreamProvider}, 1).Submit(context.Background(), alice.ID,
		&SpeechUpload{Filename: "ok.wav", Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, util.ErrUpstreamProvider)
}

func TestMatchAccuracy(t *testing.T) {
	assert.Equal(t, 100, MatchAccuracy("Hello world", "hello, WORLD!"))
	assert.Equal(t, 50, MatchAccuracy("the the", "the"))
	assert.Equal(t, 0, MatchAccuracy("", "anything"))
	assert.Equal(t, 0, MatchAccuracy("bonjour", ""))
}

type fakeCallProvider struct {
	prompt string
	err    error
}

func (f *fakeCallProvider) CreateCall(_ context.Context, prompt string) (*CallSession, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &CallSession{CallID: "call-" + strings.Repeat("1", 8), JoinURL: "wss://voice.example/join"}, nil
}

func TestVoiceStartCall(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	provider := &fakeCallProvider{}
	voice := NewVoiceService(repository.NewPracticeRepository(env.db), provider)

	session, err := voice.StartCall(context.Background(), alice.ID, &VoiceCallRequest{LanguageCode: "DE", Level: "B1", Topic: "travel"})
	require.NoError(t, err)
	assert.Equal(t, "de", session.LanguageCode)
	assert.Equal(t, "wss://voice.example/join", session.JoinURL)
	assert.Contains(t, provider.prompt, "Talk about travel")

	_, err = voice.StartCall(context.Background(), alice.ID, &VoiceCallRequest{LanguageCode: "de", Level: "X"})
	assert.ErrorIs(t, err, util.ErrValidationFailed)

	provider.err = util.ErrUpstreamProvider
	_, err = voice.StartCall(context.Background(), alice.ID, &VoiceCallRequest{LanguageCode: "de", Level: "B1"})
	assert.ErrorIs(t, err, util.ErrUpstreamProvider)

	list, err := voice.List(alice.ID, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLocalStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storage := NewStorageService(&config.StorageConfig{Type: util.StorageLocal, LocalPath: dir})

	name := ObjectName("avatars", 7, "Me.PNG")
	assert.True(t, strings.HasPrefix(name, "avatars/7/"))
	assert.True(t, strings.HasSuffix(name, ".png"))

	url, err := storage.Upload(context.Background(), name, strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+name, url)

	f, err := os.Open(dir + "/" + name)
	require.NoError(t, err)
	data, _ := io.ReadAll(f)
	f.Close()
	assert.Equal(t, "png", string(data))

	require.NoError(t, storage.Delete(context.Background(), name))
}
