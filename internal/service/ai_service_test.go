package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIServiceComplete(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"¡Hola!"}}]}`)
	}))
	defer srv.Close()

	ai := NewAIService(config.AIConfig{BaseURL: srv.URL + "/", APIKey: "key", Model: "m1"})
	reply, err := ai.Complete(context.Background(), []AIChatMessage{{Role: "user", Content: "hola"}})
	require.NoError(t, err)
	assert.Equal(t, "¡Hola!", reply)
	assert.Equal(t, "m1", got.Model)
	assert.False(t, got.Stream)
}

func TestAIServiceUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ai := NewAIService(config.AIConfig{BaseURL: srv.URL, APIKey: "key"})
	_, err := ai.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, util.ErrUpstreamProvider)

	unconfigured := NewAIService(config.AIConfig{BaseURL: srv.URL})
	_, err = unconfigured.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, util.ErrUpstreamProvider)
}

func TestAIServiceStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Bue\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"nos días\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	ai := NewAIService(config.AIConfig{BaseURL: srv.URL, APIKey: "key"})
	chunks, errs := ai.Stream(context.Background(), []AIChatMessage{{Role: "user", Content: "hi"}})

	var text string
	for c := range chunks {
		text += c
	}
	assert.NoError(t, <-errs)
	assert.Equal(t, "Buenos días", text)
}

func TestAIServiceUpdateConfig(t *testing.T) {
	ai := NewAIService(config.AIConfig{})
	ai.UpdateConfig(config.AIConfig{APIKey: "new", Model: "m2"})
	assert.Equal(t, "m2", ai.current().Model)
}
