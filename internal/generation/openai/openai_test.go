package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "m",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestGenerate_SendsPromptAsUserMessage(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "test-key")
	var seen chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("It is known for the Eiffel Tower."))
	}))
	t.Cleanup(srv.Close)

	g, err := NewGenerator(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "DOCQA_TEST_KEY", Model: "chat-small", Temperature: 0.2})
	require.NoError(t, err)
	out, err := g.Generate(context.Background(), "Question: What is Paris known for?")
	require.NoError(t, err)

	assert.Equal(t, "It is known for the Eiffel Tower.", out)
	assert.Equal(t, "chat-small", seen.Model)
	assert.InDelta(t, 0.2, seen.Temperature, 1e-9)
	require.Len(t, seen.Messages, 1)
	assert.Equal(t, "user", seen.Messages[0].Role)
	assert.Equal(t, "Question: What is Paris known for?", seen.Messages[0].Content)
	assert.Equal(t, "openai", g.Name())
}

func TestGenerate_NoChoices(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := completion("")
		body["choices"] = []any{}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	g, err := NewGenerator(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "DOCQA_TEST_KEY"})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "no choices")
}

func TestGenerate_Timeout(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "test-key")
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	g, err := NewGenerator(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "DOCQA_TEST_KEY", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewGenerator_MissingKey(t *testing.T) {
	t.Setenv("DOCQA_TEST_EMPTY_KEY", "")
	_, err := NewGenerator(Config{APIKeyEnv: "DOCQA_TEST_EMPTY_KEY"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}
