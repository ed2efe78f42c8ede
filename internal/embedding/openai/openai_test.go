package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

// newServer answers /v1/embeddings with vectors [i, len(text)] in reverse order.
func newServer(t *testing.T, seen *embeddingRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = req
		}
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(i), float64(len(req.Input[i]))},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("DOCQA_TEST_EMPTY_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "DOCQA_TEST_EMPTY_KEY"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestEmbedBatch_ReordersByIndex(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "test-key")
	var seen embeddingRequest
	srv := newServer(t, &seen)

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "DOCQA_TEST_KEY", Model: "embed-small", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Dimension())

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {1, 2}, {2, 3}}, vecs)
	assert.Equal(t, []string{"a", "bb", "ccc"}, seen.Input)
	assert.Equal(t, "embed-small", seen.Model)
	assert.Zero(t, seen.Dimensions)
	assert.Equal(t, 2, c.Dimension())
	assert.Equal(t, "openai", c.Name())
}

func TestEmbedOne_SendsDimensions(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "test-key")
	var seen embeddingRequest
	srv := newServer(t, &seen)

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "DOCQA_TEST_KEY", Dimension: 2})
	require.NoError(t, err)
	v, err := c.EmbedOne(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5}, v)
	assert.Equal(t, 2, seen.Dimensions)
	assert.Equal(t, DefaultModel, seen.Model)
}

func TestEmbedBatch_Empty(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "test-key")
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1/v1", APIKeyEnv: "DOCQA_TEST_KEY"})
	require.NoError(t, err)
	vecs, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestEmbedBatch_ServerError(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error","code":"bad","param":"input"}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "DOCQA_TEST_KEY"})
	require.NoError(t, err)
	_, err = c.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	var apiErr *openai.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[1]}]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "DOCQA_TEST_KEY"})
	require.NoError(t, err)
	_, err = c.EmbedBatch(context.Background(), []string{"x", "y"})
	assert.ErrorContains(t, err, "got 1 vectors for 2 inputs")
}
