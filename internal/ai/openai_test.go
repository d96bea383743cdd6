package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAI_GenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.NotEmpty(t, req.Messages)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"content": "Paris is the capital of France."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
		}`))
	}))
	defer server.Close()

	p := NewOpenAI("test-key", "")
	p.baseURL = server.URL

	resp, err := p.GenerateResponse(context.Background(), &GenerateRequest{
		Messages: []ChatMessage{{Role: "user", Content: "What is the capital of France?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", resp.Content)
	assert.Equal(t, 20, resp.Usage.TotalTokens)
}

func TestOpenAI_GenerateResponse_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewOpenAI("test-key", "")
	p.baseURL = server.URL

	_, err := p.GenerateResponse(context.Background(), &GenerateRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestAnthropic_GenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "You are helpful.", req.System, "leading system message lifts into the system field")
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content": [{"type": "text", "text": "Hello there."}],
			"usage": {"input_tokens": 5, "output_tokens": 3}
		}`))
	}))
	defer server.Close()

	p := NewAnthropic("test-key", "")
	p.baseURL = server.URL

	resp, err := p.GenerateResponse(context.Background(), &GenerateRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: "You are helpful."},
			{Role: "user", Content: "Hi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", resp.Content)
	assert.Equal(t, 8, resp.Usage.TotalTokens)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New("bogus", "key", "")
	assert.Error(t, err)
}
