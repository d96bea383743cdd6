package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgate/internal/mathutil"
)

func newTestOpenAI(serverURL string) *OpenAI {
	e := NewOpenAI("test-api-key", "text-embedding-3-small", 3)
	e.baseURL = serverURL + "/v1/embeddings"
	return e
}

func TestOpenAI_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		require.Len(t, req.Input, 1)

		resp := openAIEmbedResponse{
			Data: []openAIEmbedData{{Embedding: []float32{3, 0, 4}, Index: 0}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := newTestOpenAI(server.URL)
	vectors, err := e.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)

	// Vectors come back unit-normalized.
	assert.InDelta(t, 1.0, mathutil.Norm(vectors[0]), 1e-5)
	assert.InDelta(t, 0.6, vectors[0][0], 1e-5)
	assert.InDelta(t, 0.8, vectors[0][2], 1e-5)
}

func TestOpenAI_Embed_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		resp := openAIEmbedResponse{
			Data: []openAIEmbedData{{Embedding: []float32{1, 0, 0}, Index: 0}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := newTestOpenAI(server.URL)
	vectors, err := e.Embed(context.Background(), []string{"retry me"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAI_Embed_ClientErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	e := newTestOpenAI(server.URL)
	_, err := e.Embed(context.Background(), []string{"boom"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAI_Embed_CountMismatchIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIEmbedResponse{})
	}))
	defer server.Close()

	e := newTestOpenAI(server.URL)
	_, err := e.Embed(context.Background(), []string{"one", "two"})
	assert.ErrorIs(t, err, ErrUnavailable)
}
