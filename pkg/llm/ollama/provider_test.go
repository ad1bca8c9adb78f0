package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart-meal-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWithImagesSendsBase64AndFormat(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: `["egg"]`},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llava")
	out, err := p.GenerateWithImages(context.Background(), "list", []llm.Image{{MimeType: "image/png", Data: []byte("abc")}}, llm.WithJSONResponse())
	require.NoError(t, err)

	assert.Equal(t, `["egg"]`, out)
	assert.Equal(t, "llava", got.Model)
	assert.Equal(t, "json", got.Format)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, []string{"YWJj"}, got.Messages[0].Images)
}

func TestChatReportsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "missing")
	_, err := p.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
