package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var request groqChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Equal(t, "llama", request.Model)
		assert.Equal(t, defaultMaxTokens, request.MaxTokens)

		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`)
	}))
	defer server.Close()

	client := NewGroqClient("secret", server.URL+"/", "llama", time.Second, 0)
	content, raw, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, content)
	assert.NotEmpty(t, raw)
}

// TestGroqClientAPIError проверяет, что тело ошибки возвращается вместе с сообщением.
func TestGroqClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer server.Close()

	client := NewGroqClient("secret", server.URL, "llama", time.Second, 100)
	_, raw, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "groq api error: rate limited")
	assert.Contains(t, string(raw), "rate limited")
}

func TestGroqClientMissingKey(t *testing.T) {
	client := NewGroqClient(" ", "http://localhost", "llama", time.Second, 0)
	_, _, err := client.Chat(context.Background(), nil)
	assert.Error(t, err)
}

func TestGeminiClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/flash:generateContent", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("key"))

		var request geminiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.NotNil(t, request.SystemInstruction)
		if assert.Len(t, request.Contents, 1) {
			assert.Equal(t, "user", request.Contents[0].Role)
		}

		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`)
	}))
	defer server.Close()

	client := NewGeminiClient("key", server.URL, "flash", time.Second, 0)
	content, _, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, content)
}

func TestBuildGeminiRequestNeedsUserContent(t *testing.T) {
	_, err := buildGeminiRequest([]Message{{Role: "system", Content: "only system"}}, 10)
	assert.Error(t, err)
}

func TestGroqClientTruncatedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"recipes\":["},"finish_reason":"length"}]}`)
	}))
	defer server.Close()

	client := NewGroqClient("secret", server.URL, "llama", time.Second, 10)
	_, raw, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.NotEmpty(t, raw)
}

func TestGeminiClientPlainErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream unavailable")
	}))
	defer server.Close()

	client := NewGeminiClient("key", server.URL, "flash", time.Second, 0)
	_, raw, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Equal(t, "upstream unavailable", string(raw))
}
