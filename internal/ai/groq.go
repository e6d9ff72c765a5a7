package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const groqCompletionsPath = "/chat/completions"

// GroqClient talks to an OpenAI-compatible chat completions endpoint (Groq by default).
type GroqClient struct {
	apiKey    string
	model     string
	maxTokens int
	rest      *resty.Client
}

type groqChatRequest struct {
	Model          string              `json:"model"`
	Messages       []Message           `json:"messages"`
	Temperature    float64             `json:"temperature,omitempty"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *groqResponseFormat `json:"response_format,omitempty"`
}

type groqResponseFormat struct {
	Type string `json:"type"`
}

type groqChatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// NewGroqClient создает клиент Groq.
func NewGroqClient(apiKey, baseURL, model string, timeout time.Duration, maxTokens int) *GroqClient {
	return &GroqClient{
		apiKey:    strings.TrimSpace(apiKey),
		model:     model,
		maxTokens: maxTokens,
		rest:      newRestClient(baseURL, timeout),
	}
}

// Chat просит модель ответить JSON-объектом.
func (c *GroqClient) Chat(ctx context.Context, messages []Message) (string, []byte, error) {
	if c.apiKey == "" {
		return "", nil, errors.New("groq api key is missing")
	}

	payload := groqChatRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    generationTemperature,
		MaxTokens:      resolveMaxTokens(c.maxTokens),
		ResponseFormat: &groqResponseFormat{Type: "json_object"},
	}

	body, err := postJSON(ctx, c.rest.R().SetAuthToken(c.apiKey), "groq", groqCompletionsPath, payload)
	if err != nil {
		return "", body, err
	}

	var parsed groqChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", body, err
	}
	if len(parsed.Choices) == 0 {
		return "", body, errors.New("groq response missing choices")
	}

	choice := parsed.Choices[0]
	if choice.FinishReason == "length" {
		// обрезанный JSON все равно не разберется
		return "", body, errors.New("groq response truncated by max_tokens")
	}

	return choice.Message.Content, body, nil
}
