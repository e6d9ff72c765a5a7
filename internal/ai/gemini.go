package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// GeminiClient calls the generateContent method of the Gemini API.
type GeminiClient struct {
	apiKey    string
	model     string
	maxTokens int
	rest      *resty.Client
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  *geminiConfig   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiClient создает клиент Gemini.
func NewGeminiClient(apiKey, baseURL, model string, timeout time.Duration, maxTokens int) *GeminiClient {
	return &GeminiClient{
		apiKey:    strings.TrimSpace(apiKey),
		model:     model,
		maxTokens: maxTokens,
		rest:      newRestClient(baseURL, timeout),
	}
}

// Chat склеивает текстовые части первого кандидата.
func (c *GeminiClient) Chat(ctx context.Context, messages []Message) (string, []byte, error) {
	if c.apiKey == "" {
		return "", nil, errors.New("gemini api key is missing")
	}

	payload, err := buildGeminiRequest(messages, resolveMaxTokens(c.maxTokens))
	if err != nil {
		return "", nil, err
	}

	request := c.rest.R().SetQueryParam("key", c.apiKey)
	body, err := postJSON(ctx, request, "gemini", "/models/"+c.model+":generateContent", payload)
	if err != nil {
		return "", body, err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", body, err
	}
	if len(parsed.Candidates) == 0 {
		return "", body, errors.New("gemini response missing candidates")
	}

	candidate := parsed.Candidates[0]
	if candidate.FinishReason == "MAX_TOKENS" {
		return "", body, errors.New("gemini response truncated by maxOutputTokens")
	}
	if len(candidate.Content.Parts) == 0 {
		return "", body, errors.New("gemini response missing content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	return text.String(), body, nil
}

// buildGeminiRequest раскладывает сообщения: system уходит в systemInstruction,
// assistant становится ролью model.
func buildGeminiRequest(messages []Message, maxTokens int) (geminiRequest, error) {
	var system []geminiPart
	contents := make([]geminiContent, 0, len(messages))

	for _, message := range messages {
		text := strings.TrimSpace(message.Content)
		if text == "" {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(message.Role)) {
		case "system":
			system = append(system, geminiPart{Text: text})
		case "assistant", "model":
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: text}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: text}}})
		}
	}

	if len(contents) == 0 {
		return geminiRequest{}, errors.New("gemini request has no user content")
	}

	request := geminiRequest{
		Contents: contents,
		GenerationConfig: &geminiConfig{
			Temperature:      generationTemperature,
			MaxOutputTokens:  maxTokens,
			ResponseMimeType: "application/json",
		},
	}
	if len(system) > 0 {
		request.SystemInstruction = &geminiContent{Parts: system}
	}

	return request, nil
}
