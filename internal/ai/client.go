package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultMaxTokens = 4096

// generationTemperature держит ответы модели ближе к заданной схеме.
const generationTemperature = 0.4

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a chat-style model provider. Chat returns the model text and the raw API body.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, []byte, error)
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}

func newRestClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
}

type apiError struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// postJSON отправляет запрос провайдеру. Тело ответа возвращается и при ошибке API,
// чтобы его можно было сохранить в журнал запросов.
func postJSON(ctx context.Context, request *resty.Request, provider, path string, payload interface{}) ([]byte, error) {
	resp, err := request.
		SetContext(ctx).
		SetBody(payload).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", provider, err)
	}

	body := resp.Body()
	if !resp.IsSuccess() {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
			return body, fmt.Errorf("%s api error: %s", provider, apiErr.Error.Message)
		}
		return body, fmt.Errorf("%s api error: status %d: %s", provider, resp.StatusCode(), strings.TrimSpace(string(body)))
	}

	return body, nil
}
