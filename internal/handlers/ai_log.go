package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"example.com/ai-meal-planner/backend/internal/repository"
)

const (
	aiRequestGenerateMealPlan = "generate_meal_plan"
	aiRequestSwapRecipe       = "swap_recipe"
)

// AIRecorder пишет каждый вызов модели в ai_requests.
type AIRecorder struct {
	Repo     *repository.AIRepository
	Provider string
	Model    string
}

// NewAIRecorder создает журнал AI-запросов для указанного провайдера.
func NewAIRecorder(repo *repository.AIRepository, provider, model string) *AIRecorder {
	return &AIRecorder{Repo: repo, Provider: provider, Model: model}
}

type aiCall struct {
	UserID      uuid.UUID
	PlanID      *uuid.UUID
	RequestType string
	Prompt      string
	Input       interface{}
	Output      interface{}
	Raw         []byte
	Started     time.Time
	Err         error
}

// Record сохраняет вызов; ошибка записи только логируется.
func (r *AIRecorder) Record(ctx context.Context, call aiCall) {
	if r == nil || r.Repo == nil {
		return
	}

	entry := repository.AIRequestLog{
		UserID:      call.UserID,
		MealPlanID:  call.PlanID,
		RequestType: call.RequestType,
		Provider:    r.Provider,
		Model:       r.Model,
		Prompt:      call.Prompt,
		RawResponse: string(call.Raw),
		Success:     call.Err == nil,
		Latency:     time.Since(call.Started),
	}
	if call.Input != nil {
		entry.RequestPayload, _ = json.Marshal(call.Input)
	}
	if call.Err == nil && call.Output != nil {
		entry.ResponsePayload, _ = json.Marshal(call.Output)
	}
	if call.Err != nil {
		message := call.Err.Error()
		entry.ErrorMessage = &message
	}

	// запись переживает отмену запроса или таймаут генерации
	if err := r.Repo.LogRequest(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("ai request log failed", slog.String("user_id", call.UserID.String()), slog.String("error", err.Error()))
	}
}
