package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AIRepository struct {
	db *pgxpool.Pool
}

type AIRequestLog struct {
	UserID          uuid.UUID
	MealPlanID      *uuid.UUID
	RequestType     string
	Provider        string
	Model           string
	Prompt          string
	RequestPayload  []byte
	ResponsePayload []byte
	RawResponse     string
	Success         bool
	ErrorMessage    *string
	Latency         time.Duration
}

type AIRequestFilter struct {
	UserID      *uuid.UUID
	MealPlanID  *uuid.UUID
	Success     *bool
	RequestType *string
}

type AIRequestRecord struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	MealPlanID      *uuid.UUID
	RequestType     string
	Provider        string
	Model           string
	Prompt          *string
	RequestPayload  []byte
	ResponsePayload []byte
	RawResponse     *string
	Success         bool
	ErrorMessage    *string
	LatencyMs       int64
	CreatedAt       time.Time
}

// NewAIRepository создает репозиторий для AI-запросов.
func NewAIRepository(db *pgxpool.Pool) *AIRepository {
	return &AIRepository{db: db}
}

// LogRequest сохраняет лог AI-запроса.
func (r *AIRepository) LogRequest(ctx context.Context, log AIRequestLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ai_requests
		 (user_id, meal_plan_id, request_type, provider, model, prompt, request_payload, response_payload, raw_response, success, error_message, latency_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::jsonb, NULLIF($8, '')::jsonb, $9, $10, $11, $12)`,
		log.UserID,
		log.MealPlanID,
		log.RequestType,
		log.Provider,
		log.Model,
		log.Prompt,
		string(log.RequestPayload),
		string(log.ResponsePayload),
		log.RawResponse,
		log.Success,
		log.ErrorMessage,
		log.Latency.Milliseconds(),
	)
	return err
}

// ListRequests возвращает логи AI-запросов с фильтрацией.
func (r *AIRepository) ListRequests(ctx context.Context, filter AIRequestFilter, limit, offset int, includePayloads bool) ([]AIRequestRecord, error) {
	where, args := buildAIRequestWhere(filter)

	columns := "id, user_id, meal_plan_id, request_type, provider, model, success, error_message, latency_ms, created_at"
	if includePayloads {
		columns += ", prompt, request_payload, response_payload, raw_response"
	}

	query := fmt.Sprintf("SELECT %s FROM ai_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d", columns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]AIRequestRecord, 0)
	for rows.Next() {
		var record AIRequestRecord
		dest := []any{
			&record.ID,
			&record.UserID,
			&record.MealPlanID,
			&record.RequestType,
			&record.Provider,
			&record.Model,
			&record.Success,
			&record.ErrorMessage,
			&record.LatencyMs,
			&record.CreatedAt,
		}
		if includePayloads {
			dest = append(dest, &record.Prompt, &record.RequestPayload, &record.ResponsePayload, &record.RawResponse)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		requests = append(requests, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}

// CountRequests возвращает количество AI-запросов по фильтру.
func (r *AIRepository) CountRequests(ctx context.Context, filter AIRequestFilter) (int, error) {
	where, args := buildAIRequestWhere(filter)

	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM ai_requests"+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func buildAIRequestWhere(filter AIRequestFilter) (string, []any) {
	clauses := make([]string, 0)
	args := make([]any, 0)

	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.UserID != nil {
		add("user_id", *filter.UserID)
	}
	if filter.MealPlanID != nil {
		add("meal_plan_id", *filter.MealPlanID)
	}
	if filter.Success != nil {
		add("success", *filter.Success)
	}
	if filter.RequestType != nil {
		add("request_type", *filter.RequestType)
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
