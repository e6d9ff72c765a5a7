package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ai-meal-planner/backend/internal/models"
)

const calendarColumns = "id, user_id, provider, token, username, secret, server_url, created_at, updated_at"

type CalendarRepository struct {
	db *pgxpool.Pool
}

// NewCalendarRepository создает репозиторий подключений календарей.
func NewCalendarRepository(db *pgxpool.Pool) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Upsert сохраняет подключение; у пользователя одно подключение на провайдера.
func (r *CalendarRepository) Upsert(ctx context.Context, conn models.CalendarConnection) (models.CalendarConnection, error) {
	var token *string
	if len(conn.Token) > 0 {
		value := string(conn.Token)
		token = &value
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO calendar_connections (user_id, provider, token, username, secret, server_url)
		 VALUES ($1, $2, $3::jsonb, $4, $5, $6)
		 ON CONFLICT (user_id, provider) DO UPDATE
		 SET token = EXCLUDED.token,
		     username = EXCLUDED.username,
		     secret = EXCLUDED.secret,
		     server_url = EXCLUDED.server_url,
		     updated_at = NOW()
		 RETURNING `+calendarColumns,
		conn.UserID, conn.Provider, token, conn.Username, conn.Secret, conn.ServerURL,
	)
	return scanCalendarConnection(row)
}

// Get возвращает подключение пользователя к провайдеру.
func (r *CalendarRepository) Get(ctx context.Context, userID uuid.UUID, provider models.CalendarProvider) (models.CalendarConnection, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+calendarColumns+` FROM calendar_connections WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	return scanCalendarConnection(row)
}

// List возвращает все подключения пользователя.
func (r *CalendarRepository) List(ctx context.Context, userID uuid.UUID) ([]models.CalendarConnection, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+calendarColumns+` FROM calendar_connections WHERE user_id = $1 ORDER BY provider`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	connections := make([]models.CalendarConnection, 0)
	for rows.Next() {
		conn, err := scanCalendarConnection(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return connections, nil
}

// Delete удаляет подключение.
func (r *CalendarRepository) Delete(ctx context.Context, userID uuid.UUID, provider models.CalendarProvider) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM calendar_connections WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanCalendarConnection(row pgx.Row) (models.CalendarConnection, error) {
	var conn models.CalendarConnection
	var token []byte

	err := row.Scan(
		&conn.ID,
		&conn.UserID,
		&conn.Provider,
		&token,
		&conn.Username,
		&conn.Secret,
		&conn.ServerURL,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return models.CalendarConnection{}, mapError(err)
	}

	if len(token) > 0 {
		conn.Token = token
	}
	return conn, nil
}
