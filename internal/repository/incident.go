package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mangrovewatch/mangrove_guardian/internal/models"
	"github.com/mangrovewatch/mangrove_guardian/internal/service"
	"github.com/redis/go-redis/v9"
)

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (reporter_id, description, category, latitude, longitude, photo_url, status, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.ReporterID,
		incident.Description,
		incident.Category,
		incident.Latitude,
		incident.Longitude,
		incident.PhotoURL,
		incident.Status,
		incident.Source,
	).Scan(&incident.ID, &incident.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	incident := &models.Incident{}
	query := `
		SELECT
			id,
			reporter_id,
			description,
			category,
			latitude,
			longitude,
			photo_url,
			status,
			source,
			verifier_notes,
			created_at
		FROM incidents
		WHERE id = $1;
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.ReporterID,
		&incident.Description,
		&incident.Category,
		&incident.Latitude,
		&incident.Longitude,
		&incident.PhotoURL,
		&incident.Status,
		&incident.Source,
		&incident.VerifierNotes,
		&incident.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// UpdateStatusIfPending атомарно переводит инцидент из pending в целевой
// статус. Условный UPDATE гарантирует, что из двух конкурентных переходов
// выигрывает ровно один, второй получает ErrInvalidTransition.
func (r *IncidentRepository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status models.Status, notes *string) (*models.Incident, error) {
	incident := &models.Incident{}
	query := `
		UPDATE incidents SET
			status = $1,
			verifier_notes = $2
		WHERE id = $3 AND status = 'pending'
		RETURNING id, reporter_id, description, category, latitude, longitude, photo_url, status, source, verifier_notes, created_at;
	`
	err := r.db.QueryRow(ctx, query, status, notes, id).Scan(
		&incident.ID,
		&incident.ReporterID,
		&incident.Description,
		&incident.Category,
		&incident.Latitude,
		&incident.Longitude,
		&incident.PhotoURL,
		&incident.Status,
		&incident.Source,
		&incident.VerifierNotes,
		&incident.CreatedAt,
	)
	if err == nil {
		return incident, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update incident status: %w", err)
	}

	// Ноль строк: либо инцидента нет, либо он уже не pending
	var current models.Status
	err = r.db.QueryRow(ctx, `SELECT status FROM incidents WHERE id = $1;`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to check incident status: %w", err)
	}
	return nil, fmt.Errorf("incident already %s: %w", current, service.ErrInvalidTransition)
}

// List возвращает инциденты по фильтру статус/категория/диапазон дат
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	query := `
		SELECT
			id,
			reporter_id,
			description,
			category,
			latitude,
			longitude,
			photo_url,
			status,
			source,
			verifier_notes,
			created_at
		FROM incidents
		WHERE status = $1
	`
	args := []any{filter.Status}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at DESC;"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident := &models.Incident{}
		err := rows.Scan(
			&incident.ID,
			&incident.ReporterID,
			&incident.Description,
			&incident.Category,
			&incident.Latitude,
			&incident.Longitude,
			&incident.PhotoURL,
			&incident.Status,
			&incident.Source,
			&incident.VerifierNotes,
			&incident.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	// Устанавливаем срок жизни кэша, например, 5 минут
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
