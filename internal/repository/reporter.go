package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mangrovewatch/mangrove_guardian/internal/service"
)

type ReporterRepository struct {
	db *pgxpool.Pool
}

func NewReporterRepository(db *pgxpool.Pool) service.ReporterRepository {
	return &ReporterRepository{db: db}
}

// ResolveByChannelKey возвращает id личности для ключа канала, создавая ее
// при первом контакте. INSERT ... ON CONFLICT DO NOTHING + повторный SELECT
// дает insert-or-fetch: конкурентные первые контакты с одним ключом
// сходятся к одной личности за счет уникального индекса.
func (r *ReporterRepository) ResolveByChannelKey(ctx context.Context, channelKey string) (uuid.UUID, error) {
	var id uuid.UUID

	query := `SELECT id FROM reporter_identities WHERE channel_key = $1;`
	err := r.db.QueryRow(ctx, query, channelKey).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to look up reporter by channel key: %w", err)
	}

	insert := `
		INSERT INTO reporter_identities (channel_key)
		VALUES ($1)
		ON CONFLICT (channel_key) DO NOTHING
		RETURNING id;
	`
	err = r.db.QueryRow(ctx, insert, channelKey).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to create reporter for channel key: %w", err)
	}

	// Конкурентная вставка выиграла гонку, забираем ее id
	err = r.db.QueryRow(ctx, query, channelKey).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to fetch reporter after conflict: %w", err)
	}
	return id, nil
}

// ResolveByAccountID возвращает id личности для аутентифицированного
// аккаунта, создавая ее при первом обращении
func (r *ReporterRepository) ResolveByAccountID(ctx context.Context, accountID string) (uuid.UUID, error) {
	var id uuid.UUID

	query := `SELECT id FROM reporter_identities WHERE account_id = $1;`
	err := r.db.QueryRow(ctx, query, accountID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to look up reporter by account id: %w", err)
	}

	insert := `
		INSERT INTO reporter_identities (account_id)
		VALUES ($1)
		ON CONFLICT (account_id) DO NOTHING
		RETURNING id;
	`
	err = r.db.QueryRow(ctx, insert, accountID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to create reporter for account id: %w", err)
	}

	err = r.db.QueryRow(ctx, query, accountID).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to fetch reporter after conflict: %w", err)
	}
	return id, nil
}
