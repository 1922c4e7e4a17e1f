package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mangrovewatch/mangrove_guardian/internal/service"
	"github.com/redis/go-redis/v9"
)

type RewardRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewRewardRepository(db *pgxpool.Pool, redisClient *redis.Client) service.RewardRepository {
	return &RewardRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// Credit увеличивает баланс репортера на points.
// Upsert с инкрементом: первая верификация создает строку, последующие
// только наращивают баланс.
func (r *RewardRepository) Credit(ctx context.Context, reporterID uuid.UUID, points int) error {
	query := `
		INSERT INTO reporter_rewards (reporter_id, points)
		VALUES ($1, $2)
		ON CONFLICT (reporter_id) DO UPDATE
		SET points = reporter_rewards.points + EXCLUDED.points,
			updated_at = NOW();
	`
	if _, err := r.db.Exec(ctx, query, reporterID, points); err != nil {
		return fmt.Errorf("failed to credit reward points: %w", err)
	}
	return nil
}

// Balance возвращает текущий баланс баллов. Отсутствие строки - это 0, а не ошибка.
func (r *RewardRepository) Balance(ctx context.Context, reporterID uuid.UUID) (int, error) {
	var points int
	query := `SELECT points FROM reporter_rewards WHERE reporter_id = $1;`
	err := r.db.QueryRow(ctx, query, reporterID).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get reward balance: %w", err)
	}
	return points, nil
}

// GetBalanceFromCache пытается получить баланс из Redis
func (r *RewardRepository) GetBalanceFromCache(ctx context.Context, reporterID uuid.UUID) (int, bool, error) {
	key := fmt.Sprintf("points:%s", reporterID.String())
	val, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get balance from cache: %w", err)
	}

	points, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse cached balance: %w", err)
	}
	return points, true, nil
}

// SetBalanceCache сохраняет баланс в Redis
func (r *RewardRepository) SetBalanceCache(ctx context.Context, reporterID uuid.UUID, points int) error {
	key := fmt.Sprintf("points:%s", reporterID.String())
	if err := r.redisClient.Set(ctx, key, points, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set balance in cache: %w", err)
	}
	return nil
}

// InvalidateBalanceCache удаляет баланс из Redis кэша
func (r *RewardRepository) InvalidateBalanceCache(ctx context.Context, reporterID uuid.UUID) error {
	key := fmt.Sprintf("points:%s", reporterID.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate balance cache: %w", err)
	}
	return nil
}
