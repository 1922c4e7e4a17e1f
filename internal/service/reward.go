package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RewardService определяет контракт чтения баланса баллов репортера
type RewardService interface {
	Balance(ctx context.Context, reporterID uuid.UUID) (int, error)
}

type rewardService struct {
	rewards RewardRepository
	logger  *logrus.Logger
}

func NewRewardService(rewards RewardRepository, logger *logrus.Logger) RewardService {
	return &rewardService{
		rewards: rewards,
		logger:  logger,
	}
}

// Balance возвращает баланс репортера, сперва из кэша.
// Личность без начислений имеет баланс 0, это не ошибка.
func (s *rewardService) Balance(ctx context.Context, reporterID uuid.UUID) (int, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "reward",
		"method":      "Balance",
		"reporter_id": reporterID,
	})

	points, found, err := s.rewards.GetBalanceFromCache(ctx, reporterID)
	if err != nil {
		log.WithError(err).Warn("Failed to read balance cache")
	}
	if found {
		log.Debug("Balance served from cache")
		return points, nil
	}

	points, err = s.rewards.Balance(ctx, reporterID)
	if err != nil {
		log.WithError(err).Error("Failed to get balance from repository")
		return 0, fmt.Errorf("service: could not get reward balance: %w", err)
	}

	if err := s.rewards.SetBalanceCache(ctx, reporterID, points); err != nil {
		log.WithError(err).Warn("Failed to cache balance")
	}

	log.WithField("points", points).Info("Reward balance fetched")
	return points, nil
}
