package models

import (
	"time"

	"github.com/google/uuid"
)

// RewardBalance - накопленный баланс баллов репортера
type RewardBalance struct {
	ReporterID uuid.UUID `json:"reporter_id"`
	Points     int       `json:"points"`
	UpdatedAt  time.Time `json:"updated_at"`
}
