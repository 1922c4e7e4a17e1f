package models

import (
	"time"

	"github.com/google/uuid"
)

// ReporterIdentity - каноническая личность репортера.
// Достижима хотя бы по одному из ключей: ChannelKey (например, номер
// телефона WhatsApp) или AccountID (аутентифицированный аккаунт).
// Связывание двух ключей в одну личность - точка расширения, текущее
// поведение их не объединяет.
type ReporterIdentity struct {
	ID         uuid.UUID `json:"id"`
	ChannelKey *string   `json:"channel_key,omitempty"`
	AccountID  *string   `json:"account_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
