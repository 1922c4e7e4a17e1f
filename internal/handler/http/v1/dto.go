package v1

import (
	"time"

	"github.com/google/uuid"
)

// ProcessMessageRequest DTO для входящего сообщения чат-канала
// @Description DTO для входящего сообщения чат-канала
type ProcessMessageRequest struct {
	FromPhone string  `json:"from_phone" validate:"required"`
	Body      string  `json:"body" validate:"required"`
	PhotoURL  *string `json:"photo_url,omitempty"`
}

// SubmitReportRequest DTO для прямой подачи отчета из приложения
// @Description DTO для прямой подачи отчета из приложения
type SubmitReportRequest struct {
	AccountID   string  `json:"account_id" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Latitude    float64 `json:"latitude" validate:"required,latitude"`
	Longitude   float64 `json:"longitude" validate:"required,longitude"`
	PhotoURL    string  `json:"photo_url" validate:"required"`
}

// TransitionRequest DTO для верификации/отклонения инцидента
// @Description DTO для верификации/отклонения инцидента
type TransitionRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID            uuid.UUID `json:"id"`
	ReporterID    uuid.UUID `json:"reporter_id"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	PhotoURL      *string   `json:"photo_url,omitempty"`
	Status        string    `json:"status"`
	Source        string    `json:"source"`
	VerifierNotes *string   `json:"verifier_notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PointsResponse DTO для ответа с балансом баллов репортера
// @Description DTO для ответа с балансом баллов репортера
type PointsResponse struct {
	Points int `json:"points"`
}
