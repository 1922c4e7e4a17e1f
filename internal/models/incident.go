package models

import (
	"time"

	"github.com/google/uuid"
)

// Category - категория инцидента, фиксированный набор значений
type Category string

const (
	CategoryIllegalCutting  Category = "Illegal Cutting"
	CategoryLandReclamation Category = "Land Reclamation"
	CategoryPollution       Category = "Pollution"
	CategoryOther           Category = "Other"
)

// IsValid проверяет, входит ли категория в фиксированный набор
func (c Category) IsValid() bool {
	switch c {
	case CategoryIllegalCutting, CategoryLandReclamation, CategoryPollution, CategoryOther:
		return true
	}
	return false
}

// Status - статус жизненного цикла инцидента.
// Переходы только pending -> verified и pending -> rejected, оба терминальные.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// Source - канал, через который поступил отчет
type Source string

const (
	SourceApp  Source = "app"
	SourceChat Source = "chat"
)

type Incident struct {
	ID            uuid.UUID `json:"id"`
	ReporterID    uuid.UUID `json:"reporter_id"`
	Description   string    `json:"description"`
	Category      Category  `json:"category"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	PhotoURL      *string   `json:"photo_url,omitempty"`
	Status        Status    `json:"status"`
	Source        Source    `json:"source"`
	VerifierNotes *string   `json:"verifier_notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// IncidentFilter - параметры фильтрации для выборки инцидентов.
// From/To включительно по created_at.
type IncidentFilter struct {
	Status   Status
	Category Category
	From     *time.Time
	To       *time.Time
}
