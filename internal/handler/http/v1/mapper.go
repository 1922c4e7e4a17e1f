package v1

import (
	"github.com/mangrovewatch/mangrove_guardian/internal/models"
	"github.com/mangrovewatch/mangrove_guardian/internal/service"
)

// DTOToSubmitCommand преобразует DTO прямой подачи в команду сервиса
func DTOToSubmitCommand(dto SubmitReportRequest) service.SubmitReportCommand {
	photoURL := dto.PhotoURL
	return service.SubmitReportCommand{
		AccountID:   dto.AccountID,
		Description: dto.Description,
		Category:    models.Category(dto.Category),
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
		PhotoURL:    &photoURL,
	}
}

// DTOToChatCommand преобразует DTO чат-сообщения в команду сервиса
func DTOToChatCommand(dto ProcessMessageRequest) service.ChatMessageCommand {
	return service.ChatMessageCommand{
		ChannelKey: dto.FromPhone,
		Body:       dto.Body,
		PhotoURL:   dto.PhotoURL,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:            model.ID,
		ReporterID:    model.ReporterID,
		Description:   model.Description,
		Category:      string(model.Category),
		Latitude:      model.Latitude,
		Longitude:     model.Longitude,
		PhotoURL:      model.PhotoURL,
		Status:        string(model.Status),
		Source:        string(model.Source),
		VerifierNotes: model.VerifierNotes,
		CreatedAt:     model.CreatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}
