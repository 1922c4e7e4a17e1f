package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршруты для подачи отчетов (оба канала)
	api.POST("/reports", h.submitReport)
	api.POST("/whatsapp/process-message", h.processMessage)

	// Маршруты жизненного цикла инцидентов
	incidents := api.Group("/incidents")
	{
		incidents.GET("", h.listIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/verify", h.verifyIncident)
		incidents.POST("/:id/reject", h.rejectIncident)
	}

	// Маршрут баланса баллов репортера
	api.GET("/reporter/points", h.getReporterPoints)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
