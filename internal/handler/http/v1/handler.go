package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mangrovewatch/mangrove_guardian/internal/classifier"
	"github.com/mangrovewatch/mangrove_guardian/internal/config"
	"github.com/mangrovewatch/mangrove_guardian/internal/models"
	"github.com/mangrovewatch/mangrove_guardian/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	rewardService   service.RewardService
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(incidentService service.IncidentService, rewardService service.RewardService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		incidentService: incidentService,
		rewardService:   rewardService,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// respondServiceError сопоставляет доменные ошибки с HTTP-кодами.
// Виды ошибок различимы для оператора: сбой классификатора, неразбираемый
// ответ и сбой разрешения личности отдаются с разными сообщениями.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, service.ErrInvalidCategory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "category is not allowed"})
	case errors.Is(err, service.ErrRoleNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": "role is not allowed to perform this action"})
	case errors.Is(err, service.ErrIncidentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "incident is not pending"})
	case errors.Is(err, service.ErrIdentityResolution):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity resolution failed"})
	case errors.Is(err, classifier.ErrServiceCall):
		c.JSON(http.StatusBadGateway, gin.H{"error": "classification service call failed"})
	case errors.Is(err, classifier.ErrParse):
		c.JSON(http.StatusBadGateway, gin.H{"error": "classification response could not be parsed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Submit a direct incident report
// @Description Create a pending incident from an authenticated app submission. Requires API key.
// @Tags Reports
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param report body SubmitReportRequest true "Direct report submission"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 422 {object} map[string]string "Category outside the allowed set"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reports [post]
func (h *Handler) submitReport(c *gin.Context) {
	var input SubmitReportRequest
	log := h.logger.WithField("method", "submitReport")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.incidentService.SubmitReport(c.Request.Context(), DTOToSubmitCommand(input))
	if err != nil {
		log.WithError(err).Error("Failed to submit report in service")
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// @Summary Process an inbound chat message
// @Description Resolve the reporter, classify the message text and create a pending incident. Requires API key.
// @Tags Reports
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param message body ProcessMessageRequest true "Inbound chat message"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 422 {object} map[string]string "Category outside the allowed set"
// @Failure 502 {object} map[string]string "Classification service failure"
// @Router /whatsapp/process-message [post]
func (h *Handler) processMessage(c *gin.Context) {
	var input ProcessMessageRequest
	log := h.logger.WithField("method", "processMessage")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.incidentService.ProcessChatMessage(c.Request.Context(), DTOToChatCommand(input))
	if err != nil {
		log.WithError(err).Error("Failed to process chat message in service")
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// @Summary Verify a pending incident
// @Description Transition a pending incident to verified and credit reward points. Verifier role only.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param transition body TransitionRequest false "Optional verifier notes"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Role not allowed"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Incident is not pending"
// @Router /incidents/{id}/verify [post]
func (h *Handler) verifyIncident(c *gin.Context) {
	h.transitionIncident(c, service.ActionVerify)
}

// @Summary Reject a pending incident
// @Description Transition a pending incident to rejected. Verifier role only.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param transition body TransitionRequest false "Optional verifier notes"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Role not allowed"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Incident is not pending"
// @Router /incidents/{id}/reject [post]
func (h *Handler) rejectIncident(c *gin.Context) {
	h.transitionIncident(c, service.ActionReject)
}

func (h *Handler) transitionIncident(c *gin.Context, action service.Action) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "transitionIncident").WithField("id", id).WithField("action", action)

	// Тело с заметками необязательно
	var input TransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			log.WithError(err).Warn("Failed to bind JSON")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	incident, err := h.incidentService.Transition(c.Request.Context(), id, action, input.Notes, roleFromContext(c))
	if err != nil {
		log.WithError(err).Warn("Incident transition failed")
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Get a list of incidents
// @Description List incidents filtered by status, category and creation date range. Verifier and government roles.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "Incident status" default(pending)
// @Param category query string false "Incident category"
// @Param from query string false "Start of created_at range (YYYY-MM-DD), inclusive"
// @Param to query string false "End of created_at range (YYYY-MM-DD), inclusive"
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid filter parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Role not allowed"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")

	filter := models.IncidentFilter{
		Status:   models.Status(c.DefaultQuery("status", string(models.StatusPending))),
		Category: models.Category(c.Query("category")),
	}

	from, ok := parseDateParam(c.Query("from"), false)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' date"})
		return
	}
	to, ok := parseDateParam(c.Query("to"), true)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' date"})
		return
	}
	filter.From = from
	filter.To = to

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), filter, roleFromContext(c))
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID. Verifier and government roles.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Role not allowed"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id, roleFromContext(c))
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Get reporter reward points
// @Description Get the accumulated reward point balance for a reporter identity. Requires API key.
// @Tags Reporter
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param reporter_id query string true "Reporter identity ID"
// @Success 200 {object} PointsResponse
// @Failure 400 {object} map[string]string "Missing or invalid reporter_id"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reporter/points [get]
func (h *Handler) getReporterPoints(c *gin.Context) {
	log := h.logger.WithField("method", "getReporterPoints")

	reporterID, err := uuid.Parse(c.Query("reporter_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reporter_id required"})
		return
	}

	points, err := h.rewardService.Balance(c.Request.Context(), reporterID)
	if err != nil {
		log.WithError(err).Error("Failed to get reward balance from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, PointsResponse{Points: points})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseDateParam разбирает параметр даты фильтра. Для endOfDay=true граница
// сдвигается на конец дня, чтобы диапазон был включительным по created_at.
func parseDateParam(value string, endOfDay bool) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.Parse("2006-01-02", value)
		if err != nil {
			return nil, false
		}
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return &t, true
}
