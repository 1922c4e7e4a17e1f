package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mangrovewatch/mangrove_guardian/internal/classifier"
	"github.com/mangrovewatch/mangrove_guardian/internal/config"
	"github.com/mangrovewatch/mangrove_guardian/internal/models"
	"github.com/mangrovewatch/mangrove_guardian/internal/service"
	"github.com/mangrovewatch/mangrove_guardian/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testReporterKey = "reporter-key"
	testVerifierKey = "verifier-key"
	testGovKey      = "gov-key"
)

// newTestRouter — вспомогательная функция: собирает роутер с middleware
// аутентификации и моками сервисов.
func newTestRouter(t *testing.T) (*gin.Engine, *mocks.MockIncidentService, *mocks.MockRewardService) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	incidentService := mocks.NewMockIncidentService(ctrl)
	rewardService := mocks.NewMockRewardService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		ReporterAPIKeys:   []string{testReporterKey},
		VerifierAPIKeys:   []string{testVerifierKey},
		GovernmentAPIKeys: []string{testGovKey},
	}

	h := NewHandler(incidentService, rewardService, logger, cfg)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(RoleAuthMiddleware(cfg, logger))
	h.RegisterRoutes(api)

	return router, incidentService, rewardService
}

// makeRequest — вспомогательная функция для выполнения HTTP запроса к роутеру
func makeRequest(router *gin.Engine, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingAPIKey(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_InvalidAPIKey(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", "wrong-key", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_BearerToken(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().
		ListIncidents(gomock.Any(), gomock.Any(), models.RoleVerifier).
		Return([]*models.Incident{}, nil).
		Times(1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents", nil)
	req.Header.Set("Authorization", "Bearer "+testVerifierKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitReport_Created(t *testing.T) {
	// Подготовка
	router, incidentService, _ := newTestRouter(t)
	incidentID := uuid.New()
	reporterID := uuid.New()
	body := gin.H{
		"account_id":  "u1",
		"description": "cutting near shore",
		"category":    "Illegal Cutting",
		"latitude":    19.1,
		"longitude":   72.9,
		"photo_url":   "p.jpg",
	}

	// Ожидания
	incidentService.EXPECT().
		SubmitReport(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, cmd service.SubmitReportCommand) (*models.Incident, error) {
			assert.Equal(t, "u1", cmd.AccountID)
			assert.Equal(t, models.CategoryIllegalCutting, cmd.Category)
			assert.Equal(t, 19.1, cmd.Latitude)
			require.NotNil(t, cmd.PhotoURL)
			assert.Equal(t, "p.jpg", *cmd.PhotoURL)
			return &models.Incident{
				ID:          incidentID,
				ReporterID:  reporterID,
				Description: cmd.Description,
				Category:    cmd.Category,
				Latitude:    cmd.Latitude,
				Longitude:   cmd.Longitude,
				PhotoURL:    cmd.PhotoURL,
				Status:      models.StatusPending,
				Source:      models.SourceApp,
				CreatedAt:   time.Now(),
			}, nil
		}).Times(1)

	// Действие
	w := makeRequest(router, http.MethodPost, "/api/v1/reports", testReporterKey, body)

	// Проверки
	require.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "app", resp.Source)
}

func TestSubmitReport_InvalidBody(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).Times(0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testReporterKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitReport_ValidationError(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).Times(0)

	// Отсутствуют описание, координаты и фото
	w := makeRequest(router, http.MethodPost, "/api/v1/reports", testReporterKey, gin.H{
		"account_id": "u1",
		"category":   "Pollution",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitReport_InvalidCategory(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().
		SubmitReport(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: %q", service.ErrInvalidCategory, "Arson")).
		Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/reports", testReporterKey, gin.H{
		"account_id":  "u1",
		"description": "something burning",
		"category":    "Arson",
		"latitude":    19.1,
		"longitude":   72.9,
		"photo_url":   "p.jpg",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProcessMessage_Created(t *testing.T) {
	// Подготовка
	router, incidentService, _ := newTestRouter(t)
	incidentID := uuid.New()

	// Ожидания
	incidentService.EXPECT().
		ProcessChatMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, cmd service.ChatMessageCommand) (*models.Incident, error) {
			assert.Equal(t, "+91900000001", cmd.ChannelKey)
			assert.Equal(t, "waste dumping near the creek", cmd.Body)
			return &models.Incident{
				ID:          incidentID,
				ReporterID:  uuid.New(),
				Description: "Waste dumping near the creek",
				Category:    models.CategoryPollution,
				Status:      models.StatusPending,
				Source:      models.SourceChat,
				CreatedAt:   time.Now(),
			}, nil
		}).Times(1)

	// Действие
	w := makeRequest(router, http.MethodPost, "/api/v1/whatsapp/process-message", testReporterKey, gin.H{
		"from_phone": "+91900000001",
		"body":       "waste dumping near the creek",
	})

	// Проверки
	require.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, "chat", resp.Source)
	assert.Equal(t, float64(0), resp.Latitude)
	assert.Equal(t, float64(0), resp.Longitude)
}

func TestProcessMessage_ClassifierServiceError(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().
		ProcessChatMessage(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("service: classification failed: %w", classifier.ErrServiceCall)).
		Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/whatsapp/process-message", testReporterKey, gin.H{
		"from_phone": "+91900000001",
		"body":       "some message",
	})

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "classification service call failed")
}

func TestProcessMessage_ClassifierParseError(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().
		ProcessChatMessage(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("service: classification failed: %w", classifier.ErrParse)).
		Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/whatsapp/process-message", testReporterKey, gin.H{
		"from_phone": "+91900000001",
		"body":       "some message",
	})

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "could not be parsed")
}

func TestVerifyIncident_Success(t *testing.T) {
	// Подготовка
	router, incidentService, _ := newTestRouter(t)
	incidentID := uuid.New()
	notes := "confirmed on site"

	// Ожидания
	incidentService.EXPECT().
		Transition(gomock.Any(), incidentID, service.ActionVerify, gomock.Any(), models.RoleVerifier).
		DoAndReturn(func(ctx context.Context, id uuid.UUID, action service.Action, n *string, role models.Role) (*models.Incident, error) {
			require.NotNil(t, n)
			assert.Equal(t, notes, *n)
			return &models.Incident{
				ID:            id,
				ReporterID:    uuid.New(),
				Status:        models.StatusVerified,
				VerifierNotes: n,
				CreatedAt:     time.Now(),
			}, nil
		}).Times(1)

	// Действие
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incidentID.String()+"/verify", testVerifierKey, gin.H{
		"notes": notes,
	})

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "verified", resp.Status)
	require.NotNil(t, resp.VerifierNotes)
	assert.Equal(t, notes, *resp.VerifierNotes)
}

func TestVerifyIncident_WithoutBody(t *testing.T) {
	// Тело с заметками необязательно
	router, incidentService, _ := newTestRouter(t)
	incidentID := uuid.New()

	incidentService.EXPECT().
		Transition(gomock.Any(), incidentID, service.ActionVerify, nil, models.RoleVerifier).
		Return(&models.Incident{ID: incidentID, Status: models.StatusVerified}, nil).
		Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incidentID.String()+"/verify", testVerifierKey, nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRejectIncident_Success(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)
	incidentID := uuid.New()

	incidentService.EXPECT().
		Transition(gomock.Any(), incidentID, service.ActionReject, nil, models.RoleVerifier).
		Return(&models.Incident{ID: incidentID, Status: models.StatusRejected}, nil).
		Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incidentID.String()+"/reject", testVerifierKey, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rejected", resp.Status)
}

func TestVerifyIncident_InvalidID(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().Transition(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/not-a-uuid/verify", testVerifierKey, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyIncident_NotPending(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)
	incidentID := uuid.New()

	incidentService.EXPECT().
		Transition(gomock.Any(), incidentID, service.ActionVerify, nil, models.RoleVerifier).
		Return(nil, fmt.Errorf("service: could not transition incident: %w", service.ErrInvalidTransition)).
		Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incidentID.String()+"/verify", testVerifierKey, nil)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "not pending")
}

func TestVerifyIncident_NotFound(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)
	incidentID := uuid.New()

	incidentService.EXPECT().
		Transition(gomock.Any(), incidentID, service.ActionVerify, nil, models.RoleVerifier).
		Return(nil, fmt.Errorf("service: could not transition incident: %w", service.ErrIncidentNotFound)).
		Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incidentID.String()+"/verify", testVerifierKey, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyIncident_ReporterForbidden(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)
	incidentID := uuid.New()

	incidentService.EXPECT().
		Transition(gomock.Any(), incidentID, service.ActionVerify, nil, models.RoleReporter).
		Return(nil, fmt.Errorf("%w: role %q cannot verify", service.ErrRoleNotAllowed, models.RoleReporter)).
		Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incidentID.String()+"/verify", testReporterKey, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListIncidents_DefaultStatus(t *testing.T) {
	// Без параметра status листинг отдает очередь pending
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().
		ListIncidents(gomock.Any(), gomock.Any(), models.RoleVerifier).
		DoAndReturn(func(ctx context.Context, filter models.IncidentFilter, role models.Role) ([]*models.Incident, error) {
			assert.Equal(t, models.StatusPending, filter.Status)
			assert.Empty(t, filter.Category)
			assert.Nil(t, filter.From)
			assert.Nil(t, filter.To)
			return []*models.Incident{{ID: uuid.New(), Status: models.StatusPending}}, nil
		}).Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", testVerifierKey, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestListIncidents_WithFilters(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().
		ListIncidents(gomock.Any(), gomock.Any(), models.RoleGovernment).
		DoAndReturn(func(ctx context.Context, filter models.IncidentFilter, role models.Role) ([]*models.Incident, error) {
			assert.Equal(t, models.StatusVerified, filter.Status)
			assert.Equal(t, models.CategoryPollution, filter.Category)
			require.NotNil(t, filter.From)
			require.NotNil(t, filter.To)
			assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *filter.From)
			// Верхняя граница сдвинута на конец дня, диапазон включительный
			assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC).Add(24*time.Hour-time.Nanosecond), *filter.To)
			return []*models.Incident{}, nil
		}).Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents?status=verified&category=Pollution&from=2026-01-01&to=2026-01-31", testGovKey, nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListIncidents_InvalidDate(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().ListIncidents(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents?from=yesterday", testVerifierKey, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListIncidents_ReporterForbidden(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().
		ListIncidents(gomock.Any(), gomock.Any(), models.RoleReporter).
		Return(nil, fmt.Errorf("%w: role %q cannot list incidents", service.ErrRoleNotAllowed, models.RoleReporter)).
		Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", testReporterKey, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetIncident_OK(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)
	incidentID := uuid.New()

	incidentService.EXPECT().
		GetIncident(gomock.Any(), incidentID, models.RoleVerifier).
		Return(&models.Incident{ID: incidentID, Status: models.StatusPending}, nil).
		Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/"+incidentID.String(), testVerifierKey, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incidentID, resp.ID)
}

func TestGetIncident_InvalidID(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)

	incidentService.EXPECT().GetIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/not-a-uuid", testVerifierKey, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIncident_NotFoundResponse(t *testing.T) {
	router, incidentService, _ := newTestRouter(t)
	incidentID := uuid.New()

	incidentService.EXPECT().
		GetIncident(gomock.Any(), incidentID, models.RoleVerifier).
		Return(nil, fmt.Errorf("service: could not get incident: %w", service.ErrIncidentNotFound)).
		Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/"+incidentID.String(), testVerifierKey, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetReporterPoints_OK(t *testing.T) {
	router, _, rewardService := newTestRouter(t)
	reporterID := uuid.New()

	rewardService.EXPECT().Balance(gomock.Any(), reporterID).Return(30, nil).Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/reporter/points?reporter_id="+reporterID.String(), testReporterKey, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp PointsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 30, resp.Points)
}

func TestGetReporterPoints_ZeroBalance(t *testing.T) {
	router, _, rewardService := newTestRouter(t)
	reporterID := uuid.New()

	rewardService.EXPECT().Balance(gomock.Any(), reporterID).Return(0, nil).Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/reporter/points?reporter_id="+reporterID.String(), testReporterKey, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"points": 0}`, w.Body.String())
}

func TestGetReporterPoints_MissingID(t *testing.T) {
	router, _, rewardService := newTestRouter(t)

	rewardService.EXPECT().Balance(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, http.MethodGet, "/api/v1/reporter/points", testReporterKey, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/system/health", testReporterKey, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}
