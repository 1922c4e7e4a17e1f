package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mangrovewatch/mangrove_guardian/internal/classifier"
	"github.com/mangrovewatch/mangrove_guardian/internal/config"
	"github.com/mangrovewatch/mangrove_guardian/internal/models"
	"github.com/mangrovewatch/mangrove_guardian/internal/webhook"
	"github.com/sirupsen/logrus"
)

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status models.Status, notes *string) (*models.Incident, error)
	List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// ReporterRepository определяет контракт разрешения личности репортера.
// Оба метода идемпотентны: повторный вызов с тем же ключом возвращает тот же id.
type ReporterRepository interface {
	ResolveByChannelKey(ctx context.Context, channelKey string) (uuid.UUID, error)
	ResolveByAccountID(ctx context.Context, accountID string) (uuid.UUID, error)
}

// RewardRepository определяет контракт для работы с балансом баллов
type RewardRepository interface {
	Credit(ctx context.Context, reporterID uuid.UUID, points int) error
	Balance(ctx context.Context, reporterID uuid.UUID) (int, error)
	GetBalanceFromCache(ctx context.Context, reporterID uuid.UUID) (int, bool, error)
	SetBalanceCache(ctx context.Context, reporterID uuid.UUID, points int) error
	InvalidateBalanceCache(ctx context.Context, reporterID uuid.UUID) error
}

// SubmitReportCommand - прямая подача отчета аутентифицированным
// пользователем приложения, категория и описание доверяются как введены
type SubmitReportCommand struct {
	AccountID   string
	Description string
	Category    models.Category
	Latitude    float64
	Longitude   float64
	PhotoURL    *string
}

// ChatMessageCommand - входящее сообщение из чат-канала (WhatsApp)
type ChatMessageCommand struct {
	ChannelKey string
	Body       string
	PhotoURL   *string
}

// IncidentService определяет контракт бизнес-логики жизненного цикла инцидентов
type IncidentService interface {
	SubmitReport(ctx context.Context, cmd SubmitReportCommand) (*models.Incident, error)
	ProcessChatMessage(ctx context.Context, cmd ChatMessageCommand) (*models.Incident, error)
	Transition(ctx context.Context, id uuid.UUID, action Action, notes *string, role models.Role) (*models.Incident, error)
	ListIncidents(ctx context.Context, filter models.IncidentFilter, role models.Role) ([]*models.Incident, error)
	GetIncident(ctx context.Context, id uuid.UUID, role models.Role) (*models.Incident, error)
}

type incidentService struct {
	incidents  IncidentRepository
	reporters  ReporterRepository
	rewards    RewardRepository
	classifier classifier.Classifier
	publisher  webhook.WebhookPublisher
	logger     *logrus.Logger
	cfg        *config.Config
}

func NewIncidentService(
	incidents IncidentRepository,
	reporters ReporterRepository,
	rewards RewardRepository,
	cls classifier.Classifier,
	publisher webhook.WebhookPublisher,
	logger *logrus.Logger,
	cfg *config.Config,
) IncidentService {
	return &incidentService{
		incidents:  incidents,
		reporters:  reporters,
		rewards:    rewards,
		classifier: cls,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// SubmitReport создает инцидент из прямой подачи приложения.
// Обязательные поля проверяются до любого обращения к хранилищу.
func (s *incidentService) SubmitReport(ctx context.Context, cmd SubmitReportCommand) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":    "incident",
		"method":     "SubmitReport",
		"account_id": cmd.AccountID,
	})
	log.Info("Attempting to submit a direct report")

	if cmd.AccountID == "" || cmd.Description == "" || cmd.PhotoURL == nil || *cmd.PhotoURL == "" {
		return nil, fmt.Errorf("%w: account_id, description and photo_url are required", ErrValidation)
	}
	if !cmd.Category.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, cmd.Category)
	}

	reporterID, err := s.reporters.ResolveByAccountID(ctx, cmd.AccountID)
	if err != nil {
		log.WithError(err).Error("Failed to resolve reporter identity by account")
		return nil, fmt.Errorf("%w: %v", ErrIdentityResolution, err)
	}

	incident := &models.Incident{
		ReporterID:  reporterID,
		Description: cmd.Description,
		Category:    cmd.Category,
		Latitude:    cmd.Latitude,
		Longitude:   cmd.Longitude,
		PhotoURL:    cmd.PhotoURL,
		Status:      models.StatusPending,
		Source:      models.SourceApp,
	}

	if err := s.incidents.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	log.WithField("incident_id", incident.ID).Info("Incident created from direct report")
	return incident, nil
}

// ProcessChatMessage обрабатывает входящее сообщение чат-канала:
// разрешение личности -> классификация -> создание инцидента.
// Любой сбой до вставки оставляет хранилище без частичного инцидента
// (созданная личность безвредна, ее создание идемпотентно).
func (s *incidentService) ProcessChatMessage(ctx context.Context, cmd ChatMessageCommand) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "ProcessChatMessage",
		"channel_key": cmd.ChannelKey,
	})
	log.Info("Processing inbound chat report")

	if cmd.ChannelKey == "" || cmd.Body == "" {
		return nil, fmt.Errorf("%w: channel key and message body are required", ErrValidation)
	}

	reporterID, err := s.reporters.ResolveByChannelKey(ctx, cmd.ChannelKey)
	if err != nil {
		log.WithError(err).Error("Failed to resolve reporter identity by channel key")
		return nil, fmt.Errorf("%w: %v", ErrIdentityResolution, err)
	}

	result, err := s.classifier.Classify(ctx, cmd.Body)
	if err != nil {
		log.WithError(err).Error("Failed to classify chat message")
		return nil, fmt.Errorf("service: classification failed: %w", err)
	}

	category := models.Category(result.Category)
	if !category.IsValid() {
		log.WithField("category", result.Category).Warn("Classifier returned category outside the allowed set")
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, result.Category)
	}

	// Чат-канал не передает геолокацию, сохраняем условные (0, 0)
	incident := &models.Incident{
		ReporterID:  reporterID,
		Description: result.Description,
		Category:    category,
		Latitude:    0,
		Longitude:   0,
		PhotoURL:    cmd.PhotoURL,
		Status:      models.StatusPending,
		Source:      models.SourceChat,
	}

	if err := s.incidents.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	log.WithField("incident_id", incident.ID).Info("Incident created from chat report")
	return incident, nil
}

// Transition переводит инцидент из pending в verified или rejected.
// Переход условным UPDATE по статусу: из конкурентных вызовов выигрывает
// ровно один, что заодно защищает леджер от двойного начисления.
func (s *incidentService) Transition(ctx context.Context, id uuid.UUID, action Action, notes *string, role models.Role) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Transition",
		"incident_id": id,
		"action":      action,
		"role":        role,
	})
	log.Info("Attempting incident transition")

	if !roleAllowed(action, role) {
		log.Warn("Role is not allowed to transition incidents")
		return nil, fmt.Errorf("%w: role %q cannot %s", ErrRoleNotAllowed, role, action)
	}

	target, ok := action.TargetStatus()
	if !ok {
		return nil, fmt.Errorf("%w: unknown transition action %q", ErrValidation, action)
	}

	incident, err := s.incidents.UpdateStatusIfPending(ctx, id, target, notes)
	if err != nil {
		log.WithError(err).Warn("Incident transition did not apply")
		return nil, fmt.Errorf("service: could not transition incident: %w", err)
	}

	if err := s.incidents.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	if target == models.StatusVerified {
		if err := s.rewards.Credit(ctx, incident.ReporterID, s.cfg.VerifyRewardPoints); err != nil {
			log.WithError(err).Error("Failed to credit reward points after verification")
			return nil, fmt.Errorf("service: could not credit reward: %w", err)
		}
		if err := s.rewards.InvalidateBalanceCache(ctx, incident.ReporterID); err != nil {
			log.WithError(err).Warn("Failed to invalidate balance cache")
		}

		event := webhook.IncidentEvent{
			Event:      webhook.EventIncidentVerified,
			IncidentID: incident.ID,
			ReporterID: incident.ReporterID,
			Category:   incident.Category,
			Points:     s.cfg.VerifyRewardPoints,
			Timestamp:  incident.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			// Доставка вебхука не входит в результат перехода
			log.WithError(err).Error("Failed to publish incident verified event")
		}
	}

	log.WithField("status", incident.Status).Info("Incident transition completed")
	return incident, nil
}

// ListIncidents возвращает инциденты по фильтру, доступно верификаторам
// и надзорной роли
func (s *incidentService) ListIncidents(ctx context.Context, filter models.IncidentFilter, role models.Role) ([]*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "ListIncidents",
		"status":  filter.Status,
		"role":    role,
	})

	if !roleAllowed(ActionList, role) {
		log.Warn("Role is not allowed to list incidents")
		return nil, fmt.Errorf("%w: role %q cannot list incidents", ErrRoleNotAllowed, role)
	}

	switch filter.Status {
	case models.StatusPending, models.StatusVerified, models.StatusRejected:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, filter.Category)
	}

	incidents, err := s.incidents.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// GetIncident получает инцидент по ID, сперва из кэша
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID, role models.Role) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
		"role":        role,
	})

	if !roleAllowed(ActionGet, role) {
		log.Warn("Role is not allowed to read incidents")
		return nil, fmt.Errorf("%w: role %q cannot read incidents", ErrRoleNotAllowed, role)
	}

	cached, err := s.incidents.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		log.Debug("Incident served from cache")
		return cached, nil
	}

	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.incidents.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}
