package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/sirupsen/logrus"
)

// Storage interface defines storage operations
type Storage interface {
	// Contact form
	SaveContactInquiry(ctx context.Context, inquiry *models.ContactInquiry) error

	// Chat logs
	SaveChatLog(ctx context.Context, entry *models.ChatLogEntry) error
	PruneChatLogs(ctx context.Context, before time.Time) (int64, error)

	// Canned replies. FindTriggers returns the stored triggers matching any
	// of the lowercase tokens, in no particular order.
	FindTriggers(ctx context.Context, tokens []string) ([]models.TriggerResponse, error)
	ReplaceTriggers(ctx context.Context, triggers []models.TriggerResponse) error

	// Relationships. GetRelationship returns nil when none is stored.
	GetRelationship(ctx context.Context, userID string) (*models.Relationship, error)
	SaveRelationship(ctx context.Context, relationship *models.Relationship) error

	Ping(ctx context.Context) error
	Close() error
}

// Recorder receives one observation per storage operation
type Recorder interface {
	RecordStorageOperation(operation, backend, status string, duration time.Duration)
}

// Manager manages different storage backends
type Manager struct {
	storage  Storage
	backend  string
	recorder Recorder
	logger   *logrus.Logger
}

// NewManager opens the configured backend. A backend that cannot be reached
// at start is logged and replaced by the in-memory backend.
func NewManager(ctx context.Context, cfg *config.Config, recorder Recorder, logger *logrus.Logger) (*Manager, error) {
	backend := cfg.Storage.Type

	storage, err := open(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, errUnsupportedBackend) {
			return nil, err
		}
		logger.WithError(err).WithField("storage", backend).Error("Storage connection failed (non-fatal), falling back to memory")
		storage = NewMemoryStorage(cfg, logger)
		backend = config.StorageMemory
	}

	logger.WithField("storage", backend).Info("Storage initialized")

	return NewManagerWithStorage(storage, backend, recorder, logger), nil
}

// NewManagerWithStorage wraps an already opened backend
func NewManagerWithStorage(storage Storage, backend string, recorder Recorder, logger *logrus.Logger) *Manager {
	return &Manager{
		storage:  storage,
		backend:  backend,
		recorder: recorder,
		logger:   logger,
	}
}

var errUnsupportedBackend = errors.New("unsupported storage type")

func open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (Storage, error) {
	switch cfg.Storage.Type {
	case config.StoragePostgres:
		return NewPostgresStorage(ctx, cfg, logger)
	case config.StorageSQLite:
		return NewSQLiteStorage(ctx, cfg, logger)
	case config.StorageRedis:
		return NewRedisStorage(ctx, cfg, logger)
	case config.StorageMemory:
		return NewMemoryStorage(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedBackend, cfg.Storage.Type)
	}
}

// Backend returns the name of the active backend
func (m *Manager) Backend() string {
	return m.backend
}

// observe records the operation and classifies its error
func (m *Manager) observe(operation string, start time.Time, err error) error {
	status := "success"
	if err != nil {
		status = "error"
	}
	if m.recorder != nil {
		m.recorder.RecordStorageOperation(operation, m.backend, status, time.Since(start))
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrInvalidInput):
		return fmt.Errorf("%s: %w", operation, err)
	default:
		return fmt.Errorf("%s: %w: %w", operation, models.ErrDependencyUnavailable, err)
	}
}

func (m *Manager) SaveContactInquiry(ctx context.Context, inquiry models.ContactInquiry) error {
	start := time.Now()
	if inquiry.ID == "" {
		inquiry.ID = uuid.NewString()
	}
	if inquiry.CreatedAt.IsZero() {
		inquiry.CreatedAt = time.Now().UTC()
	}
	return m.observe("save_contact", start, m.storage.SaveContactInquiry(ctx, &inquiry))
}

func (m *Manager) SaveChatLog(ctx context.Context, entry models.ChatLogEntry) error {
	start := time.Now()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return m.observe("save_chat_log", start, m.storage.SaveChatLog(ctx, &entry))
}

// FindTrigger returns the trigger of the earliest message token that has
// one, or nil when nothing matches.
func (m *Manager) FindTrigger(ctx context.Context, message string) (*models.TriggerResponse, error) {
	tokens := models.TriggerTokens(message)
	if len(tokens) == 0 {
		return nil, nil
	}

	start := time.Now()
	triggers, err := m.storage.FindTriggers(ctx, tokens)
	if err := m.observe("find_trigger", start, err); err != nil {
		return nil, err
	}

	found := make(map[string]models.TriggerResponse, len(triggers))
	for _, trigger := range triggers {
		found[trigger.Trigger] = trigger
	}
	return models.FirstTrigger(tokens, found), nil
}

// ReplaceTriggers swaps the whole trigger set
func (m *Manager) ReplaceTriggers(ctx context.Context, triggers []models.TriggerResponse) error {
	start := time.Now()
	normalized := make([]models.TriggerResponse, 0, len(triggers))
	for _, trigger := range triggers {
		trigger = trigger.Normalize()
		if trigger.Trigger == "" || strings.TrimSpace(trigger.Response) == "" {
			return m.observe("replace_triggers", start,
				fmt.Errorf("%w: trigger and response are required", models.ErrInvalidInput))
		}
		normalized = append(normalized, trigger)
	}
	return m.observe("replace_triggers", start, m.storage.ReplaceTriggers(ctx, normalized))
}

func (m *Manager) GetRelationship(ctx context.Context, userID string) (*models.Relationship, error) {
	start := time.Now()
	relationship, err := m.storage.GetRelationship(ctx, userID)
	if err := m.observe("get_relationship", start, err); err != nil {
		return nil, err
	}
	return relationship, nil
}

func (m *Manager) SaveRelationship(ctx context.Context, relationship models.Relationship) error {
	start := time.Now()
	if strings.TrimSpace(relationship.UserID) == "" {
		return m.observe("save_relationship", start, fmt.Errorf("%w: userId is required", models.ErrInvalidInput))
	}
	if !relationship.Type.Valid() {
		return m.observe("save_relationship", start,
			fmt.Errorf("%w: unknown relationship type %q", models.ErrInvalidInput, relationship.Type))
	}
	if relationship.LastInteraction.IsZero() {
		relationship.LastInteraction = time.Now().UTC()
	}
	return m.observe("save_relationship", start, m.storage.SaveRelationship(ctx, &relationship))
}

func (m *Manager) Ping(ctx context.Context) error {
	start := time.Now()
	return m.observe("ping", start, m.storage.Ping(ctx))
}

func (m *Manager) Close() error {
	return m.storage.Close()
}

// StartCleanup prunes chat logs older than retention every interval until
// ctx is done.
func (m *Manager) StartCleanup(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 || retention <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pruneOnce(ctx, retention)
		}
	}
}

func (m *Manager) pruneOnce(ctx context.Context, retention time.Duration) {
	pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	removed, err := m.storage.PruneChatLogs(pruneCtx, time.Now().Add(-retention))
	if err := m.observe("prune_chat_logs", start, err); err != nil {
		m.logger.WithError(err).Error("Failed to prune chat logs")
		return
	}
	if removed > 0 {
		m.logger.WithField("removed", removed).Info("Pruned old chat logs")
	}
}
