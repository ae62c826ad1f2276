package storage

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/sirupsen/logrus"
)

// MemoryStorage implements storage using in-memory cache
type MemoryStorage struct {
	contacts      *cache.Cache
	chatLogs      *cache.Cache
	triggers      *cache.Cache
	relationships *cache.Cache
	triggerMu     sync.RWMutex
	logger        *logrus.Logger
}

func NewMemoryStorage(cfg *config.Config, logger *logrus.Logger) *MemoryStorage {
	logExpiration := cfg.Storage.LogRetention
	if logExpiration <= 0 {
		logExpiration = cache.NoExpiration
	}
	cleanup := cfg.Storage.Memory.CleanupInterval
	if cleanup <= 0 {
		cleanup = time.Hour
	}

	return &MemoryStorage{
		contacts:      cache.New(cache.NoExpiration, cache.NoExpiration),
		chatLogs:      cache.New(logExpiration, cleanup),
		triggers:      cache.New(cache.NoExpiration, cache.NoExpiration),
		relationships: cache.New(cache.NoExpiration, cache.NoExpiration),
		logger:        logger,
	}
}

func (m *MemoryStorage) SaveContactInquiry(ctx context.Context, inquiry *models.ContactInquiry) error {
	if err := inquiry.Validate(); err != nil {
		return err
	}
	m.contacts.Set(inquiry.ID, *inquiry, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) SaveChatLog(ctx context.Context, entry *models.ChatLogEntry) error {
	m.chatLogs.SetDefault(entry.ID, *entry)
	return nil
}

func (m *MemoryStorage) PruneChatLogs(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	for key, item := range m.chatLogs.Items() {
		entry, ok := item.Object.(models.ChatLogEntry)
		if ok && entry.Timestamp.Before(before) {
			m.chatLogs.Delete(key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStorage) FindTriggers(ctx context.Context, tokens []string) ([]models.TriggerResponse, error) {
	m.triggerMu.RLock()
	defer m.triggerMu.RUnlock()

	var found []models.TriggerResponse
	for _, token := range tokens {
		if val, ok := m.triggers.Get(token); ok {
			found = append(found, val.(models.TriggerResponse))
		}
	}
	return found, nil
}

func (m *MemoryStorage) ReplaceTriggers(ctx context.Context, triggers []models.TriggerResponse) error {
	m.triggerMu.Lock()
	defer m.triggerMu.Unlock()

	m.triggers.Flush()
	for _, trigger := range triggers {
		m.triggers.Set(trigger.Trigger, trigger, cache.NoExpiration)
	}
	return nil
}

func (m *MemoryStorage) GetRelationship(ctx context.Context, userID string) (*models.Relationship, error) {
	if val, found := m.relationships.Get(userID); found {
		relationship := val.(models.Relationship)
		return &relationship, nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveRelationship(ctx context.Context, relationship *models.Relationship) error {
	m.relationships.Set(relationship.UserID, *relationship, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
