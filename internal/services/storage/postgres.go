package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// contactRecord maps to the contact_messages table.
type contactRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Service   string
	Message   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (contactRecord) TableName() string {
	return "contact_messages"
}

func (r *contactRecord) BeforeCreate(tx *gorm.DB) error {
	return r.toModel().Validate()
}

func (r contactRecord) toModel() models.ContactInquiry {
	return models.ContactInquiry{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Service:   r.Service,
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
	}
}

// chatLogRecord maps to the chat_logs table.
type chatLogRecord struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	UserID          string `gorm:"index"`
	Message         string `gorm:"type:text"`
	Reply           string `gorm:"type:text"`
	ToneUsed        string
	IsMemeTriggered bool      `gorm:"default:false"`
	Timestamp       time.Time `gorm:"index"`
}

func (chatLogRecord) TableName() string {
	return "chat_logs"
}

// memeRecord maps to the memes table.
type memeRecord struct {
	Keyword  string `gorm:"primaryKey"`
	Response string `gorm:"type:text;not null"`
}

func (memeRecord) TableName() string {
	return "memes"
}

// relationshipRecord maps to the relationships table.
type relationshipRecord struct {
	UserID          string `gorm:"primaryKey"`
	Type            string `gorm:"not null;default:stranger"`
	LastInteraction time.Time
}

func (relationshipRecord) TableName() string {
	return "relationships"
}

// PostgresStorage implements storage using gorm on PostgreSQL
type PostgresStorage struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewPostgresStorage(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*PostgresStorage, error) {
	db, err := gorm.Open(postgres.Open(cfg.Storage.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	storage := NewPostgresStorageWithDB(db, logger)
	if err := storage.Migrate(ctx); err != nil {
		storage.Close()
		return nil, err
	}
	return storage, nil
}

// NewPostgresStorageWithDB wraps an existing gorm handle
func NewPostgresStorageWithDB(db *gorm.DB, logger *logrus.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// Migrate creates or updates the tables
func (p *PostgresStorage) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(
		&contactRecord{},
		&chatLogRecord{},
		&memeRecord{},
		&relationshipRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (p *PostgresStorage) SaveContactInquiry(ctx context.Context, inquiry *models.ContactInquiry) error {
	record := contactRecord{
		ID:        inquiry.ID,
		Name:      inquiry.Name,
		Email:     inquiry.Email,
		Service:   inquiry.Service,
		Message:   inquiry.Message,
		CreatedAt: inquiry.CreatedAt,
	}
	if err := p.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert contact message: %w", err)
	}
	return nil
}

func (p *PostgresStorage) SaveChatLog(ctx context.Context, entry *models.ChatLogEntry) error {
	record := chatLogRecord{
		ID:              entry.ID,
		UserID:          entry.UserID,
		Message:         entry.Message,
		Reply:           entry.Reply,
		ToneUsed:        entry.ToneUsed,
		IsMemeTriggered: entry.IsMemeTriggered,
		Timestamp:       entry.Timestamp,
	}
	if err := p.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert chat log: %w", err)
	}
	return nil
}

func (p *PostgresStorage) PruneChatLogs(ctx context.Context, before time.Time) (int64, error) {
	result := p.db.WithContext(ctx).Where("timestamp < ?", before).Delete(&chatLogRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune chat logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (p *PostgresStorage) FindTriggers(ctx context.Context, tokens []string) ([]models.TriggerResponse, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var records []memeRecord
	if err := p.db.WithContext(ctx).Where("keyword IN ?", tokens).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query memes: %w", err)
	}

	found := make([]models.TriggerResponse, 0, len(records))
	for _, record := range records {
		found = append(found, models.TriggerResponse{Trigger: record.Keyword, Response: record.Response})
	}
	return found, nil
}

func (p *PostgresStorage) ReplaceTriggers(ctx context.Context, triggers []models.TriggerResponse) error {
	records := make([]memeRecord, 0, len(triggers))
	for _, trigger := range triggers {
		records = append(records, memeRecord{Keyword: trigger.Trigger, Response: trigger.Response})
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&memeRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear memes: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("failed to insert memes: %w", err)
		}
		return nil
	})
}

func (p *PostgresStorage) GetRelationship(ctx context.Context, userID string) (*models.Relationship, error) {
	var record relationshipRecord
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to query relationship: %w", err)
	}
	if record.UserID == "" {
		return nil, nil
	}
	return &models.Relationship{
		UserID:          record.UserID,
		Type:            models.ParseRelationship(record.Type),
		LastInteraction: record.LastInteraction,
	}, nil
}

func (p *PostgresStorage) SaveRelationship(ctx context.Context, relationship *models.Relationship) error {
	record := relationshipRecord{
		UserID:          relationship.UserID,
		Type:            string(relationship.Type),
		LastInteraction: relationship.LastInteraction,
	}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "last_interaction"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert relationship: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *PostgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
