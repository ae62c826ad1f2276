package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS contact_messages (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	service    TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_logs (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	message           TEXT NOT NULL,
	reply             TEXT NOT NULL,
	tone_used         TEXT NOT NULL,
	is_meme_triggered INTEGER NOT NULL DEFAULT 0,
	timestamp         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_logs_user ON chat_logs(user_id);
CREATE INDEX IF NOT EXISTS idx_chat_logs_timestamp ON chat_logs(timestamp);

CREATE TABLE IF NOT EXISTS memes (
	keyword  TEXT PRIMARY KEY,
	response TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS relationships (
	user_id          TEXT PRIMARY KEY,
	type             TEXT NOT NULL DEFAULT 'stranger',
	last_interaction TEXT NOT NULL
);
`

// Fixed-width UTC layout so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(sqliteTimeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SQLiteStorage implements storage using an embedded SQLite file
type SQLiteStorage struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewSQLiteStorage(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*SQLiteStorage, error) {
	path := strings.TrimPrefix(cfg.Storage.DatabaseURL, "sqlite://")
	if path == "" {
		path = "data/portfolio.db"
	}
	return OpenSQLite(ctx, path, logger)
}

// OpenSQLite opens (and creates if needed) the database at path
func OpenSQLite(ctx context.Context, path string, logger *logrus.Logger) (*SQLiteStorage, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, logger: logger}, nil
}

func (s *SQLiteStorage) SaveContactInquiry(ctx context.Context, inquiry *models.ContactInquiry) error {
	if err := inquiry.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_messages (id, name, email, service, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		inquiry.ID, inquiry.Name, inquiry.Email, inquiry.Service, inquiry.Message, formatTime(inquiry.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert contact message: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SaveChatLog(ctx context.Context, entry *models.ChatLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_logs (id, user_id, message, reply, tone_used, is_meme_triggered, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Message, entry.Reply, entry.ToneUsed, entry.IsMemeTriggered, formatTime(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to insert chat log: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) PruneChatLogs(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_logs WHERE timestamp < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("failed to prune chat logs: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLiteStorage) FindTriggers(ctx context.Context, tokens []string) ([]models.TriggerResponse, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tokens)), ",")
	args := make([]interface{}, len(tokens))
	for i, token := range tokens {
		args[i] = token
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, response FROM memes WHERE keyword IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memes: %w", err)
	}
	defer rows.Close()

	var found []models.TriggerResponse
	for rows.Next() {
		var trigger models.TriggerResponse
		if err := rows.Scan(&trigger.Trigger, &trigger.Response); err != nil {
			return nil, err
		}
		found = append(found, trigger)
	}
	return found, rows.Err()
}

func (s *SQLiteStorage) ReplaceTriggers(ctx context.Context, triggers []models.TriggerResponse) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memes`); err != nil {
		return fmt.Errorf("failed to clear memes: %w", err)
	}
	for _, trigger := range triggers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memes (keyword, response) VALUES (?, ?)`, trigger.Trigger, trigger.Response); err != nil {
			return fmt.Errorf("failed to insert meme %q: %w", trigger.Trigger, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStorage) GetRelationship(ctx context.Context, userID string) (*models.Relationship, error) {
	var relType, lastInteraction string
	err := s.db.QueryRowContext(ctx,
		`SELECT type, last_interaction FROM relationships WHERE user_id = ?`, userID).Scan(&relType, &lastInteraction)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query relationship: %w", err)
	}
	return &models.Relationship{
		UserID:          userID,
		Type:            models.ParseRelationship(relType),
		LastInteraction: parseTime(lastInteraction),
	}, nil
}

func (s *SQLiteStorage) SaveRelationship(ctx context.Context, relationship *models.Relationship) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships (user_id, type, last_interaction) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET type = excluded.type, last_interaction = excluded.last_interaction`,
		relationship.UserID, string(relationship.Type), formatTime(relationship.LastInteraction))
	if err != nil {
		return fmt.Errorf("failed to upsert relationship: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
