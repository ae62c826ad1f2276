package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	redisContactsKey     = "contact_messages"
	redisChatLogsKey     = "chat_logs"
	redisTriggersKey     = "triggers"
	redisRelationshipKey = "relationship:%s"
)

// RedisStorage implements storage using Redis
type RedisStorage struct {
	client  *redis.Client
	maxLogs int64
	logger  *logrus.Logger
}

func NewRedisStorage(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*RedisStorage, error) {
	opts := &redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	}
	if url := cfg.Storage.DatabaseURL; strings.HasPrefix(strings.ToLower(url), "redis://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStorageWithClient(client, cfg.Storage.Redis.MaxLogs, logger), nil
}

// NewRedisStorageWithClient wraps an existing client
func NewRedisStorageWithClient(client *redis.Client, maxLogs int64, logger *logrus.Logger) *RedisStorage {
	return &RedisStorage{
		client:  client,
		maxLogs: maxLogs,
		logger:  logger,
	}
}

func (r *RedisStorage) SaveContactInquiry(ctx context.Context, inquiry *models.ContactInquiry) error {
	if err := inquiry.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(inquiry)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, redisContactsKey, data).Err()
}

func (r *RedisStorage) SaveChatLog(ctx context.Context, entry *models.ChatLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, redisChatLogsKey, data)
		if r.maxLogs > 0 {
			pipe.LTrim(ctx, redisChatLogsKey, -r.maxLogs, -1)
		}
		return nil
	})
	return err
}

// PruneChatLogs drops entries from the head of the log list. The list is
// appended in time order, so pruning stops at the first entry to keep.
// Each head is checked and popped under WATCH so a concurrent trim can't
// make the pop take a newer entry.
func (r *RedisStorage) PruneChatLogs(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	for {
		done := false
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			head, err := tx.LIndex(ctx, redisChatLogsKey, 0).Result()
			if err == redis.Nil {
				done = true
				return nil
			}
			if err != nil {
				return err
			}

			var entry models.ChatLogEntry
			if err := json.Unmarshal([]byte(head), &entry); err == nil && !entry.Timestamp.Before(before) {
				done = true
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.LPop(ctx, redisChatLogsKey)
				return nil
			})
			return err
		}, redisChatLogsKey)

		switch {
		case err == redis.TxFailedErr:
			continue
		case err != nil:
			return removed, err
		case done:
			return removed, nil
		}
		removed++
	}
}

func (r *RedisStorage) FindTriggers(ctx context.Context, tokens []string) ([]models.TriggerResponse, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	values, err := r.client.HMGet(ctx, redisTriggersKey, tokens...).Result()
	if err != nil {
		return nil, err
	}

	var found []models.TriggerResponse
	for i, value := range values {
		response, ok := value.(string)
		if !ok {
			continue
		}
		found = append(found, models.TriggerResponse{Trigger: tokens[i], Response: response})
	}
	return found, nil
}

func (r *RedisStorage) ReplaceTriggers(ctx context.Context, triggers []models.TriggerResponse) error {
	fields := make(map[string]interface{}, len(triggers))
	for _, trigger := range triggers {
		fields[trigger.Trigger] = trigger.Response
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisTriggersKey)
		if len(fields) > 0 {
			pipe.HSet(ctx, redisTriggersKey, fields)
		}
		return nil
	})
	return err
}

func (r *RedisStorage) GetRelationship(ctx context.Context, userID string) (*models.Relationship, error) {
	data, err := r.client.Get(ctx, fmt.Sprintf(redisRelationshipKey, userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var relationship models.Relationship
	if err := json.Unmarshal([]byte(data), &relationship); err != nil {
		return nil, err
	}
	return &relationship, nil
}

func (r *RedisStorage) SaveRelationship(ctx context.Context, relationship *models.Relationship) error {
	data, err := json.Marshal(relationship)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, fmt.Sprintf(redisRelationshipKey, relationship.UserID), data, 0).Err()
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
