package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/shanki-dipak/portfolio-twin/internal/persona"
	"github.com/shanki-dipak/portfolio-twin/internal/services/ai"
	"github.com/shanki-dipak/portfolio-twin/internal/services/besteffort"
	"github.com/shanki-dipak/portfolio-twin/internal/services/cache"
	"github.com/shanki-dipak/portfolio-twin/internal/services/storage"
	"github.com/shanki-dipak/portfolio-twin/pkg/logger"
	"github.com/sirupsen/logrus"
)

// DefaultUserID identifies visitors that did not send an id
const DefaultUserID = "anonymous"

// Store is the subset of storage the chat flow reads and writes
type Store interface {
	FindTrigger(ctx context.Context, message string) (*models.TriggerResponse, error)
	GetRelationship(ctx context.Context, userID string) (*models.Relationship, error)
	SaveChatLog(ctx context.Context, entry models.ChatLogEntry) error
}

var _ Store = (*storage.Manager)(nil)

// Generator produces a model reply for a full prompt
type Generator interface {
	GenerateReply(ctx context.Context, prompt string) (ai.Reply, error)
}

// Recorder counts replies by source: meme, model or error
type Recorder interface {
	RecordChatReply(source string)
}

// Request is one incoming chat message
type Request struct {
	Message          string
	History          []models.ConversationTurn
	UserID           string
	RelationshipType string
	UserName         string
}

// Response is the reply returned to the chat UI
type Response struct {
	Reply       string `json:"reply"`
	IsMeme      bool   `json:"isMeme,omitempty"`
	LearnedName string `json:"learnedName,omitempty"`
	Model       string `json:"model,omitempty"`
	ReplyHTML   string `json:"replyHtml,omitempty"`
}

// Options tunes the chat flow
type Options struct {
	HistoryWindow int
	StoreTimeout  time.Duration
	// Render converts a reply to HTML; nil disables replyHtml.
	Render func(string) string
}

// Service answers chat messages in the persona's voice
type Service struct {
	builder   *persona.Builder
	generator Generator
	store     Store
	relCache  cache.Service
	recorder  Recorder
	opts      Options
	logger    *logrus.Logger
}

// NewService creates the chat service. store, relCache and recorder may be nil.
func NewService(builder *persona.Builder, generator Generator, store Store, relCache cache.Service, recorder Recorder, opts Options, logger *logrus.Logger) *Service {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 10
	}
	return &Service{
		builder:   builder,
		generator: generator,
		store:     store,
		relCache:  relCache,
		recorder:  recorder,
		opts:      opts,
		logger:    logger,
	}
}

// Reply runs the chat flow: canned trigger, relationship, generation, name
// capture and logging. Trigger replies skip the model but their log entry
// still carries the resolved tone. Only invalid input and generation
// failures are returned; store failures are logged and ignored.
func (s *Service) Reply(ctx context.Context, req Request) (Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Response{}, fmt.Errorf("%w: message is required", models.ErrInvalidInput)
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = DefaultUserID
	}

	log := logger.WithUser(s.logger, userID)
	log.WithField("preview", preview(message, 50)).Info("Incoming chat message")

	if trigger := s.findTrigger(ctx, log, message); trigger != nil {
		s.record("meme")
		resp := Response{Reply: trigger.Response, IsMeme: true}
		s.render(&resp)
		category := s.resolveRelationship(ctx, log, userID, req.RelationshipType)
		s.saveLog(ctx, log, models.ChatLogEntry{
			UserID:          userID,
			Message:         message,
			Reply:           trigger.Response,
			ToneUsed:        string(category),
			IsMemeTriggered: true,
		})
		return resp, nil
	}

	category := s.resolveRelationship(ctx, log, userID, req.RelationshipType)

	history := models.TrailingWindow(req.History, s.opts.HistoryWindow)
	prompt, err := s.builder.Compose(category, req.UserName, history, message)
	if err != nil {
		s.record("error")
		return Response{}, fmt.Errorf("%w: %w", models.ErrInternal, err)
	}

	reply, err := s.generator.GenerateReply(ctx, prompt)
	if err != nil {
		s.record("error")
		log.WithError(err).Error("Chat generation failed")
		return Response{}, err
	}
	s.record("model")

	text, learnedName := persona.ExtractName(reply.Text)
	if learnedName != "" {
		log.WithField("learned_name", learnedName).Info("Learned visitor name")
	}

	s.saveLog(ctx, log, models.ChatLogEntry{
		UserID:   userID,
		Message:  message,
		Reply:    text,
		ToneUsed: string(category),
	})

	resp := Response{
		Reply:       text,
		LearnedName: learnedName,
		Model:       reply.Model,
	}
	s.render(&resp)
	return resp, nil
}

// GenerationDetails returns the user-visible cause of a generation failure
func GenerationDetails(err error) string {
	var exhausted *ai.ExhaustedError
	if errors.As(err, &exhausted) && exhausted.Last != nil {
		return exhausted.Last.Error()
	}
	return err.Error()
}

func (s *Service) findTrigger(ctx context.Context, log *logrus.Entry, message string) *models.TriggerResponse {
	if s.store == nil {
		return nil
	}

	lookupCtx, cancel := s.storeContext(ctx)
	defer cancel()

	trigger, err := s.store.FindTrigger(lookupCtx, message)
	if err != nil {
		log.WithError(err).Warn("Trigger lookup failed")
		return nil
	}
	return trigger
}

func (s *Service) resolveRelationship(ctx context.Context, log *logrus.Entry, userID, explicit string) models.RelationshipCategory {
	if strings.TrimSpace(explicit) != "" {
		return models.ParseRelationship(explicit)
	}
	if s.relCache != nil {
		if cached, ok := s.relCache.Get(userID); ok {
			return models.ParseRelationship(cached)
		}
	}
	if s.store == nil {
		return models.RelationshipStranger
	}

	lookupCtx, cancel := s.storeContext(ctx)
	defer cancel()

	relationship, err := s.store.GetRelationship(lookupCtx, userID)
	if err != nil {
		log.WithError(err).Warn("Relationship lookup failed")
		return models.RelationshipStranger
	}

	category := models.RelationshipStranger
	if relationship != nil {
		category = models.ParseRelationship(string(relationship.Type))
	}
	if s.relCache != nil {
		s.relCache.Set(userID, string(category))
	}
	return category
}

func (s *Service) saveLog(ctx context.Context, log *logrus.Entry, entry models.ChatLogEntry) {
	if s.store == nil {
		return
	}
	_ = besteffort.Run(ctx, "save_chat_log", s.opts.StoreTimeout, func(ctx context.Context) error {
		return s.store.SaveChatLog(ctx, entry)
	}).Log(log)
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StoreTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.StoreTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) render(resp *Response) {
	if s.opts.Render != nil {
		resp.ReplyHTML = s.opts.Render(resp.Reply)
	}
}

func (s *Service) record(source string) {
	if s.recorder != nil {
		s.recorder.RecordChatReply(source)
	}
}

func preview(message string, max int) string {
	runes := []rune(message)
	if len(runes) <= max {
		return message
	}
	return string(runes[:max]) + "..."
}
