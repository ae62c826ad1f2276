package contact

import (
	"context"
	"strings"
	"time"

	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/shanki-dipak/portfolio-twin/internal/services/besteffort"
	"github.com/shanki-dipak/portfolio-twin/internal/services/mail"
	"github.com/sirupsen/logrus"
)

// Store persists inquiries
type Store interface {
	SaveContactInquiry(ctx context.Context, inquiry models.ContactInquiry) error
}

// Result tells which side effects succeeded. It is informational only;
// callers acknowledge the submission regardless.
type Result struct {
	Persisted bool
	Notified  bool
}

// Service handles contact-form submissions
type Service struct {
	store        Store
	notifier     mail.Notifier
	storeTimeout time.Duration
	mailTimeout  time.Duration
	logger       *logrus.Logger
}

// NewService creates the contact service. store and notifier may be nil.
func NewService(store Store, notifier mail.Notifier, storeTimeout, mailTimeout time.Duration, logger *logrus.Logger) *Service {
	return &Service{
		store:        store,
		notifier:     notifier,
		storeTimeout: storeTimeout,
		mailTimeout:  mailTimeout,
		logger:       logger,
	}
}

// Submit persists the inquiry and notifies the owner, both best-effort
func (s *Service) Submit(ctx context.Context, inquiry models.ContactInquiry) Result {
	inquiry.Name = strings.TrimSpace(inquiry.Name)
	inquiry.Email = strings.TrimSpace(inquiry.Email)
	inquiry.Service = strings.TrimSpace(inquiry.Service)

	log := s.logger.WithFields(logrus.Fields{
		"name":  inquiry.Name,
		"email": inquiry.Email,
	})
	log.Info("New contact request")

	var result Result

	if s.store != nil {
		result.Persisted = besteffort.Run(ctx, "save_contact", s.storeTimeout, func(ctx context.Context) error {
			return s.store.SaveContactInquiry(ctx, inquiry)
		}).Log(log).OK()
		if result.Persisted {
			log.Info("Inquiry saved")
		}
	}

	if s.notifier != nil {
		result.Notified = besteffort.Run(ctx, "notify_contact", s.mailTimeout, func(ctx context.Context) error {
			return s.notifier.NotifyContact(ctx, inquiry)
		}).Log(log).OK()
	}

	return result
}
