package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/sirupsen/logrus"
	gomail "github.com/wneessen/go-mail"
)

// Notifier sends owner notifications
type Notifier interface {
	NotifyContact(ctx context.Context, inquiry models.ContactInquiry) error
}

// SMTPNotifier delivers notifications through an SMTP relay
type SMTPNotifier struct {
	cfg    config.MailConfig
	logger *logrus.Logger
}

// NewNotifier returns nil when mail credentials are not configured. The
// owner address falls back to defaultTo.
func NewNotifier(cfg config.MailConfig, defaultTo string, logger *logrus.Logger) *SMTPNotifier {
	if !cfg.Enabled() {
		logger.Info("Mail credentials not set, contact notifications disabled")
		return nil
	}
	if cfg.To == "" {
		cfg.To = defaultTo
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	logger.WithFields(logrus.Fields{
		"host": cfg.Host,
		"port": cfg.Port,
		"to":   cfg.To,
	}).Info("Mail notifier initialized")

	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// Subject builds the notification subject line
func Subject(inquiry models.ContactInquiry) string {
	return fmt.Sprintf("New Message from %s", strings.TrimSpace(inquiry.Name))
}

// Body builds the plain-text notification body
func Body(inquiry models.ContactInquiry) string {
	var b strings.Builder
	b.WriteString("You have a new inquiry!\n\n")
	fmt.Fprintf(&b, "Name: %s\n", inquiry.Name)
	fmt.Fprintf(&b, "Email: %s\n", inquiry.Email)
	fmt.Fprintf(&b, "Service: %s\n", inquiry.Service)
	fmt.Fprintf(&b, "Message: %s\n", inquiry.Message)
	return b.String()
}

// Message assembles the notification
func (n *SMTPNotifier) Message(inquiry models.ContactInquiry) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(n.cfg.FromName, n.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	if inquiry.Email != "" {
		if err := msg.ReplyTo(inquiry.Email); err != nil {
			n.logger.WithError(err).Debug("Skipping reply-to, sender address is not valid")
		}
	}
	msg.Subject(Subject(inquiry))
	msg.SetBodyString(gomail.TypeTextPlain, Body(inquiry))
	return msg, nil
}

func (n *SMTPNotifier) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(n.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(n.cfg.Username),
		gomail.WithPassword(n.cfg.Password),
	}
	if n.cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(n.cfg.Timeout))
	}
	if n.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	return gomail.NewClient(n.cfg.Host, opts...)
}

// NotifyContact emails the owner about a contact-form submission
func (n *SMTPNotifier) NotifyContact(ctx context.Context, inquiry models.ContactInquiry) error {
	msg, err := n.Message(inquiry)
	if err != nil {
		return err
	}

	client, err := n.client()
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: failed to send mail: %w", models.ErrDependencyUnavailable, err)
	}

	n.logger.WithFields(logrus.Fields{
		"to":   n.cfg.To,
		"from": inquiry.Email,
	}).Info("Contact notification sent")
	return nil
}
