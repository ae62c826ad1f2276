package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	matcher         language.Matcher
	tags            []language.Tag
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	defaultTag, err := language.Parse(cfg.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", cfg.DefaultLanguage, err)
	}

	bundle := i18n.NewBundle(defaultTag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	// Default language goes first so the matcher falls back to it
	languages := []string{cfg.DefaultLanguage}
	for _, lang := range cfg.Languages {
		if lang != cfg.DefaultLanguage {
			languages = append(languages, lang)
		}
	}

	// Load language files
	tags := make([]language.Tag, 0, len(languages))
	localizers := make(map[string]*i18n.Localizer, len(languages))
	for _, lang := range languages {
		if _, err := bundle.LoadMessageFileFS(localeFS, fmt.Sprintf("locales/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", lang, err)
		}
		tags = append(tags, tag)
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		matcher:         language.NewMatcher(tags),
		tags:            tags,
		localizers:      localizers,
	}, nil
}

// Match resolves an Accept-Language header to a configured language
func (l *Localizer) Match(acceptLanguage string) string {
	if acceptLanguage == "" {
		return l.defaultLanguage
	}
	preferred, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(preferred) == 0 {
		return l.defaultLanguage
	}
	_, index, confidence := l.matcher.Match(preferred...)
	if confidence == language.No {
		return l.defaultLanguage
	}
	base, _ := l.tags[index].Base()
	if _, ok := l.localizers[base.String()]; ok {
		return base.String()
	}
	return l.defaultLanguage
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Localize returns the message in the best language for an Accept-Language header
func (l *Localizer) Localize(acceptLanguage, messageID string, data map[string]interface{}) string {
	return l.Get(l.Match(acceptLanguage), messageID, data)
}

// Message IDs
const (
	MsgLiveness          = "liveness"
	MsgRouteNotFound     = "route_not_found"
	MsgMethodNotAllowed  = "method_not_allowed"
	MsgInvalidJSON       = "invalid_json"
	MsgMessageRequired   = "message_required"
	MsgGenerationFailed  = "generation_failed"
	MsgContactReceived   = "contact_received"
	MsgSeedDone          = "seed_done"
	MsgSeedFailed        = "seed_failed"
	MsgUnauthorized      = "unauthorized"
	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgInternalError     = "internal_error"
)
