package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/shanki-dipak/portfolio-twin/internal/i18n"
	"github.com/shanki-dipak/portfolio-twin/internal/middleware"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/shanki-dipak/portfolio-twin/internal/persona"
	"github.com/shanki-dipak/portfolio-twin/internal/services/ai"
	"github.com/shanki-dipak/portfolio-twin/internal/services/cache"
	"github.com/shanki-dipak/portfolio-twin/internal/services/chat"
	"github.com/shanki-dipak/portfolio-twin/internal/services/contact"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	resp chat.Response
	err  error
	got  []chat.Request
}

func (c *stubChat) Reply(_ context.Context, req chat.Request) (chat.Response, error) {
	c.got = append(c.got, req)
	if strings.TrimSpace(req.Message) == "" {
		return chat.Response{}, fmt.Errorf("%w: message is required", models.ErrInvalidInput)
	}
	return c.resp, c.err
}

type stubContact struct {
	got    []models.ContactInquiry
	result contact.Result
}

func (c *stubContact) Submit(_ context.Context, inquiry models.ContactInquiry) contact.Result {
	c.got = append(c.got, inquiry)
	return c.result
}

type stubSeeder struct {
	triggers      []models.TriggerResponse
	relationships []models.Relationship
	err           error
}

func (s *stubSeeder) ReplaceTriggers(_ context.Context, triggers []models.TriggerResponse) error {
	if s.err != nil {
		return s.err
	}
	s.triggers = triggers
	return nil
}

func (s *stubSeeder) SaveRelationship(_ context.Context, relationship models.Relationship) error {
	s.relationships = append(s.relationships, relationship)
	return nil
}

type fixture struct {
	chat     *stubChat
	contact  *stubContact
	seeder   *stubSeeder
	relCache *cache.Cache
	handler  http.Handler
}

func newFixture(t *testing.T, adminToken string, limiter middleware.RateLimiter) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	localizer, err := i18n.NewLocalizer(&config.I18nConfig{DefaultLanguage: "en", Languages: []string{"en", "ne"}})
	require.NoError(t, err)

	f := &fixture{
		chat:     &stubChat{resp: chat.Response{Reply: "Hajur, namaste!", Model: "gemini-2.5-flash"}},
		contact:  &stubContact{result: contact.Result{Persisted: true}},
		seeder:   &stubSeeder{},
		relCache: cache.NewCache("relationships", &config.CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 10}, nil, logger),
	}

	server := NewServer(Deps{
		Chat:        f.chat,
		Contact:     f.contact,
		Seeder:      f.seeder,
		RelCache:    f.relCache,
		Triggers:    persona.DefaultTriggers(),
		Localizer:   localizer,
		Metrics:     middleware.NewMetrics(),
		Limiter:     limiter,
		PersonaName: "Dipak",
		Backend:     "memory",
		AdminToken:  adminToken,
		MetricsPath: "/metrics",
		Logger:      logger,
	})
	f.handler = middleware.Recover(logger, server.InternalError())(server.Router())
	return f
}

func (f *fixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestChatReturnsReply(t *testing.T) {
	f := newFixture(t, "", nil)

	rec := f.do(http.MethodPost, "/api/chat", `{
		"message": "hello",
		"userId": "u1",
		"relationshipType": "friend",
		"userName": "Asha",
		"history": [{"text": "hi", "isBot": false}, {"text": "Namaste!", "isBot": true}]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Hajur, namaste!", body["reply"])
	assert.Equal(t, "gemini-2.5-flash", body["model"])
	assert.NotContains(t, body, "isMeme")

	require.Len(t, f.chat.got, 1)
	got := f.chat.got[0]
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "friend", got.RelationshipType)
	assert.Equal(t, "Asha", got.UserName)
	assert.Equal(t, []models.ConversationTurn{
		{Role: models.RoleUser, Text: "hi"},
		{Role: models.RoleAssistant, Text: "Namaste!"},
	}, got.History)
}

func TestChatMissingMessage(t *testing.T) {
	f := newFixture(t, "", nil)

	rec := f.do(http.MethodPost, "/api/chat", `{"message": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message is required", decode(t, rec)["error"])

	rec = f.do(http.MethodPost, "/api/chat", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message is required", decode(t, rec)["error"])
}

func TestChatInvalidJSON(t *testing.T) {
	f := newFixture(t, "", nil)

	rec := f.do(http.MethodPost, "/api/chat", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body must be valid JSON", decode(t, rec)["error"])
}

func TestChatGenerationFailure(t *testing.T) {
	f := newFixture(t, "", nil)
	f.chat.err = &ai.ExhaustedError{Attempts: 2, Last: errors.New("gemini-2.5-flash: quota exceeded")}

	rec := f.do(http.MethodPost, "/api/chat", `{"message": "hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Failed to generate response.", body["error"])
	assert.Equal(t, "gemini-2.5-flash: quota exceeded", body["details"])
}

func TestChatNotConfigured(t *testing.T) {
	f := newFixture(t, "", nil)
	f.chat.err = ai.ErrNotConfigured

	rec := f.do(http.MethodPost, "/api/chat", `{"message": "hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ai.ErrNotConfigured.Error(), decode(t, rec)["details"])
}

func TestChatRateLimited(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	limiter := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}, logger)
	defer limiter.Stop()
	f := newFixture(t, "", limiter)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/chat", `{"message": "hello"}`).Code)

	rec := f.do(http.MethodPost, "/api/chat", `{"message": "hello"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])

	// Contact keeps its own budget
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/contact", `{"name":"A","email":"a@b.c","message":"hi"}`).Code)
}

func TestContactAcknowledges(t *testing.T) {
	f := newFixture(t, "", nil)

	rec := f.do(http.MethodPost, "/api/contact", `{"name":"Asha","email":"asha@example.com","service":"AI","message":"Let's build"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Message received!", body["message"])

	require.Len(t, f.contact.got, 1)
	assert.Equal(t, "Asha", f.contact.got[0].Name)
	assert.Equal(t, "AI", f.contact.got[0].Service)
}

func TestContactAcknowledgesWhenNothingSucceeds(t *testing.T) {
	f := newFixture(t, "", nil)
	f.contact.result = contact.Result{}

	rec := f.do(http.MethodPost, "/api/contact", `{"name":"","email":"","message":""}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])
}

func TestContactInvalidJSON(t *testing.T) {
	f := newFixture(t, "", nil)

	rec := f.do(http.MethodPost, "/api/contact", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.contact.got)
}

func TestContactLocalized(t *testing.T) {
	f := newFixture(t, "", nil)

	rec := f.do(http.MethodPost, "/api/contact", `{"name":"A","email":"a@b.c","message":"hi"}`, "Accept-Language", "ne-NP")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "Message received!", decode(t, rec)["message"])
}

func TestSeedDisabledWithoutToken(t *testing.T) {
	f := newFixture(t, "", nil)

	rec := f.do(http.MethodPost, "/api/seed", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", decode(t, rec)["error"])
}

func TestSeedRequiresToken(t *testing.T) {
	f := newFixture(t, "s3cret", nil)

	rec := f.do(http.MethodPost, "/api/seed", "", "X-Admin-Token", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, f.seeder.triggers)
}

func TestSeedReplacesTriggers(t *testing.T) {
	f := newFixture(t, "s3cret", nil)

	rec := f.do(http.MethodPost, "/api/seed", "", "X-Admin-Token", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Database seeded with Dipak's personality!", body["message"])
	assert.Equal(t, persona.DefaultTriggers(), f.seeder.triggers)
}

func TestSeedRelationshipsClearCache(t *testing.T) {
	f := newFixture(t, "s3cret", nil)
	f.relCache.Set("u1", string(models.RelationshipStranger))

	rec := f.do(http.MethodPost, "/api/seed", `{"relationships":[{"userId":"u1","type":"friend"}]}`, "X-Admin-Token", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.seeder.relationships, 1)
	assert.Equal(t, models.RelationshipFriend, f.seeder.relationships[0].Type)
	_, ok := f.relCache.Get("u1")
	assert.False(t, ok)
}

func TestSeedRejectsUnknownRelationship(t *testing.T) {
	f := newFixture(t, "s3cret", nil)

	rec := f.do(http.MethodPost, "/api/seed", `{"relationships":[{"userId":"u1","type":"boss"}]}`, "X-Admin-Token", "s3cret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, f.seeder.triggers)
}

func TestSeedStoreFailure(t *testing.T) {
	f := newFixture(t, "s3cret", nil)
	f.seeder.err = models.ErrDependencyUnavailable

	rec := f.do(http.MethodPost, "/api/seed", "", "X-Admin-Token", "s3cret")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLiveness(t *testing.T) {
	f := newFixture(t, "", nil)

	rec := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dipak Portfolio Backend is running! 🚀", rec.Body.String())
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "", nil)

	rec := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","storage":"memory"}`, rec.Body.String())
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	f := newFixture(t, "", nil)

	for _, path := range []string{"/nope", "/api/nope"} {
		rec := f.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
		assert.Equal(t, "Route not found", decode(t, rec)["error"], path)
	}
}

func TestWrongMethod(t *testing.T) {
	f := newFixture(t, "", nil)

	rec := f.do(http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", decode(t, rec)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, "", nil)
	f.do(http.MethodGet, "/health", "")

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portfolio_twin_http_requests_total")
}

type panickingChat struct{}

func (panickingChat) Reply(context.Context, chat.Request) (chat.Response, error) {
	panic("boom")
}

func TestPanicBecomesJSON500(t *testing.T) {
	f := newFixture(t, "", nil)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	localizer, err := i18n.NewLocalizer(&config.I18nConfig{DefaultLanguage: "en", Languages: []string{"en"}})
	require.NoError(t, err)

	server := NewServer(Deps{Chat: panickingChat{}, Contact: f.contact, Localizer: localizer, Logger: logger})
	handler := middleware.Recover(logger, server.InternalError())(server.Router())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong.", decode(t, rec)["error"])
}
