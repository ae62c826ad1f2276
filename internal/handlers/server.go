package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shanki-dipak/portfolio-twin/internal/i18n"
	"github.com/shanki-dipak/portfolio-twin/internal/middleware"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/shanki-dipak/portfolio-twin/internal/services/cache"
	"github.com/shanki-dipak/portfolio-twin/internal/services/chat"
	"github.com/shanki-dipak/portfolio-twin/internal/services/contact"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// ChatReplier answers chat messages
type ChatReplier interface {
	Reply(ctx context.Context, req chat.Request) (chat.Response, error)
}

// ContactSubmitter accepts contact-form submissions
type ContactSubmitter interface {
	Submit(ctx context.Context, inquiry models.ContactInquiry) contact.Result
}

// Seeder writes the trigger table and stored relationships
type Seeder interface {
	ReplaceTriggers(ctx context.Context, triggers []models.TriggerResponse) error
	SaveRelationship(ctx context.Context, relationship models.Relationship) error
}

// Deps are the collaborators of the HTTP surface. Seeder and RelCache may
// be nil; Limiter nil disables rate limiting.
type Deps struct {
	Chat        ChatReplier
	Contact     ContactSubmitter
	Seeder      Seeder
	RelCache    cache.Service
	Triggers    []models.TriggerResponse
	Localizer   *i18n.Localizer
	Metrics     *middleware.Metrics
	Limiter     middleware.RateLimiter
	PersonaName string
	Backend     string
	AdminToken  string
	MetricsPath string
	Logger      *logrus.Logger
}

// Server serves the portfolio API
type Server struct {
	deps Deps
}

// NewServer creates the API server
func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

// Router wires every route. Unmatched paths and methods answer with JSON.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	if s.deps.Metrics != nil {
		router.Use(s.deps.Metrics.Instrument)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.BodyLimit(maxBodyBytes))

	api.Handle("/chat", s.limited("/api/chat", http.HandlerFunc(s.handleChat))).Methods(http.MethodPost)
	api.Handle("/contact", s.limited("/api/contact", http.HandlerFunc(s.handleContact))).Methods(http.MethodPost)
	if s.deps.AdminToken != "" && s.deps.Seeder != nil {
		api.HandleFunc("/seed", s.handleSeed).Methods(http.MethodPost)
	} else {
		s.deps.Logger.Info("Seed route disabled: no admin token configured")
	}

	router.HandleFunc("/", s.handleLiveness).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.deps.Metrics != nil && s.deps.MetricsPath != "" {
		router.Handle(s.deps.MetricsPath, s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	router.NotFoundHandler = s.instrumented("not_found", http.HandlerFunc(s.handleNotFound))
	router.MethodNotAllowedHandler = s.instrumented("method_not_allowed", http.HandlerFunc(s.handleMethodNotAllowed))
	api.NotFoundHandler = router.NotFoundHandler
	api.MethodNotAllowedHandler = router.MethodNotAllowedHandler

	return router
}

// InternalError is the fallback used by the recovery middleware
func (s *Server) InternalError() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondMessage(w, r, http.StatusInternalServerError, i18n.MsgInternalError, nil)
	})
}

func (s *Server) limited(route string, next http.Handler) http.Handler {
	if s.deps.Limiter == nil {
		return next
	}
	reject := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondMessage(w, r, http.StatusTooManyRequests, i18n.MsgRateLimitExceeded, nil)
	})
	return middleware.RateLimit(s.deps.Limiter, route, s.deps.Metrics, reject)(next)
}

// Router middleware is skipped for unmatched requests, so those are
// recorded here under a fixed label.
func (s *Server) instrumented(route string, next http.Handler) http.Handler {
	if s.deps.Metrics == nil {
		return next
	}
	return s.deps.Metrics.InstrumentRoute(route, next)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondMessage(w, r, http.StatusNotFound, i18n.MsgRouteNotFound, nil)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.respondMessage(w, r, http.StatusMethodNotAllowed, i18n.MsgMethodNotAllowed, nil)
}
