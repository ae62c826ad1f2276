package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/shanki-dipak/portfolio-twin/internal/handlers"
	"github.com/shanki-dipak/portfolio-twin/internal/i18n"
	"github.com/shanki-dipak/portfolio-twin/internal/middleware"
	"github.com/shanki-dipak/portfolio-twin/internal/persona"
	"github.com/shanki-dipak/portfolio-twin/internal/services/ai"
	"github.com/shanki-dipak/portfolio-twin/internal/services/cache"
	"github.com/shanki-dipak/portfolio-twin/internal/services/chat"
	"github.com/shanki-dipak/portfolio-twin/internal/services/contact"
	"github.com/shanki-dipak/portfolio-twin/internal/services/mail"
	"github.com/shanki-dipak/portfolio-twin/internal/services/storage"
	"github.com/shanki-dipak/portfolio-twin/pkg/logger"
	"github.com/shanki-dipak/portfolio-twin/pkg/markdown"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting portfolio backend...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persona
	profile, err := persona.LoadProfile(cfg.Persona.File)
	if err != nil {
		log.WithError(err).Fatal("Failed to load persona")
	}
	builder, err := persona.NewBuilder(profile)
	if err != nil {
		log.WithError(err).Fatal("Failed to build persona prompt")
	}
	log.WithField("persona", profile.Name).Info("Persona loaded")

	metrics := middleware.NewMetrics()

	// Initialize storage
	storageManager, err := storage.NewManager(ctx, cfg, metrics, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer storageManager.Close()
	go storageManager.StartCleanup(ctx, cfg.Storage.PruneInterval, cfg.Storage.LogRetention)

	// Initialize AI candidates
	candidates, err := ai.NewCandidates(ctx, &cfg.Models, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize AI models")
	}
	if len(candidates) == 0 {
		log.Warn("No generative model configured, chat requests will fail until GEMINI_API_KEY is set")
	}
	invoker := ai.NewInvoker(candidates, cfg.Models.Timeout, metrics, log)

	relCache := cache.NewCache("relationships", &cfg.Cache, metrics, log)

	var render func(string) string
	if cfg.Server.RenderMarkdown {
		render = markdown.ToHTML
	}
	chatService := chat.NewService(builder, invoker, storageManager, relCache, metrics, chat.Options{
		HistoryWindow: cfg.Context.HistoryWindow,
		StoreTimeout:  cfg.Storage.OpTimeout,
		Render:        render,
	}, log)

	var notifier mail.Notifier
	if smtp := mail.NewNotifier(cfg.Mail, profile.ContactEmail, log); smtp != nil {
		notifier = smtp
	}
	contactService := contact.NewService(storageManager, notifier, cfg.Storage.OpTimeout, cfg.Mail.Timeout, log)

	// Initialize i18n
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	defer rateLimiter.Stop()

	metricsPath := ""
	if cfg.Monitoring.Metrics.Enabled {
		metricsPath = cfg.Monitoring.Metrics.Path
	}

	server := handlers.NewServer(handlers.Deps{
		Chat:        chatService,
		Contact:     contactService,
		Seeder:      storageManager,
		RelCache:    relCache,
		Triggers:    persona.DefaultTriggers(),
		Localizer:   localizer,
		Metrics:     metrics,
		Limiter:     rateLimiter,
		PersonaName: profile.Name,
		Backend:     storageManager.Backend(),
		AdminToken:  cfg.Server.AdminToken,
		MetricsPath: metricsPath,
		Logger:      log,
	})

	handler := middleware.CORS(cfg.Server.AllowedOrigins)(server.Router())
	handler = middleware.RequestLogger(log)(handler)
	handler = middleware.Recover(log, server.InternalError())(handler)
	handler = middleware.TrustProxy(cfg.Server.TrustProxy)(handler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"storage": storageManager.Backend(),
			"models":  len(candidates),
		}).Info("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}

	log.Info("Server stopped")
}
