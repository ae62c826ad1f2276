package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Models     ModelsConfig     `mapstructure:"models"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Mail       MailConfig       `mapstructure:"mail"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Context    ContextConfig    `mapstructure:"context"`
	Persona    PersonaConfig    `mapstructure:"persona"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AdminToken      string        `mapstructure:"admin_token"`
	RenderMarkdown  bool          `mapstructure:"render_markdown"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
}

type ModelsConfig struct {
	Timeout   time.Duration   `mapstructure:"timeout"`
	Endpoints []ModelEndpoint `mapstructure:"endpoints"`
}

// ModelEndpoint is one generative API account. Its models are tried in
// the listed order, after the models of every earlier endpoint.
type ModelEndpoint struct {
	Name     string      `mapstructure:"name"`
	Provider string      `mapstructure:"provider"`
	BaseURL  string      `mapstructure:"base_url"`
	APIKey   string      `mapstructure:"api_key"`
	Models   []ModelInfo `mapstructure:"models"`
}

type ModelInfo struct {
	ID        string `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultGeminiModels is the candidate order used when GEMINI_MODELS is unset:
// fastest first, higher-capability models after.
var DefaultGeminiModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-2.0-flash",
	"gemini-2.0-flash-exp",
	"gemini-2.5-flash",
}

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"
	StorageMemory   = "memory"
)

type StorageConfig struct {
	Type          string        `mapstructure:"type"`
	DatabaseURL   string        `mapstructure:"database_url"`
	OpTimeout     time.Duration `mapstructure:"op_timeout"`
	LogRetention  time.Duration `mapstructure:"log_retention"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
	Redis         RedisConfig   `mapstructure:"redis"`
	Memory        MemoryConfig  `mapstructure:"memory"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MaxLogs  int64  `mapstructure:"max_logs"`
}

type MemoryConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type MailConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	FromName string        `mapstructure:"from_name"`
	To       string        `mapstructure:"to"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether outbound mail credentials are configured.
func (m MailConfig) Enabled() bool {
	return m.Username != "" && m.Password != ""
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type ContextConfig struct {
	HistoryWindow int `mapstructure:"history_window"`
}

type PersonaConfig struct {
	File string `mapstructure:"file"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.render_markdown", false)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("models.timeout", 30*time.Second)

	v.SetDefault("storage.type", "")
	v.SetDefault("storage.database_url", "")
	v.SetDefault("storage.op_timeout", 5*time.Second)
	v.SetDefault("storage.log_retention", 90*24*time.Hour)
	v.SetDefault("storage.prune_interval", 6*time.Hour)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.max_logs", 10000)
	v.SetDefault("storage.memory.default_expiration", 24*time.Hour)
	v.SetDefault("storage.memory.cleanup_interval", time.Hour)

	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.from_name", "Portfolio Bot")
	v.SetDefault("mail.to", "")
	v.SetDefault("mail.timeout", 15*time.Second)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.max_size", 5000)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("context.history_window", 10)
	v.SetDefault("persona.file", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file.path", "logs/server.log")
	v.SetDefault("logging.file.max_size", 50)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age", 30)

	v.SetDefault("monitoring.metrics.enabled", true)
	v.SetDefault("monitoring.metrics.path", "/metrics")

	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("i18n.languages", []string{"en", "ne"})
}

// LoadConfig loads configuration from an optional YAML file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	v.BindEnv("server.admin_token", "ADMIN_TOKEN")
	v.BindEnv("server.trust_proxy", "TRUST_PROXY")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.database_url", "DATABASE_URL")
	v.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.redis.db", "REDIS_DB")
	v.BindEnv("mail.host", "SMTP_HOST")
	v.BindEnv("mail.port", "SMTP_PORT")
	v.BindEnv("mail.username", "EMAIL_USER")
	v.BindEnv("mail.password", "EMAIL_PASS")
	v.BindEnv("mail.to", "MAIL_TO")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("persona.file", "PERSONA_FILE")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Handle Redis address special case
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := os.Getenv("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.Storage.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	if config.Mail.From == "" {
		config.Mail.From = config.Mail.Username
	}

	applyEndpointEnv(&config.Models, ProviderGemini, ProviderGemini,
		os.Getenv("GEMINI_API_KEY"), "", os.Getenv("GEMINI_MODELS"), DefaultGeminiModels)
	applyEndpointEnv(&config.Models, ProviderOpenAI, ProviderOpenAI,
		os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_BASE_URL"), os.Getenv("OPENAI_MODELS"), nil)

	if config.Storage.Type == "" {
		config.Storage.Type = DetectStorageType(config.Storage.DatabaseURL)
	}
	config.Storage.Type = strings.ToLower(strings.TrimSpace(config.Storage.Type))

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEndpointEnv merges an endpoint described by environment variables
// into the configured endpoint list. A file-defined endpoint with the same
// name keeps its position and only has blank fields filled in.
func applyEndpointEnv(cfg *ModelsConfig, name, provider, apiKey, baseURL, modelsStr string, defaults []string) {
	if apiKey == "" {
		return
	}

	models := parseModelList(modelsStr)

	for i := range cfg.Endpoints {
		endpoint := &cfg.Endpoints[i]
		if endpoint.Name != name {
			continue
		}
		if endpoint.APIKey == "" {
			endpoint.APIKey = apiKey
		}
		if endpoint.BaseURL == "" {
			endpoint.BaseURL = baseURL
		}
		if len(models) > 0 {
			endpoint.Models = models
		}
		return
	}

	if len(models) == 0 {
		for _, id := range defaults {
			models = append(models, ModelInfo{ID: id, Name: id})
		}
	}
	if len(models) == 0 {
		return
	}

	cfg.Endpoints = append(cfg.Endpoints, ModelEndpoint{
		Name:     name,
		Provider: provider,
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Models:   models,
	})
}

// parseModelList parses "id[:display name],id2" lists.
func parseModelList(modelsStr string) []ModelInfo {
	var models []ModelInfo
	for _, modelStr := range strings.Split(modelsStr, ",") {
		modelStr = strings.TrimSpace(modelStr)
		if modelStr == "" {
			continue
		}

		parts := strings.SplitN(modelStr, ":", 2)
		modelID := strings.TrimSpace(parts[0])
		modelName := modelID
		if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
			modelName = strings.TrimSpace(parts[1])
		}

		models = append(models, ModelInfo{ID: modelID, Name: modelName})
	}
	return models
}

// DetectStorageType picks a backend from the shape of the database URL.
func DetectStorageType(databaseURL string) string {
	url := strings.ToLower(strings.TrimSpace(databaseURL))
	switch {
	case url == "":
		return StorageMemory
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return StoragePostgres
	case strings.HasPrefix(url, "redis://"):
		return StorageRedis
	case strings.HasPrefix(url, "file:"), strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return StorageSQLite
	default:
		return StorageMemory
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	switch cfg.Storage.Type {
	case StoragePostgres, StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	if cfg.Context.HistoryWindow <= 0 {
		return fmt.Errorf("context.history_window must be positive")
	}
	if cfg.Models.Timeout <= 0 {
		return fmt.Errorf("models.timeout must be positive")
	}
	for _, endpoint := range cfg.Models.Endpoints {
		if endpoint.Name == "" {
			return fmt.Errorf("model endpoint name is required")
		}
		switch endpoint.Provider {
		case ProviderGemini, ProviderOpenAI:
		default:
			return fmt.Errorf("endpoint %s: unsupported provider %q", endpoint.Name, endpoint.Provider)
		}
	}
	return nil
}
