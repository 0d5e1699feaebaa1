package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMongo    = "mongo"
)

// PostgresEmbeddingDimensions is the width of the articles.embedding column.
const PostgresEmbeddingDimensions = 1536

// Embedding providers.
const (
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderMock   = "mock"
	EmbeddingProviderNone   = "none"
)

type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"local"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8080"`

	Store       StoreConfig
	Source      SourceConfig
	Ingest      IngestConfig
	LLM         LLMConfig
	Embedding   EmbeddingConfig
	Credibility CredibilityConfig
	Mail        MailConfig
	Notify      NotifyConfig
	OpsReport   OpsReportConfig
}

// StoreConfig selects and configures the article store.
type StoreConfig struct {
	Backend           string        `env:"STORE_BACKEND" envDefault:"postgres"`
	PostgresDSN       string        `env:"POSTGRES_DSN" envDefault:"postgres://localhost:5432/sheepai?sslmode=disable"`
	MaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	MinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	MongoURI          string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase     string        `env:"MONGO_DATABASE" envDefault:"sheepai"`
}

// SourceConfig controls the article source scrape.
type SourceConfig struct {
	URL             string        `env:"SOURCE_URL" envDefault:"https://thehackernews.com/"`
	FeedURL         string        `env:"SOURCE_FEED_URL"`
	MaxArticles     int           `env:"SOURCE_MAX_ARTICLES" envDefault:"20"`
	RequestDelay    time.Duration `env:"SOURCE_REQUEST_DELAY" envDefault:"1s"`
	ContentMaxChars int           `env:"SOURCE_CONTENT_MAX_CHARS" envDefault:"10000"`
	Timeout         time.Duration `env:"SOURCE_TIMEOUT" envDefault:"30s"`
	UserAgent       string        `env:"SOURCE_USER_AGENT" envDefault:"Mozilla/5.0 (compatible; SheepAI/1.0)"`
}

// IngestConfig controls the ingestion schedule.
type IngestConfig struct {
	Schedule     string `env:"INGEST_SCHEDULE" envDefault:"0 */6 * * *"`
	RunOnStartup bool   `env:"INGEST_RUN_ON_STARTUP" envDefault:"true"`
	Category     string `env:"INGEST_CATEGORY"`
	Timezone     string `env:"SCHEDULE_TIMEZONE" envDefault:"UTC"`
}

// LLMConfig holds completion provider settings.
type LLMConfig struct {
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	Model            string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	AnthropicModel   string        `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-haiku-latest"`
	MaxTokens        int           `env:"LLM_MAX_TOKENS" envDefault:"1024"`
	RateLimitRPS     float64       `env:"LLM_RATE_LIMIT_RPS" envDefault:"1"`
	CircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	CircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`
	EnrichDelay      time.Duration `env:"ENRICH_DELAY" envDefault:"2s"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider     string  `env:"EMBEDDING_PROVIDER" envDefault:"openai"`
	Model        string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	Dimensions   int     `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	APIKey       string  `env:"EMBEDDING_API_KEY"`
	BaseURL      string  `env:"EMBEDDING_BASE_URL"`
	RateLimitRPS float64 `env:"EMBEDDING_RATE_LIMIT_RPS" envDefault:"5"`
}

// CredibilityConfig holds credibility scorer settings.
type CredibilityConfig struct {
	ReputationFile string `env:"CREDIBILITY_REPUTATION_FILE"`
	RecentDays     int    `env:"CREDIBILITY_RECENT_DAYS" envDefault:"30"`
}

// MailConfig holds SMTP settings. An empty host disables mail.
type MailConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"SheepAI <alerts@sheepai.local>"`
}

// NotifyConfig holds notification fan-out settings.
type NotifyConfig struct {
	Concurrency           int `env:"NOTIFY_CONCURRENCY" envDefault:"8"`
	DefaultMinCredibility int `env:"DEFAULT_MIN_CREDIBILITY" envDefault:"0"`
}

// OpsReportConfig holds the optional Telegram cycle report settings.
type OpsReportConfig struct {
	BotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	AdminChatID int64  `env:"TELEGRAM_ADMIN_CHAT_ID"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyAliases(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendPostgres, StoreBackendMongo:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Embedding.Provider {
	case EmbeddingProviderOpenAI, EmbeddingProviderMock, EmbeddingProviderNone:
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.Embedding.Provider)
	}

	if c.Source.MaxArticles <= 0 {
		return fmt.Errorf("SOURCE_MAX_ARTICLES must be positive, got %d", c.Source.MaxArticles)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.Embedding.Dimensions)
	}

	if c.Store.Backend == StoreBackendPostgres && c.Embedding.Dimensions != PostgresEmbeddingDimensions {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be %d for the postgres vector column, got %d",
			PostgresEmbeddingDimensions, c.Embedding.Dimensions)
	}

	if c.Notify.DefaultMinCredibility < 0 || c.Notify.DefaultMinCredibility > 100 {
		return fmt.Errorf("DEFAULT_MIN_CREDIBILITY must be within 0..100, got %d", c.Notify.DefaultMinCredibility)
	}

	return nil
}

// LLMConfigured reports whether any completion provider has credentials.
func (c *Config) LLMConfigured() bool {
	return c.LLM.OpenAIAPIKey != "" || c.LLM.OpenAIBaseURL != "" || c.LLM.AnthropicAPIKey != ""
}

// The embedding endpoint defaults to the completion endpoint so a single
// OpenAI-compatible server can serve both.
func applyAliases(cfg *Config) {
	if !hasEnv("EMBEDDING_API_KEY") {
		cfg.Embedding.APIKey = cfg.LLM.OpenAIAPIKey
	}

	if !hasEnv("EMBEDDING_BASE_URL") {
		cfg.Embedding.BaseURL = cfg.LLM.OpenAIBaseURL
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Embedding.Provider = strings.ToLower(strings.TrimSpace(cfg.Embedding.Provider))
}

func hasEnv(key string) bool {
	val, ok := os.LookupEnv(key)
	return ok && strings.TrimSpace(val) != ""
}
