package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"prepsprint"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Practice Practice
	AI       AI
	Storage  Storage
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds cache + session state configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for token verification. Token issuance lives in
// the external auth service; this service only verifies bearer tokens.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
}

// Practice groups session-engine and fetch defaults.
type Practice struct {
	DefaultBatchSize     int           `env:"DEFAULT_QUESTION_BATCH_SIZE" envDefault:"3"`
	PrefetchThreshold    int           `env:"PREFETCH_REMAINING_THRESHOLD" envDefault:"1"`
	QuestionFetchTimeout time.Duration `env:"QUESTION_FETCH_TIMEOUT" envDefault:"30s"`
	AdvanceDelay         time.Duration `env:"CORRECT_ADVANCE_DELAY" envDefault:"1s"`
	CacheTTL             time.Duration `env:"QUESTION_CACHE_TTL" envDefault:"10m"`
	SessionStateTTL      time.Duration `env:"SESSION_STATE_TTL" envDefault:"2h"`
}

// AI configures the generation pipeline and its LLM providers.
type AI struct {
	Provider       string        `env:"AI_PROVIDER" envDefault:"openai"`
	OpenAIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIModel    string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AnthropicKey   string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel string        `env:"ANTHROPIC_MODEL" envDefault:"claude-haiku"`
	GeminiKey      string        `env:"GEMINI_API_KEY"`
	GeminiModel    string        `env:"GEMINI_MODEL" envDefault:"gemini-flash"`
	Verify         bool          `env:"AI_VERIFY_ANSWERS" envDefault:"true"`
	VerifyParallel bool          `env:"AI_VERIFY_PARALLEL" envDefault:"false"`
	MaxTokens      int           `env:"AI_MAX_TOKENS" envDefault:"4096"`
	Temperature    float64       `env:"AI_TEMPERATURE" envDefault:"0.7"`
	RequestTimeout time.Duration `env:"AI_REQUEST_TIMEOUT" envDefault:"60s"`
}

// Storage configures the blob store that holds question diagrams.
type Storage struct {
	Endpoint      string `env:"STORAGE_ENDPOINT"`
	AccessKey     string `env:"STORAGE_ACCESS_KEY"`
	SecretKey     string `env:"STORAGE_SECRET_KEY"`
	UseSSL        bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
	DiagramBucket string `env:"STORAGE_DIAGRAM_BUCKET" envDefault:"question-diagrams"`
	PublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
