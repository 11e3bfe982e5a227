package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/docrag/internal/chunking"
	"github.com/cloo-solutions/docrag/internal/database"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/openai"
	"github.com/cloo-solutions/docrag/internal/retrieval"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/cloo-solutions/docrag/internal/storage"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"0"`

	// APIKey protects the HTTP API when set. Requests must carry it as a bearer token.
	APIKey string `envconfig:"API_KEY"`
	// RateLimit enables the per-client request budgets on the HTTP routes.
	RateLimit bool `envconfig:"RATE_LIMIT" default:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docrag-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	// S3URLExpiry bounds the lifetime of the presigned URLs behind GET /documents/{id}/source.
	S3URLExpiry time.Duration `envconfig:"S3_URL_EXPIRY" default:"15m"`

	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string  `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string  `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	ChatMaxTokens       int     `envconfig:"CHAT_MAX_TOKENS" default:"500"`
	ChatTemperature     float32 `envconfig:"CHAT_TEMPERATURE" default:"0.2"`

	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	IngestWorkers  int   `envconfig:"INGEST_WORKERS" default:"4"`

	EmbedMaxRetries     int           `envconfig:"EMBED_MAX_RETRIES" default:"3"`
	EmbedRetryBaseDelay time.Duration `envconfig:"EMBED_RETRY_BASE_DELAY" default:"500ms"`
	EmbedRetryMaxDelay  time.Duration `envconfig:"EMBED_RETRY_MAX_DELAY" default:"5s"`
	EmbedRatePerSecond  float64       `envconfig:"EMBED_RATE_PER_SECOND" default:"0"`
	WorkerPollInterval  time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`

	// Chunking tunables
	DynamicThreshold float64  `envconfig:"DYNAMIC_THRESHOLD" default:"0.5"`
	MinDynamicLength int      `envconfig:"MIN_DYNAMIC_LENGTH" default:"1000"`
	FixedTargetSize  int      `envconfig:"FIXED_TARGET_SIZE" default:"512"`
	FixedOverlap     int      `envconfig:"FIXED_OVERLAP" default:"50"`
	FixedMinViable   int      `envconfig:"FIXED_MIN_VIABLE" default:"64"`
	DynamicMinSize   int      `envconfig:"DYNAMIC_MIN_SIZE" default:"200"`
	DynamicMaxSize   int      `envconfig:"DYNAMIC_MAX_SIZE" default:"1000"`
	HeadingMaxRunes  int      `envconfig:"HEADING_MAX_RUNES" default:"80"`
	SectionMarkers   []string `envconfig:"SECTION_MARKERS"`

	// Retrieval tunables
	FusionAlpha         float64 `envconfig:"FUSION_ALPHA" default:"0.6"`
	TopK                int     `envconfig:"TOP_K" default:"5"`
	CandidateMultiplier int     `envconfig:"CANDIDATE_MULTIPLIER" default:"2"`
	ContextBudget       int     `envconfig:"CONTEXT_BUDGET" default:"4000"`
	DedupeWindow        int     `envconfig:"DEDUPE_WINDOW" default:"25"`

	// TuningFile is an optional YAML profile that overrides the chunking and retrieval tunables.
	TuningFile string `envconfig:"TUNING_FILE"`

	tuning *Tuning
}

func Load() (*Config, error) {
	return load(true)
}

// LoadLocal reads the configuration for tools that run without Postgres, such as the
// client's analyze command. DOCRAG_DATABASE_URL is not required.
func LoadLocal() (*Config, error) {
	return load(false)
}

func load(requireDatabase bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCRAG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if requireDatabase && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required key DOCRAG_DATABASE_URL missing value")
	}

	if cfg.TuningFile != "" {
		t, err := LoadTuning(cfg.TuningFile)
		if err != nil {
			return nil, err
		}
		cfg.tuning = t
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks that the tunables combine into usable chunking and retrieval settings.
func (c *Config) Validate() error {
	if err := c.ChunkingConfig().Validate(); err != nil {
		return fmt.Errorf("invalid chunking config: %w", err)
	}
	if err := c.RetrievalConfig().Validate(); err != nil {
		return fmt.Errorf("invalid retrieval config: %w", err)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if c.IngestWorkers <= 0 {
		return fmt.Errorf("ingest workers must be positive")
	}
	if c.EmbedMaxRetries < 0 {
		return fmt.Errorf("embed max retries cannot be negative")
	}
	return nil
}

func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		URL:      c.DatabaseURL,
		MaxConns: c.DBMaxConns,
		MinConns: c.DBMinConns,
	}
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) S3Config() storage.S3ClientConfig {
	return storage.S3ClientConfig{
		Endpoint:        c.S3Endpoint,
		Region:          c.S3Region,
		AccessKeyID:     c.S3AccessKey,
		SecretAccessKey: c.S3SecretKey,
		Bucket:          c.S3Bucket,
		UsePathStyle:    true,
		URLExpiry:       c.S3URLExpiry,
	}
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// ChunkingConfig returns the chunking settings from the environment with the tuning
// profile applied on top.
func (c *Config) ChunkingConfig() chunking.Config {
	cc := chunking.DefaultConfig()
	cc.DynamicThreshold = c.DynamicThreshold
	cc.MinDynamicLength = c.MinDynamicLength
	cc.Fixed = domain.FixedParams{
		TargetSize: c.FixedTargetSize,
		Overlap:    c.FixedOverlap,
		MinViable:  c.FixedMinViable,
	}
	cc.Dynamic.MinSize = c.DynamicMinSize
	cc.Dynamic.MaxSize = c.DynamicMaxSize
	cc.Dynamic.Rules.HeadingMaxRunes = c.HeadingMaxRunes
	if len(c.SectionMarkers) > 0 {
		cc.Dynamic.Rules.SectionMarkers = c.SectionMarkers
	}
	return c.tuning.ApplyChunking(cc)
}

// RetrievalConfig returns the ranking and context settings with the tuning profile applied.
func (c *Config) RetrievalConfig() retrieval.Config {
	rc := retrieval.Config{
		Alpha:               c.FusionAlpha,
		TopK:                c.TopK,
		CandidateMultiplier: c.CandidateMultiplier,
		ContextBudget:       c.ContextBudget,
		DedupeWindow:        c.DedupeWindow,
	}
	return c.tuning.ApplyRetrieval(rc)
}

func (c *Config) EmbeddingConfig() service.EmbeddingConfig {
	return service.EmbeddingConfig{
		MaxRetries:    c.EmbedMaxRetries,
		BaseDelay:     c.EmbedRetryBaseDelay,
		MaxDelay:      c.EmbedRetryMaxDelay,
		RatePerSecond: c.EmbedRatePerSecond,
	}
}

func (c *Config) IngestionConfig() service.IngestionConfig {
	return service.IngestionConfig{
		MaxUploadBytes: c.MaxUploadBytes,
		Workers:        c.IngestWorkers,
	}
}

func (c *Config) OpenAIConfig() openai.Config {
	return openai.Config{
		APIKey:              c.OpenAIAPIKey,
		BaseURL:             c.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(c.EmbeddingModel),
		EmbeddingDimensions: c.EmbeddingDimensions,
	}
}

func (c *Config) GeneratorConfig() openai.GeneratorConfig {
	return openai.GeneratorConfig{
		APIKey:      c.OpenAIAPIKey,
		BaseURL:     c.OpenAIBaseURL,
		Model:       c.ChatModel,
		MaxTokens:   c.ChatMaxTokens,
		Temperature: c.ChatTemperature,
	}
}
