// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Delivery
	BotToken string `env:"BOT_TOKEN"`

	// LLM analyzer (OpenAI-compatible endpoint)
	LLMAPIKey      string        `env:"LLM_API_KEY"`
	LLMBaseURL     string        `env:"LLM_BASE_URL"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"45s"`
	LLMRateRPS     float64       `env:"LLM_RATE_RPS" envDefault:"2"`
	EmbeddingModel string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDims  int           `env:"EMBEDDING_DIMS" envDefault:"1536"`

	// Ingestion and clustering
	IngestBatchSize     int     `env:"INGEST_BATCH_SIZE" envDefault:"40"`
	DedupWindowHours    int     `env:"DEDUP_WINDOW_HOURS" envDefault:"96"`
	ClusterWindowHours  int     `env:"CLUSTER_WINDOW_HOURS" envDefault:"96"`
	SimilarityThreshold float32 `env:"SIMILARITY_THRESHOLD" envDefault:"0.82"`
	ClusterCandidates   int     `env:"CLUSTER_CANDIDATES" envDefault:"5"`
	NormalizedTextCap   int     `env:"NORMALIZED_TEXT_CAP" envDefault:"4000"`

	// Alert selection
	ClusterMinMentions       int     `env:"CLUSTER_MIN_MENTIONS" envDefault:"2"`
	AlertBatchLimit          int     `env:"ALERT_BATCH_LIMIT" envDefault:"20"`
	MinProductScore          float32 `env:"MIN_PRODUCT_SCORE_FOR_ALERT" envDefault:"0.55"`
	MinNonProductCoreScore   float32 `env:"MIN_NON_PRODUCT_CORE_SCORE_FOR_ALERT" envDefault:"0.70"`
	CoreScoreDisplayFloor    float32 `env:"CORE_SCORE_DISPLAY_FLOOR" envDefault:"0.60"`
	TrendAlertsPerCycle      int     `env:"TREND_ALERTS_PER_CYCLE" envDefault:"2"`
	ResearchAlertsPerCycle   int     `env:"RESEARCH_ALERTS_PER_CYCLE" envDefault:"2"`
	ImportantAlertsPerCycle  int     `env:"IMPORTANT_ALERTS_PER_CYCLE" envDefault:"3"`
	ImportantCoreScore       float32 `env:"IMPORTANT_ALERT_CORE_SCORE" envDefault:"0.85"`
	ImportantProductScore    float32 `env:"IMPORTANT_ALERT_PRODUCT_SCORE" envDefault:"0.80"`
	PersonalizedScoreFloor   float32 `env:"PERSONALIZED_SCORE_FLOOR" envDefault:"0.50"`
	DislikeSimilarity        float32 `env:"FEEDBACK_DISLIKE_SIMILARITY" envDefault:"0.86"`
	ReactionsMultiplier      float64 `env:"REACTIONS_MULTIPLIER" envDefault:"3.0"`
	PopularityBatchLimit     int     `env:"POPULARITY_BATCH_LIMIT" envDefault:"20"`
	BusinessImpactThreshold  float32 `env:"BUSINESS_IMPACT_HIGH_THRESHOLD" envDefault:"0.75"`
	BusinessImpactMaxSources int     `env:"BUSINESS_IMPACT_MAX_SOURCES" envDefault:"4"`
	TavilyAPIKey             string  `env:"TAVILY_API_KEY"`

	// Digest composition
	DigestWindowHours   int     `env:"DIGEST_WINDOW_HOURS" envDefault:"24"`
	DigestTargetItems   int     `env:"DIGEST_TARGET_ITEMS" envDefault:"6"`
	DigestProductShare  float32 `env:"DIGEST_PRODUCT_SHARE" envDefault:"0.5"`
	DigestMaxNonProduct int     `env:"DIGEST_MAX_NON_PRODUCT" envDefault:"3"`
	PromptMinScore      float32 `env:"USER_PROMPT_MIN_SCORE" envDefault:"0.35"`

	// Worker intervals
	IngestTickInterval time.Duration `env:"INGEST_TICK_INTERVAL" envDefault:"2m"`
	AlertTickInterval  time.Duration `env:"ALERT_TICK_INTERVAL" envDefault:"5m"`
	DigestTickInterval time.Duration `env:"DIGEST_TICK_INTERVAL" envDefault:"1m"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// HardSimilarityThreshold is the auto-merge threshold derived from the
// configured base: candidates at or above it merge without a semantic check.
func (c *Config) HardSimilarityThreshold() float32 {
	hard := c.SimilarityThreshold + hardThresholdDelta
	if hard > hardThresholdCeiling {
		return hardThresholdCeiling
	}

	return hard
}

const (
	hardThresholdDelta   = 0.06
	hardThresholdCeiling = 0.97
)

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}
