package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	PacingFixed       = "fixed"
	PacingTokenBucket = "token_bucket"

	PrecedenceLastWins = "last_wins"
	PrecedenceCombine  = "combine"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	// Ticketmaster Discovery API
	APIKey         string
	BaseURL        string
	PageSize       int
	RequestTimeout time.Duration
	LoadTimeout    time.Duration

	// Pacing between the three resource requests of one page load
	PacingMode  string
	PacingDelay time.Duration
	PacingRPS   float64
	PacingBurst int

	KeywordPrecedence string
	DateFilterEnabled bool

	// Redis & Caching
	RedisURL string
	CacheTTL time.Duration

	// SessionTTL is how long an idle visitor's page state is kept.
	SessionTTL time.Duration

	// Rate Limiting
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	// TrustProxyHeaders lets X-Forwarded-For and X-Real-IP replace the peer
	// address. Only enable behind a proxy that overwrites them.
	TrustProxyHeaders bool

	// Tracing
	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64

	LogLevel  string
	LogFormat string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.APIKey = getEnv("TM_API_KEY", "")
	cfg.BaseURL = strings.TrimRight(getEnv("TM_BASE_URL", "https://app.ticketmaster.com/discovery/v2"), "/")
	cfg.PageSize = getIntEnv("TM_PAGE_SIZE", 6)
	cfg.RequestTimeout = getDuration("TM_REQUEST_TIMEOUT", 5*time.Second)
	cfg.LoadTimeout = getDuration("TM_LOAD_TIMEOUT", 15*time.Second)

	cfg.PacingMode = getEnv("PACING_MODE", PacingFixed)
	cfg.PacingDelay = getDuration("PACING_DELAY", 500*time.Millisecond)
	cfg.PacingRPS = getFloatEnv("PACING_RPS", 2)
	cfg.PacingBurst = getIntEnv("PACING_BURST", 1)

	cfg.KeywordPrecedence = getEnv("KEYWORD_PRECEDENCE", PrecedenceLastWins)
	cfg.DateFilterEnabled = getBoolEnv("DATE_FILTER_ENABLED", false)

	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.CacheTTL = getDuration("CACHE_TTL", 60*time.Second)
	cfg.SessionTTL = getDuration("PAGE_SESSION_TTL", 10*time.Minute)

	// 60 page loads per minute per client
	cfg.RLEnabled = getBoolEnv("RL_ENABLED", true)
	cfg.RLLimit = getIntEnv("RL_IP_LIMIT", 60)
	cfg.RLWindow = getDuration("RL_IP_WINDOW", 1*time.Minute)
	cfg.TrustProxyHeaders = getBoolEnv("TRUST_PROXY_HEADERS", false)

	cfg.OTelEnabled = getBoolEnv("OTEL_ENABLED", false)
	cfg.OTelEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg.OTelSampleRatio = getFloatEnv("OTEL_SAMPLE_RATIO", 1)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	cfg.HTTPReadTimeout = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTPWriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	cfg.HTTPIdleTimeout = getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("missing TM_API_KEY")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("missing TM_BASE_URL")
	}
	if c.PageSize <= 0 || c.PageSize > 200 {
		return fmt.Errorf("TM_PAGE_SIZE must be in 1..200, got %d", c.PageSize)
	}
	switch c.PacingMode {
	case PacingFixed:
		if c.PacingDelay < 0 {
			return fmt.Errorf("PACING_DELAY must not be negative")
		}
	case PacingTokenBucket:
		if c.PacingRPS <= 0 || c.PacingBurst <= 0 {
			return fmt.Errorf("PACING_RPS and PACING_BURST must be positive")
		}
	default:
		return fmt.Errorf("PACING_MODE must be one of: %s, %s", PacingFixed, PacingTokenBucket)
	}
	switch c.KeywordPrecedence {
	case PrecedenceLastWins, PrecedenceCombine:
	default:
		return fmt.Errorf("KEYWORD_PRECEDENCE must be one of: %s, %s", PrecedenceLastWins, PrecedenceCombine)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("PAGE_SESSION_TTL must be positive")
	}
	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be in 0..1, got %g", c.OTelSampleRatio)
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getIntEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getFloatEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getBoolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
