package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	DatabaseURL   string

	GoogleClientID     string
	GoogleClientSecret string
	YouTubeAPIBase     string

	LLMProvider     string
	GeminiAPIKey    string
	DefaultLLMModel string

	// FreeVideoLimit caps how many videos one scan collects.
	FreeVideoLimit     int
	CommentConcurrency int
	// CommentRatePerSec throttles top-comment lookups; 0 disables.
	CommentRatePerSec  int
	RateLimitPerMinute int
	ScanTimeout        time.Duration
	ScanLockTTL        time.Duration
	JobRetention       time.Duration
	WorkerConcurrency  int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Load reads configuration from the environment, after merging a .env file
// from the working directory when one exists. Variables already set in the
// environment win over .env values.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8081"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:   getenv("DATABASE_URL", "file:foodtube.db?_pragma=busy_timeout(5000)"),

		GoogleClientID:     os.Getenv("AUTH_GOOGLE_ID"),
		GoogleClientSecret: os.Getenv("AUTH_GOOGLE_SECRET"),
		YouTubeAPIBase:     getenv("YOUTUBE_API_BASE", "https://www.googleapis.com/youtube/v3"),

		LLMProvider:     getenv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		DefaultLLMModel: getenv("DEFAULT_LLM_MODEL", "gemini-2.0-flash"),

		FreeVideoLimit:     getenvInt("FREE_VIDEO_LIMIT", 50),
		CommentConcurrency: getenvInt("COMMENT_CONCURRENCY", 1),
		CommentRatePerSec:  getenvInt("COMMENT_RATE_PER_SEC", 10),
		RateLimitPerMinute: getenvInt("RATE_LIMIT_PER_MIN", 60),
		ScanTimeout:        getenvDuration("SCAN_TIMEOUT", time.Hour),
		ScanLockTTL:        getenvDuration("SCAN_LOCK_TTL", time.Hour),
		JobRetention:       getenvDuration("JOB_RETENTION", 7*24*time.Hour),
		WorkerConcurrency:  getenvInt("WORKER_CONCURRENCY", 10),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.FreeVideoLimit < 0 {
		return fmt.Errorf("FREE_VIDEO_LIMIT must be >= 0, got %d", c.FreeVideoLimit)
	}
	if c.CommentConcurrency < 1 {
		return fmt.Errorf("COMMENT_CONCURRENCY must be >= 1, got %d", c.CommentConcurrency)
	}
	if c.CommentRatePerSec < 0 {
		return fmt.Errorf("COMMENT_RATE_PER_SEC must be >= 0, got %d", c.CommentRatePerSec)
	}
	if c.AppEnv == "production" && c.GeminiAPIKey == "" {
		return fmt.Errorf("production environment requires GEMINI_API_KEY")
	}
	return nil
}

func (c Config) IsProduction() bool { return c.AppEnv == "production" }
