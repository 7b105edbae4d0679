// Package config centralizes how skillscribe reads environment variables and
// exposes them as typed values. A .env file in the working directory is loaded
// first when present; real environment variables win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the server, the worker and the CLI.
type Config struct {
	Address         string `env:"SKILLSCRIBE_ADDRESS" envDefault:":8080"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	MaxPayloadBytes int64  `env:"SKILLSCRIBE_MAX_PAYLOAD_BYTES" envDefault:"1048576"`
	SkillTitle      string `env:"SKILL_TITLE" envDefault:"Bedrock Skill"`
	EventsAuthToken string `env:"EVENTS_AUTH_TOKEN"`

	BoxClientID     string        `env:"BOX_CLIENT_ID"`
	BoxPrimaryKey   string        `env:"BOX_KEY_1,required"`
	BoxSecondaryKey string        `env:"BOX_KEY_2"`
	BoxAPIURL       string        `env:"BOX_API_URL" envDefault:"https://api.box.com/2.0"`
	BoxTimeout      time.Duration `env:"BOX_TIMEOUT" envDefault:"30s"`
	SignatureMaxAge time.Duration `env:"BOX_SIGNATURE_MAX_AGE" envDefault:"10m"`

	RedisAddr          string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword      string `env:"REDIS_PASSWORD"`
	RedisDB            int    `env:"REDIS_DB" envDefault:"0"`
	WorkerConcurrency  int    `env:"WORKER_CONCURRENCY" envDefault:"4"`
	TranscribeMaxRetry int    `env:"TRANSCRIBE_MAX_RETRY" envDefault:"5"`
	SummarizeMaxRetry  int    `env:"SUMMARIZE_MAX_RETRY" envDefault:"2"`

	JobStore    string `env:"JOB_STORE" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	S3Endpoint           string `env:"S3_ENDPOINT" envDefault:"s3.amazonaws.com"`
	S3AccessKey          string `env:"S3_ACCESS_KEY"`
	S3SecretKey          string `env:"S3_SECRET_KEY"`
	S3UseSSL             bool   `env:"S3_USE_SSL" envDefault:"true"`
	Bucket               string `env:"BUCKET_NAME,required"`
	StorageNotifications string `env:"STORAGE_NOTIFICATIONS" envDefault:"http"`

	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	TranscribeLanguage string `env:"TRANSCRIBE_LANGUAGE" envDefault:"en-US"`

	ModelID       string  `env:"AI_MODEL" envDefault:"anthropic.claude-v2:1"`
	PromptVariant string  `env:"PROMPT_VARIANT" envDefault:"general"`
	MaxTokens     int     `env:"AI_MAX_TOKENS" envDefault:"150"`
	Temperature   float64 `env:"AI_TEMPERATURE" envDefault:"0"`
	GeminiAPIKey  string  `env:"GEMINI_API_KEY"`
}

const (
	JobStorePostgres = "postgres"
	JobStoreMemory   = "memory"

	NotificationsHTTP   = "http"
	NotificationsListen = "listen"

	defaultWorkerCount = 4
	defaultMaxPayload  = 1 << 20
)

var promptVariants = map[string]bool{
	"general":         true,
	"three_sentences": true,
	"per_speaker":     true,
	"action_items":    true,
}

// Load reads configuration from .env (when present) and the environment,
// normalizes out-of-range values and validates the result.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path.
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = defaultWorkerCount
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = defaultMaxPayload
	}
	if cfg.TranscribeMaxRetry < 0 {
		cfg.TranscribeMaxRetry = 0
	}
	if cfg.SummarizeMaxRetry < 0 {
		cfg.SummarizeMaxRetry = 0
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch c.JobStore {
	case JobStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when JOB_STORE=postgres"))
		}
	case JobStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("JOB_STORE must be %q or %q, got %q", JobStorePostgres, JobStoreMemory, c.JobStore))
	}
	switch c.StorageNotifications {
	case NotificationsHTTP, NotificationsListen:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_NOTIFICATIONS must be %q or %q, got %q", NotificationsHTTP, NotificationsListen, c.StorageNotifications))
	}
	if !promptVariants[c.PromptVariant] {
		errs = append(errs, fmt.Errorf("unknown PROMPT_VARIANT %q", c.PromptVariant))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, errors.New("AI_MAX_TOKENS must be positive"))
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		errs = append(errs, errors.New("AI_TEMPERATURE must be within [0, 1]"))
	}
	return errors.Join(errs...)
}
