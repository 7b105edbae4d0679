// Package bootstrap builds the long-lived clients shared by the binaries from
// a loaded Config.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/skillscribe/internal/box"
	"github.com/dharsanguruparan/skillscribe/internal/cards"
	"github.com/dharsanguruparan/skillscribe/internal/config"
	"github.com/dharsanguruparan/skillscribe/internal/database"
	"github.com/dharsanguruparan/skillscribe/internal/llm"
	"github.com/dharsanguruparan/skillscribe/internal/model"
	"github.com/dharsanguruparan/skillscribe/internal/pipeline"
	"github.com/dharsanguruparan/skillscribe/internal/repository"
	"github.com/dharsanguruparan/skillscribe/internal/s3storage"
	"github.com/dharsanguruparan/skillscribe/internal/storage"
	"github.com/dharsanguruparan/skillscribe/internal/transcribe"
)

// NewLogger returns a JSON logger on stdout at the configured level.
func NewLogger(level string) zerolog.Logger {
	return newLogger(os.Stdout, level)
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "skillscribe").Logger()
}

// RedisOpt returns the asynq connection options.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// Cards returns the platform client and the card dispatcher on top of it.
func Cards(cfg *config.Config) (*box.Client, *cards.Dispatcher) {
	client := box.NewClient(cfg.BoxAPIURL, cfg.BoxTimeout)
	return client, cards.NewDispatcher(client, cfg.SkillTitle)
}

// AWSConfig loads AWS settings, preferring explicit keys from the Config.
func AWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// JobStore is the job row store plus the listing used by the CLI.
type JobStore interface {
	pipeline.JobStore
	List(ctx context.Context, limit int) ([]model.Job, error)
}

// OpenJobStore returns the configured job store and a function releasing it.
func OpenJobStore(ctx context.Context, cfg *config.Config) (JobStore, func(), error) {
	if cfg.JobStore == config.JobStoreMemory {
		return storage.NewMemoryStore(), func() {}, nil
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repository.NewJobRepository(pool), pool.Close, nil
}

// Completer returns the language model client for cfg.ModelID.
func Completer(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (llm.Completer, error) {
	if llm.IsGemini(cfg.ModelID) {
		return llm.NewGeminiCompleterFromKey(ctx, cfg.GeminiAPIKey, cfg.ModelID)
	}
	return llm.NewBedrockCompleter(bedrockruntime.NewFromConfig(awsCfg), cfg.ModelID)
}

// Params returns the sampling settings with the configured overrides.
func Params(cfg *config.Config) llm.Params {
	p := llm.DefaultParams()
	p.MaxTokens = cfg.MaxTokens
	p.Temperature = cfg.Temperature
	return p
}

// Stages holds both pipeline stages and the clients behind them.
type Stages struct {
	Transcriber *pipeline.Transcriber
	Summarizer  *pipeline.Summarizer
	Jobs        JobStore
	Blobs       *s3storage.Storage
	Backend     transcribe.Backend
	Cards       *cards.Dispatcher
	close       func()
}

// Close releases the job store.
func (s *Stages) Close() {
	if s.close != nil {
		s.close()
	}
}

// NewStages connects every backend the worker needs.
func NewStages(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stages, error) {
	variant, err := llm.ParseVariant(cfg.PromptVariant)
	if err != nil {
		return nil, err
	}
	awsCfg, err := AWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	completer, err := Completer(ctx, cfg, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("init language model: %w", err)
	}
	blobs, err := s3storage.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	jobs, closeJobs, err := OpenJobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	files, dispatcher := Cards(cfg)
	backend := transcribe.NewAWSBackendFromConfig(awsCfg)
	return &Stages{
		Transcriber: pipeline.NewTranscriber(files, jobs, backend, dispatcher, pipeline.TranscriberConfig{
			Bucket:       cfg.Bucket,
			LanguageCode: cfg.TranscribeLanguage,
		}, logger),
		Summarizer: pipeline.NewSummarizer(jobs, blobs, completer, dispatcher, pipeline.SummarizerConfig{
			Variant: variant,
			Params:  Params(cfg),
		}, logger),
		Jobs:    jobs,
		Blobs:   blobs,
		Backend: backend,
		Cards:   dispatcher,
		close:   closeJobs,
	}, nil
}
