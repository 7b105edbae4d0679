package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/skillscribe/internal/cards"
	"github.com/dharsanguruparan/skillscribe/internal/llm"
	"github.com/dharsanguruparan/skillscribe/internal/metrics"
	"github.com/dharsanguruparan/skillscribe/internal/model"
)

const stageSummarization = "summarization"

// Outcome of one summarization run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
)

// Result reports what Process did with an object key.
type Result struct {
	Outcome Outcome
	JobID   string
	Summary string
	Reason  string
}

// SummarizerConfig selects the prompt and sampling settings.
type SummarizerConfig struct {
	Variant llm.Variant
	Params  llm.Params
}

// Summarizer turns a finished transcript into cards on the original file.
type Summarizer struct {
	jobs      JobStore
	blobs     BlobStore
	completer llm.Completer
	cards     CardWriter
	cfg       SummarizerConfig
	log       zerolog.Logger
}

// NewSummarizer wires the summarization stage.
func NewSummarizer(jobs JobStore, blobs BlobStore, completer llm.Completer, cw CardWriter, cfg SummarizerConfig, logger zerolog.Logger) *Summarizer {
	return &Summarizer{
		jobs:      jobs,
		blobs:     blobs,
		completer: completer,
		cards:     cw,
		cfg:       cfg,
		log:       logger.With().Str("component", stageSummarization).Logger(),
	}
}

// Process summarizes the transcript at key. Keys that are not transcripts are
// skipped without touching any backend.
func (s *Summarizer) Process(ctx context.Context, key string) (Result, error) {
	if key == model.PermissionCheckKey {
		return s.skip(key, "permission check object"), nil
	}
	name, ok := model.JobNameFromKey(key)
	if !ok {
		return s.skip(key, "not a transcript object"), nil
	}
	log := s.log.With().Str("job_id", name).Logger()

	job, err := s.jobs.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			log.Error().Str("object_key", key).Msg("no job row for transcript")
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: load job %s: %w", ErrBackend, name, err)
	}
	log = log.With().Str("request_id", job.RequestID).Str("file_id", job.FileID).Logger()

	raw, err := s.blobs.GetObject(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("%w: fetch transcript: %w", ErrBackend, err)
	}
	transcript, err := ExtractTranscript(raw)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	summary, err := s.completer.Complete(ctx, llm.Render(s.cfg.Variant, transcript), s.cfg.Params)
	metrics.ObserveBackend("llm", "complete", start)
	if err != nil {
		return Result{}, fmt.Errorf("%w: summarize: %w", ErrBackend, err)
	}

	if err := s.blobs.PutText(ctx, model.SummaryKey(name), summary); err != nil {
		log.Warn().Err(err).Msg("summary object not stored")
	}

	target := cards.TargetFor(job.FileContext)
	if err := s.cards.Clear(ctx, target); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCardDelivery, err)
	}
	if _, err := s.cards.Result(ctx, target, transcript, summary); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCardDelivery, err)
	}

	if err := s.jobs.Delete(ctx, name); err != nil && !errors.Is(err, ErrJobNotFound) {
		log.Error().Err(err).Msg("job row not deleted after delivery")
	}
	log.Info().Int("summary_chars", len(summary)).Msg("summary delivered")
	metrics.StageOutcomesTotal.WithLabelValues(stageSummarization, string(OutcomeCompleted)).Inc()
	return Result{Outcome: OutcomeCompleted, JobID: name, Summary: summary}, nil
}

// ReportFailure puts an error card on the file behind key once the stage has
// given up, then drops the job row. Keys without a job row have nowhere to
// report to.
func (s *Summarizer) ReportFailure(ctx context.Context, key string, cause error) error {
	metrics.StageOutcomesTotal.WithLabelValues(stageSummarization, "failed").Inc()
	name, ok := model.JobNameFromKey(key)
	if !ok {
		return nil
	}
	job, err := s.jobs.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return nil
		}
		return fmt.Errorf("load job %s: %w", name, err)
	}
	s.log.Error().Err(cause).Str("job_id", name).Str("file_id", job.FileID).Msg("summarization abandoned")
	_, cardErr := s.cards.Error(ctx, cards.TargetFor(job.FileContext), cards.FileProcessingError, "Unable to summarize this file.")
	abandonJob(ctx, s.jobs, name, s.log)
	if cardErr != nil {
		return fmt.Errorf("%w: %w", ErrCardDelivery, cardErr)
	}
	return nil
}

func (s *Summarizer) skip(key, reason string) Result {
	s.log.Debug().Str("object_key", key).Str("reason", reason).Msg("object skipped")
	metrics.StageOutcomesTotal.WithLabelValues(stageSummarization, string(OutcomeSkipped)).Inc()
	return Result{Outcome: OutcomeSkipped, Reason: reason}
}

type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript *string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ExtractTranscript returns results.transcripts[0].transcript from a
// speech-to-text output document.
func ExtractTranscript(data []byte) (string, error) {
	var doc transcriptDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTranscript, err)
	}
	if len(doc.Results.Transcripts) == 0 || doc.Results.Transcripts[0].Transcript == nil {
		return "", fmt.Errorf("%w: no transcripts", ErrInvalidTranscript)
	}
	return strings.TrimSpace(*doc.Results.Transcripts[0].Transcript), nil
}
