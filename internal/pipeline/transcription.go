package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/skillscribe/internal/cards"
	"github.com/dharsanguruparan/skillscribe/internal/media"
	"github.com/dharsanguruparan/skillscribe/internal/metrics"
	"github.com/dharsanguruparan/skillscribe/internal/model"
	"github.com/dharsanguruparan/skillscribe/internal/transcribe"
)

const stageTranscription = "transcription"

// TranscriberConfig holds where transcripts go and how audio is read.
type TranscriberConfig struct {
	Bucket       string
	LanguageCode string
}

// Transcriber starts a speech-to-text job for a queued file context.
type Transcriber struct {
	files   FileLocator
	jobs    JobStore
	backend transcribe.Backend
	cards   CardWriter
	cfg     TranscriberConfig
	log     zerolog.Logger
}

// NewTranscriber wires the transcription stage.
func NewTranscriber(files FileLocator, jobs JobStore, backend transcribe.Backend, cw CardWriter, cfg TranscriberConfig, logger zerolog.Logger) *Transcriber {
	return &Transcriber{
		files:   files,
		jobs:    jobs,
		backend: backend,
		cards:   cw,
		cfg:     cfg,
		log:     logger.With().Str("component", stageTranscription).Logger(),
	}
}

// Process resolves the media URL, records the job row and submits the job.
// The row is written before submission so the transcript notification always
// finds it.
func (t *Transcriber) Process(ctx context.Context, fc model.FileContext) error {
	if err := fc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidContext, err)
	}
	format, ok := media.Lookup(fc.FileName)
	if !ok {
		return fmt.Errorf("%w: unsupported media %q", ErrInvalidContext, fc.FileName)
	}
	log := t.log.With().Str("request_id", fc.RequestID).Str("file_id", fc.FileID).Logger()

	start := time.Now()
	uri, err := t.files.DownloadURL(ctx, fc.FileReadToken, fc.FileID)
	metrics.ObserveBackend("box", "download_url", start)
	if err != nil {
		return fmt.Errorf("%w: resolve download url: %w", ErrBackend, err)
	}

	name := model.JobName(fc)
	log = log.With().Str("job_id", name).Logger()
	if err := t.jobs.Put(ctx, model.NewJob(fc, name, uri)); err != nil {
		log.Error().Err(err).Msg("job row write failed")
		return fmt.Errorf("%w: %w", ErrJobStoreWrite, err)
	}

	req := transcribe.Request{
		JobName:      name,
		MediaURI:     uri,
		MediaFormat:  format.MediaFormat,
		LanguageCode: t.cfg.LanguageCode,
		OutputBucket: t.cfg.Bucket,
		OutputKey:    model.TranscriptKey(name),
	}
	start = time.Now()
	err = t.backend.Start(ctx, req)
	metrics.ObserveBackend("transcribe", "start", start)
	switch {
	case errors.Is(err, transcribe.ErrJobExists):
		status, serr := t.backend.Status(ctx, name)
		if serr != nil {
			log.Warn().Err(serr).Msg("transcription job already submitted; status unavailable")
		} else {
			log.Info().Str("state", status.State).Str("failure_reason", status.FailureReason).
				Msg("transcription job already submitted")
		}
		metrics.StageOutcomesTotal.WithLabelValues(stageTranscription, "duplicate").Inc()
		return nil
	case err != nil:
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}

	log.Info().Str("output_key", req.OutputKey).Str("media_format", req.MediaFormat).Msg("transcription job started")
	metrics.StageOutcomesTotal.WithLabelValues(stageTranscription, "started").Inc()
	return nil
}

// ReportFailure puts an error card on the file once the stage has given up and
// drops the job row written before submission. Rows only exist for valid
// contexts.
func (t *Transcriber) ReportFailure(ctx context.Context, fc model.FileContext, cause error) error {
	metrics.StageOutcomesTotal.WithLabelValues(stageTranscription, "failed").Inc()
	if fc.Validate() == nil {
		defer abandonJob(ctx, t.jobs, model.JobName(fc), t.log)
	}
	if fc.FileID == "" || fc.FileWriteToken == "" {
		return nil
	}
	t.log.Error().Err(cause).Str("request_id", fc.RequestID).Str("file_id", fc.FileID).Msg("transcription abandoned")
	if _, err := t.cards.Error(ctx, cards.TargetFor(fc), cards.FileProcessingError, "Unable to transcribe this file."); err != nil {
		return fmt.Errorf("%w: %w", ErrCardDelivery, err)
	}
	return nil
}
