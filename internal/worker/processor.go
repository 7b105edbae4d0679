package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/skillscribe/internal/model"
	"github.com/dharsanguruparan/skillscribe/internal/pipeline"
	"github.com/dharsanguruparan/skillscribe/internal/queue"
)

// TranscriptionStage is the transcription orchestrator.
type TranscriptionStage interface {
	Process(ctx context.Context, fc model.FileContext) error
	ReportFailure(ctx context.Context, fc model.FileContext, cause error) error
}

// SummarizationStage is the summarization orchestrator.
type SummarizationStage interface {
	Process(ctx context.Context, key string) (pipeline.Result, error)
	ReportFailure(ctx context.Context, key string, cause error) error
}

// Processor runs the pipeline stages for queued tasks. It is plugged into the
// asynq worker loop and into the in-process pool.
type Processor struct {
	transcriber TranscriptionStage
	summarizer  SummarizationStage
	log         zerolog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(transcriber TranscriptionStage, summarizer SummarizationStage, logger zerolog.Logger) *Processor {
	return &Processor{
		transcriber: transcriber,
		summarizer:  summarizer,
		log:         logger.With().Str("component", "worker").Logger(),
	}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TranscriptionTask, p.handleTranscription)
	mux.HandleFunc(queue.TranscriptReadyTask, p.handleTranscriptReady)
	return mux
}

// Transcribe runs the transcription stage. final marks the last delivery the
// queue will make.
func (p *Processor) Transcribe(ctx context.Context, fc model.FileContext, final bool) error {
	err := p.transcriber.Process(ctx, fc)
	if err == nil {
		return nil
	}
	return p.failure(err, final, func(cause error) error {
		return p.transcriber.ReportFailure(ctx, fc, cause)
	}, map[string]any{"request_id": fc.RequestID, "file_id": fc.FileID})
}

// Summarize runs the summarization stage for an object key.
func (p *Processor) Summarize(ctx context.Context, key string, final bool) error {
	res, err := p.summarizer.Process(ctx, key)
	if err == nil {
		p.log.Debug().Str("object_key", key).Str("outcome", string(res.Outcome)).Msg("transcript handled")
		return nil
	}
	return p.failure(err, final, func(cause error) error {
		return p.summarizer.ReportFailure(ctx, key, cause)
	}, map[string]any{"object_key": key})
}

// failure logs err, reports it on the file once no retry is left and marks
// non-retryable errors so the queue stops redelivering.
func (p *Processor) failure(err error, final bool, report func(error) error, fields map[string]any) error {
	retryable := pipeline.Retryable(err)
	p.log.Error().Err(err).Fields(fields).Bool("retryable", retryable).Bool("final", final).Msg("task failed")
	if !retryable || final {
		if rerr := report(err); rerr != nil {
			p.log.Error().Err(rerr).Fields(fields).Msg("failure report not delivered")
		}
	}
	if !retryable {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return err
}

func (p *Processor) handleTranscription(ctx context.Context, task *asynq.Task) error {
	fc, err := queue.DecodeFileContext(task.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return p.Transcribe(ctx, fc, finalAttempt(ctx))
}

func (p *Processor) handleTranscriptReady(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeTranscriptReady(task.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return p.Summarize(ctx, payload.ObjectKey, finalAttempt(ctx))
}

// finalAttempt reports whether this delivery is the last one asynq will make.
func finalAttempt(ctx context.Context) bool {
	retried, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retried >= maxRetry
}

// IsSkipRetry reports whether err was marked as not worth redelivering.
func IsSkipRetry(err error) bool {
	return errors.Is(err, asynq.SkipRetry)
}
