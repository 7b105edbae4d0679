// Package pipeline holds the two queue-driven stages: starting a transcription
// job for an invoked file, and summarizing the transcript once the backend has
// written it.
package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/skillscribe/internal/cards"
	"github.com/dharsanguruparan/skillscribe/internal/model"
)

// Error kinds returned by the stages. Callers classify with errors.Is.
var (
	ErrInvalidContext    = errors.New("invalid file context")
	ErrBackend           = errors.New("backend call failed")
	ErrJobStoreWrite     = errors.New("job store write failed")
	ErrJobNotFound       = model.ErrJobNotFound
	ErrInvalidTranscript = errors.New("invalid transcript")
	ErrCardDelivery      = errors.New("card delivery failed")
)

// Retryable reports whether a redelivery of the same task could succeed.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidContext),
		errors.Is(err, ErrJobNotFound),
		errors.Is(err, ErrInvalidTranscript):
		return false
	}
	return true
}

// JobStore persists job rows between the two stages.
type JobStore interface {
	Put(ctx context.Context, job model.Job) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
	Delete(ctx context.Context, jobID string) error
}

// FileLocator resolves a temporary download URL for a platform file.
type FileLocator interface {
	DownloadURL(ctx context.Context, token, fileID string) (string, error)
}

// BlobStore reads transcripts and stores summaries.
type BlobStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutText(ctx context.Context, key, text string) error
}

// CardWriter is the part of cards.Dispatcher the stages use.
type CardWriter interface {
	Error(ctx context.Context, t cards.Target, code cards.ErrorCode, message string) (*cards.Receipt, error)
	Result(ctx context.Context, t cards.Target, transcript, summary string) (*cards.Receipt, error)
	Clear(ctx context.Context, t cards.Target) error
}

// abandonJob drops the row of a job the pipeline has given up on, so its file
// tokens do not outlive the work. A row that is already gone is fine.
func abandonJob(ctx context.Context, jobs JobStore, jobID string, log zerolog.Logger) {
	if err := jobs.Delete(ctx, jobID); err != nil && !errors.Is(err, ErrJobNotFound) {
		log.Error().Err(err).Str("job_id", jobID).Msg("abandoned job row not deleted")
	}
}
