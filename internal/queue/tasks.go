package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/skillscribe/internal/model"
)

const (
	// TranscriptionTask starts a speech-to-text job for one invocation.
	TranscriptionTask = "transcription:start"
	// TranscriptReadyTask summarizes a transcript the backend wrote.
	TranscriptReadyTask = "transcript:ready"

	// Retention keeps finished task ids around so duplicate deliveries of
	// the same webhook or notification are rejected as conflicts.
	Retention = 24 * time.Hour

	DefaultTranscribeRetry = 5
	DefaultSummarizeRetry  = 2
)

// TranscriptReadyPayload names the transcript object to summarize.
type TranscriptReadyPayload struct {
	ObjectKey string `json:"object_key"`
}

// NewTranscriptionTask builds the task for fc, keyed by its job name.
func NewTranscriptionTask(fc model.FileContext, maxRetry int) (*asynq.Task, error) {
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TranscriptionTask, data,
		asynq.TaskID(TranscriptionTask+":"+model.JobName(fc)),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(Retention),
	), nil
}

// NewTranscriptReadyTask builds the task for an object key. When dedupe is
// set the key becomes the task id.
func NewTranscriptReadyTask(objectKey string, maxRetry int, dedupe bool) (*asynq.Task, error) {
	data, err := json.Marshal(TranscriptReadyPayload{ObjectKey: objectKey})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	opts := []asynq.Option{asynq.MaxRetry(maxRetry)}
	if dedupe {
		opts = append(opts, asynq.TaskID(TranscriptReadyTask+":"+objectKey), asynq.Retention(Retention))
	}
	return asynq.NewTask(TranscriptReadyTask, data, opts...), nil
}

// DecodeFileContext reads a transcription task payload.
func DecodeFileContext(payload []byte) (model.FileContext, error) {
	var fc model.FileContext
	if err := json.Unmarshal(payload, &fc); err != nil {
		return fc, fmt.Errorf("decode transcription payload: %w", err)
	}
	return fc, nil
}

// DecodeTranscriptReady reads a transcript:ready task payload.
func DecodeTranscriptReady(payload []byte) (TranscriptReadyPayload, error) {
	var p TranscriptReadyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, fmt.Errorf("decode transcript payload: %w", err)
	}
	if p.ObjectKey == "" {
		return p, errors.New("decode transcript payload: empty object_key")
	}
	return p, nil
}

// Client enqueues pipeline tasks on Redis.
type Client struct {
	client          *asynq.Client
	transcribeRetry int
	summarizeRetry  int
}

// NewClient wraps an asynq client with per-stage retry limits.
func NewClient(client *asynq.Client, transcribeRetry, summarizeRetry int) *Client {
	return &Client{client: client, transcribeRetry: transcribeRetry, summarizeRetry: summarizeRetry}
}

// EnqueueTranscription queues fc. A duplicate of a task still retained
// counts as queued.
func (c *Client) EnqueueTranscription(ctx context.Context, fc model.FileContext) error {
	task, err := NewTranscriptionTask(fc, c.transcribeRetry)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// EnqueueTranscriptReady queues the summarization of objectKey once.
func (c *Client) EnqueueTranscriptReady(ctx context.Context, objectKey string) error {
	task, err := NewTranscriptReadyTask(objectKey, c.summarizeRetry, true)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// ReplayTranscript queues objectKey again even if it was processed recently.
func (c *Client) ReplayTranscript(ctx context.Context, objectKey string) error {
	task, err := NewTranscriptReadyTask(objectKey, c.summarizeRetry, false)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) error {
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue %s task: %w", task.Type(), err)
	}
	return nil
}
