// Package processing runs the pipeline stages on an in-process worker pool so
// the whole service can run in one binary without Redis. Tasks are buffered
// on a channel and retried with a linear backoff like the queue would.
package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/skillscribe/internal/model"
	"github.com/dharsanguruparan/skillscribe/internal/pipeline"
	"github.com/dharsanguruparan/skillscribe/internal/queue"
)

// ErrQueueFull is returned when the buffer cannot take another task.
var ErrQueueFull = errors.New("processing queue full")

// Handler runs one stage for one task. final is true on the last attempt.
type Handler interface {
	Transcribe(ctx context.Context, fc model.FileContext, final bool) error
	Summarize(ctx context.Context, key string, final bool) error
}

type task struct {
	id      string
	fc      model.FileContext
	key     string
	attempt int
	max     int
}

// Pool consumes tasks with a fixed number of goroutines.
type Pool struct {
	handler         Handler
	queue           chan task
	workers         int
	transcribeRetry int
	summarizeRetry  int
	retryDelay      time.Duration
	log             zerolog.Logger

	mu      sync.Mutex
	pending map[string]bool
	wg      sync.WaitGroup
}

// New builds a Pool with queue capacity tied to worker count.
func New(handler Handler, workers, transcribeRetry, summarizeRetry int, logger zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		handler:         handler,
		queue:           make(chan task, workers*16),
		workers:         workers,
		transcribeRetry: transcribeRetry,
		summarizeRetry:  summarizeRetry,
		retryDelay:      2 * time.Second,
		log:             logger.With().Str("component", "pool").Logger(),
		pending:         make(map[string]bool),
	}
}

// Start launches worker goroutines that stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// EnqueueTranscription queues fc unless the same job is already pending.
func (p *Pool) EnqueueTranscription(ctx context.Context, fc model.FileContext) error {
	return p.submit(task{id: queue.TranscriptionTask + ":" + model.JobName(fc), fc: fc, max: p.transcribeRetry})
}

// EnqueueTranscriptReady queues objectKey unless it is already pending.
func (p *Pool) EnqueueTranscriptReady(ctx context.Context, objectKey string) error {
	return p.submit(task{id: queue.TranscriptReadyTask + ":" + objectKey, key: objectKey, max: p.summarizeRetry})
}

func (p *Pool) submit(t task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending[t.id] {
		return nil
	}
	select {
	case p.queue <- t:
		p.pending[t.id] = true
		return nil
	default:
		p.log.Warn().Str("task", t.id).Msg("processor queue full, dropping task")
		return ErrQueueFull
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.queue:
			p.process(ctx, t)
		}
	}
}

func (p *Pool) process(ctx context.Context, t task) {
	final := t.attempt >= t.max
	var err error
	if t.key != "" {
		err = p.handler.Summarize(ctx, t.key, final)
	} else {
		err = p.handler.Transcribe(ctx, t.fc, final)
	}
	if err == nil || final || !pipeline.Retryable(err) {
		p.done(t.id)
		return
	}

	t.attempt++
	delay := p.retryDelay * time.Duration(t.attempt)
	p.log.Debug().Str("task", t.id).Int("attempt", t.attempt).Dur("delay", delay).Msg("retrying task")
	time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			p.done(t.id)
			return
		}
		select {
		case p.queue <- t:
		default:
			p.log.Warn().Str("task", t.id).Msg("processor queue full, dropping retry")
			p.done(t.id)
		}
	})
}

func (p *Pool) done(id string) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}
