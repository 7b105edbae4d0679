// Package notify relays blob store "object created" notifications for
// transcripts into the summarization queue.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/skillscribe/internal/metrics"
	"github.com/dharsanguruparan/skillscribe/internal/model"
	"github.com/dharsanguruparan/skillscribe/internal/s3storage"
)

const defaultReconnectDelay = 5 * time.Second

// Source streams created object keys.
type Source interface {
	ListenObjectCreated(ctx context.Context, prefix, suffix string) <-chan s3storage.ObjectEvent
}

// Enqueuer queues one transcript for summarization.
type Enqueuer interface {
	EnqueueTranscriptReady(ctx context.Context, objectKey string) error
}

// Relay listens for transcripts and enqueues them.
type Relay struct {
	source         Source
	queue          Enqueuer
	log            zerolog.Logger
	reconnectDelay time.Duration
}

// NewRelay constructs a Relay.
func NewRelay(source Source, queue Enqueuer, logger zerolog.Logger) *Relay {
	return &Relay{
		source:         source,
		queue:          queue,
		log:            logger.With().Str("component", "relay").Logger(),
		reconnectDelay: defaultReconnectDelay,
	}
}

// Run blocks until ctx is cancelled, re-subscribing whenever the
// notification stream ends.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Info().Str("prefix", model.TranscriptPrefix).Msg("listening for transcripts")
	for {
		r.consume(ctx, r.source.ListenObjectCreated(ctx, model.TranscriptPrefix, ".json"))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.reconnectDelay):
			r.log.Warn().Msg("notification stream closed; reconnecting")
		}
	}
}

func (r *Relay) consume(ctx context.Context, events <-chan s3storage.ObjectEvent) {
	for ev := range events {
		if ev.Err != nil {
			r.log.Error().Err(ev.Err).Msg("notification error")
			metrics.NotificationsTotal.WithLabelValues("listen", "invalid").Inc()
			continue
		}
		if ev.Key == model.PermissionCheckKey {
			metrics.NotificationsTotal.WithLabelValues("listen", "ignored").Inc()
			continue
		}
		if err := r.queue.EnqueueTranscriptReady(ctx, ev.Key); err != nil {
			r.log.Error().Err(err).Str("object_key", ev.Key).Msg("enqueue transcript failed")
			metrics.NotificationsTotal.WithLabelValues("listen", "failed").Inc()
			continue
		}
		r.log.Debug().Str("object_key", ev.Key).Msg("transcript queued")
		metrics.NotificationsTotal.WithLabelValues("listen", "queued").Inc()
	}
}
