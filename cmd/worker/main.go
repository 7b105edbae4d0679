package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/dharsanguruparan/skillscribe/internal/bootstrap"
	"github.com/dharsanguruparan/skillscribe/internal/config"
	"github.com/dharsanguruparan/skillscribe/internal/notify"
	"github.com/dharsanguruparan/skillscribe/internal/queue"
	"github.com/dharsanguruparan/skillscribe/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := bootstrap.NewLogger(cfg.LogLevel)

	stages, err := bootstrap.NewStages(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init stages")
	}
	defer stages.Close()

	if cfg.StorageNotifications == config.NotificationsListen {
		client := asynq.NewClient(bootstrap.RedisOpt(cfg))
		defer client.Close()
		relay := notify.NewRelay(stages.Blobs, queue.NewClient(client, cfg.TranscribeMaxRetry, cfg.SummarizeMaxRetry), logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("relay stopped")
			}
		}()
	}

	server := asynq.NewServer(bootstrap.RedisOpt(cfg), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Logger:      worker.NewAsynqLogger(logger),
	})
	processor := worker.NewProcessor(stages.Transcriber, stages.Summarizer, logger)

	if err := serve(ctx, server, processor.Handler()); err != nil {
		logger.Error().Err(err).Msg("worker stopped")
		stages.Close()
		os.Exit(1)
	}
	logger.Info().Msg("worker shut down")
}

type queueServer interface {
	Start(handler asynq.Handler) error
	Shutdown()
}

// serve runs the queue server until ctx is cancelled, then shuts it down once.
func serve(ctx context.Context, srv queueServer, handler asynq.Handler) error {
	if err := srv.Start(handler); err != nil {
		return err
	}
	<-ctx.Done()
	srv.Shutdown()
	return nil
}
