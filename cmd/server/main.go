package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/dharsanguruparan/skillscribe/internal/api"
	"github.com/dharsanguruparan/skillscribe/internal/bootstrap"
	"github.com/dharsanguruparan/skillscribe/internal/config"
	"github.com/dharsanguruparan/skillscribe/internal/intake"
	"github.com/dharsanguruparan/skillscribe/internal/queue"
	"github.com/dharsanguruparan/skillscribe/internal/signing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := bootstrap.NewLogger(cfg.LogLevel)

	client := asynq.NewClient(bootstrap.RedisOpt(cfg))
	defer client.Close()
	tasks := queue.NewClient(client, cfg.TranscribeMaxRetry, cfg.SummarizeMaxRetry)

	_, dispatcher := bootstrap.Cards(cfg)
	verifier := signing.NewVerifier(cfg.BoxPrimaryKey, cfg.BoxSecondaryKey, cfg.SignatureMaxAge)
	svc := intake.NewService(verifier, tasks, dispatcher, logger)

	var events api.TranscriptEnqueuer
	if cfg.StorageNotifications == config.NotificationsHTTP {
		events = tasks
	}
	srv := api.New(cfg, svc, events, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
