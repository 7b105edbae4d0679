package main

import (
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/skillscribe/internal/api"
	"github.com/dharsanguruparan/skillscribe/internal/bootstrap"
	"github.com/dharsanguruparan/skillscribe/internal/config"
	"github.com/dharsanguruparan/skillscribe/internal/intake"
	"github.com/dharsanguruparan/skillscribe/internal/notify"
	"github.com/dharsanguruparan/skillscribe/internal/processing"
	"github.com/dharsanguruparan/skillscribe/internal/signing"
	"github.com/dharsanguruparan/skillscribe/internal/worker"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run intake and both stages in one process without Redis",
		Long: `run serves the webhook and runs both pipeline stages on an in-process worker pool.
Set JOB_STORE=memory to keep job rows in memory as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := bootstrap.NewLogger(cfg.LogLevel)

			stages, err := bootstrap.NewStages(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer stages.Close()

			processor := worker.NewProcessor(stages.Transcriber, stages.Summarizer, logger)
			pool := processing.New(processor, cfg.WorkerConcurrency, cfg.TranscribeMaxRetry, cfg.SummarizeMaxRetry, logger)
			pool.Start(ctx)

			var events api.TranscriptEnqueuer = pool
			if cfg.StorageNotifications == config.NotificationsListen {
				events = nil
				relay := notify.NewRelay(stages.Blobs, pool, logger)
				go func() {
					if err := relay.Run(ctx); err != nil {
						logger.Error().Err(err).Msg("relay stopped")
					}
				}()
			}

			verifier := signing.NewVerifier(cfg.BoxPrimaryKey, cfg.BoxSecondaryKey, cfg.SignatureMaxAge)
			svc := intake.NewService(verifier, pool, stages.Cards, logger)
			err = api.New(cfg, svc, events, logger).Run(ctx)
			pool.Wait()
			return err
		},
	}
}
