package main

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/skillscribe/internal/bootstrap"
	"github.com/dharsanguruparan/skillscribe/internal/model"
	"github.com/dharsanguruparan/skillscribe/internal/queue"
	"github.com/dharsanguruparan/skillscribe/internal/transcribe"
)

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <object-key|job-id>",
		Short: "Queue a transcript for summarization again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			key := args[0]
			if _, ok := model.JobNameFromKey(key); !ok {
				key = model.TranscriptKey(key)
			}
			client := asynq.NewClient(bootstrap.RedisOpt(cfg))
			defer client.Close()
			tasks := queue.NewClient(client, cfg.TranscribeMaxRetry, cfg.SummarizeMaxRetry)
			if err := tasks.ReplayTranscript(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", key)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcription-status <job-id>",
		Short: "Ask the speech-to-text backend about a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			awsCfg, err := bootstrap.AWSConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			status, err := transcribe.NewAWSBackendFromConfig(awsCfg).Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s", status.JobName, status.State)
			if status.FailureReason != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\t%s", status.FailureReason)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
