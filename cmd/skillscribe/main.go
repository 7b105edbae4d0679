package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/skillscribe/internal/config"
	"github.com/dharsanguruparan/skillscribe/internal/model"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "skillscribe: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skillscribe",
		Short: "skillscribe operator CLI",
		Long: `skillscribe inspects and repairs the meeting summary pipeline: it creates the job
table, looks at pending jobs, re-queues transcripts and can run every stage in one process.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newSchemaCmd(),
		newJobsCmd(),
		newReplayCmd(),
		newStatusCmd(),
		newRunCmd(),
	)
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// printJob writes job as indented JSON with the file tokens masked.
func printJob(w io.Writer, job model.Job) error {
	job.FileReadToken = mask(job.FileReadToken)
	job.FileWriteToken = mask(job.FileWriteToken)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(job)
}

func mask(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
