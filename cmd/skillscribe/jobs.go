package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/skillscribe/internal/bootstrap"
	"github.com/dharsanguruparan/skillscribe/internal/config"
	"github.com/dharsanguruparan/skillscribe/internal/database"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the transcription_jobs table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JobStore != config.JobStorePostgres {
				return fmt.Errorf("JOB_STORE is %q; schema only applies to postgres", cfg.JobStore)
			}
			pool, err := database.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.EnsureSchema(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect pending transcription jobs",
	}
	cmd.AddCommand(newJobsListCmd(), newJobsGetCmd(), newJobsDeleteCmd())
	return cmd
}

func openJobs(cmd *cobra.Command) (bootstrap.JobStore, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return bootstrap.OpenJobStore(cmd.Context(), cfg)
}

func newJobsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs still waiting for a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, closeFn, err := openJobs(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			rows, err := jobs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JOB\tFILE\tREQUEST\tAGE")
			for _, job := range rows {
				age := time.Since(job.CreatedAt).Truncate(time.Second)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", job.JobID, job.FileName, job.RequestID, age)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to show")
	return cmd
}

func newJobsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show one job row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, closeFn, err := openJobs(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			job, err := jobs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJob(cmd.OutOrStdout(), *job)
		},
	}
}

func newJobsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, closeFn, err := openJobs(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := jobs.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
