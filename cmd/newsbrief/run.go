package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"newsbrief/internal/analyze"
	"newsbrief/internal/config"
	"newsbrief/internal/deliver"
	"newsbrief/internal/fetch"
	"newsbrief/internal/pipeline"
	"newsbrief/internal/report"
	"newsbrief/internal/scheduler"
	"newsbrief/internal/sources"
	"newsbrief/internal/storage"
)

type runFlags struct {
	selected  []string
	limit     int
	sendEmail bool
	dryRun    bool
	textOnly  bool
	to        string
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: fetch, analyze, render, deliver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runPipeline(cmd, cfg, flags)
		},
	}

	addRunFlags(cmd, &flags)
	return cmd
}

func addRunFlags(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().StringArrayVarP(&flags.selected, "source", "s", nil, "run only the named source (repeatable)")
	cmd.Flags().IntVarP(&flags.limit, "limit", "l", 0, "items per source (default from config)")
	cmd.Flags().BoolVarP(&flags.sendEmail, "send-email", "e", false, "deliver the report by email")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "d", false, "generate the report but never deliver")
	cmd.Flags().BoolVar(&flags.textOnly, "text-only", false, "skip the HTML format and render plain text")
	cmd.Flags().StringVar(&flags.to, "to", "", "override the configured recipient")
}

func runPipeline(cmd *cobra.Command, cfg *config.Config, flags runFlags) error {
	driver, cleanup, err := buildDriver(cfg, flags)
	if err != nil {
		return err
	}
	defer cleanup()

	limit := flags.limit
	if limit == 0 {
		limit = cfg.Fetch.Limit
	}

	opts := pipeline.Options{
		Sources:     flags.selected,
		Limit:       limit,
		Deliver:     flags.sendEmail && !flags.dryRun,
		Destination: flags.to,
		TextOnly:    flags.textOnly,
	}

	summary, err := driver.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	printSummary(cmd, summary)
	return nil
}

// buildDriver assembles the pipeline from configuration. The analyzer
// and archive are optional enhancements: when they can't be built the
// run proceeds without them.
func buildDriver(cfg *config.Config, flags runFlags) (*pipeline.Driver, func(), error) {
	registry, err := sources.Bootstrap(cfg)
	if err != nil {
		return nil, nil, err
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return nil, nil, err
	}

	var analyzer pipeline.Analyzer
	if a, err := analyze.New(cfg.AI); err != nil {
		slog.Warn("analyzer unavailable, report will carry raw items", "error", err)
	} else {
		analyzer = a
	}

	var deliverer pipeline.Deliverer
	if flags.sendEmail && !flags.dryRun {
		sender, err := deliver.NewEmailSender(cfg.Email)
		if err != nil {
			return nil, nil, fmt.Errorf("email delivery requested but not configured: %w", err)
		}
		deliverer = sender
	}

	cleanup := func() {}
	var archive storage.Archive
	if db, err := storage.Open(cfg.Storage.Path); err != nil {
		slog.Warn("run archive unavailable", "error", err)
	} else {
		archive = db
		cleanup = func() { db.Close() }
	}

	driver := pipeline.NewDriver(pipeline.DriverConfig{
		Registry:     registry,
		Orchestrator: fetch.NewOrchestrator(cfg.Fetch.TimeoutDuration(), slog.Default()),
		Analyzer:     analyzer,
		Renderer:     renderer,
		Deliverer:    deliverer,
		Archive:      archive,
		OutputDir:    cfg.Output.Dir,
		Logger:       slog.Default(),
	})

	return driver, cleanup, nil
}

func printSummary(cmd *cobra.Command, summary *pipeline.Summary) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "run finished: %s (%s)\n", summary.State,
		summary.FinishedAt.Sub(summary.StartedAt).Round(10*time.Millisecond))
	fmt.Fprintf(out, "items: %d, sources succeeded: %d, failed: %d\n",
		len(summary.Report.Items), len(summary.Report.Succeeded), len(summary.Report.Failed))

	for _, f := range summary.Report.Failed {
		fmt.Fprintf(out, "  source %s failed: %s (%s)\n", f.Source, f.Message, f.Kind)
	}
	for _, se := range summary.StageErrors {
		fmt.Fprintf(out, "  stage %s failed: %v\n", se.Stage, se.Err)
	}

	if summary.Analysis != nil && summary.Analysis.Summary != "" {
		fmt.Fprintf(out, "\nhighlights: %s\n", summary.Analysis.Summary)
	}
	if summary.ArtifactPath != "" {
		fmt.Fprintf(out, "\nreport: %s\n", summary.ArtifactPath)
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			archive, err := storage.Open(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer archive.Close()

			runs, err := archive.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tSTATE\tITEMS\tOK\tFAILED\tARTIFACT")
			for _, run := range runs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
					run.ID, run.StartedAt.Format("2006-01-02 15:04"), run.State,
					run.ItemCount, len(run.Succeeded), len(run.Failed), run.ArtifactPath)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of runs to show")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var (
		flags runFlags
		spec  string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline periodically on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if spec == "" {
				spec = cfg.Schedule.Cron
			}

			job := func() {
				if err := runPipeline(cmd, cfg, flags); err != nil {
					slog.Error("scheduled run failed", "error", err)
				}
			}

			sched, err := scheduler.New(spec, job, slog.Default())
			if err != nil {
				return fmt.Errorf("invalid cron spec %q: %w", spec, err)
			}

			slog.Info("scheduling pipeline runs", "cron", spec)
			sched.Run(cmd.Context())
			return nil
		},
	}

	addRunFlags(cmd, &flags)
	cmd.Flags().StringVar(&spec, "cron", "", "cron spec (default from config)")
	return cmd
}
