// Command newsbrief aggregates items from the configured news sources,
// analyzes them with an LLM, renders a digest report, and delivers it
// by email. One invocation is one pipeline run; use `schedule` (or an
// external job runner) for periodic execution.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"newsbrief/internal/config"
	"newsbrief/internal/fetch"
	"newsbrief/internal/news"
	"newsbrief/internal/report"
	"newsbrief/internal/sources"
)

const defaultConfigPath = "newsbrief.toml"

var (
	configPath string
	verbose    bool
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nreceived signal: %v, shutting down\n", sig)
		cancel()
	}()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "newsbrief",
		Short: "Collect tech news, analyze it, and deliver a digest",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(verbose)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSourcesCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newScheduleCmd())

	return root
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig falls back to built-in defaults when the default config
// path is absent; an explicitly passed path must exist.
func loadConfig() (*config.Config, error) {
	if configPath == defaultConfigPath {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			slog.Debug("no config file found, using defaults")
			return config.Default(), nil
		}
	}
	return config.Load(configPath)
}

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List all registered news sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			registry, err := sources.Bootstrap(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tENABLED\tDESCRIPTION")
			for _, desc := range registry.List(sources.All) {
				enabled := "yes"
				if !desc.Enabled {
					enabled = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", desc.Name, desc.Kind, enabled, desc.Description)
			}
			return w.Flush()
		},
	}
}

func newFetchCmd() *cobra.Command {
	var (
		selected []string
		limit    int
		output   string
		feedOut  string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch items from the sources without running the full pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if limit == 0 {
				limit = cfg.Fetch.Limit
			}

			registry, err := sources.Bootstrap(cfg)
			if err != nil {
				return err
			}

			var srcs []sources.Source
			if len(selected) > 0 {
				srcs, err = registry.Resolve(selected)
				if err != nil {
					return err
				}
			} else {
				srcs = registry.Sources(sources.Enabled)
			}

			orchestrator := fetch.NewOrchestrator(cfg.Fetch.TimeoutDuration(), slog.Default())
			rep := orchestrator.Run(cmd.Context(), srcs, limit)

			printReport(cmd, rep)

			if output != "" {
				data, err := json.MarshalIndent(rep.Items, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode items: %w", err)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nitems written to %s\n", output)
			}

			if feedOut != "" {
				renderer, err := report.NewRenderer()
				if err != nil {
					return err
				}
				artifact, err := renderer.RenderFeed(rep.Items)
				if err != nil {
					return err
				}
				if err := os.WriteFile(feedOut, artifact.Data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", feedOut, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "feed written to %s\n", feedOut)
			}

			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&selected, "source", "s", nil, "fetch only the named source (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "items per source (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write fetched items to a JSON file")
	cmd.Flags().StringVar(&feedOut, "feed", "", "write fetched items to an RSS file")

	return cmd
}

func printReport(cmd *cobra.Command, rep *news.RunReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "fetched %d items\n\n", len(rep.Items))

	counts := make(map[string]int)
	for _, item := range rep.Items {
		counts[item.Source]++
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tITEMS")
	for _, name := range rep.Succeeded {
		fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
	}
	w.Flush()

	if len(rep.Failed) > 0 {
		fmt.Fprintln(out, "\nfailures:")
		for _, f := range rep.Failed {
			fmt.Fprintf(out, "  %s: %s (%s, %s)\n", f.Source, f.Message, f.Kind, f.Elapsed.Round(time.Millisecond))
		}
	}
}
