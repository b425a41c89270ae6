// Package pipeline sequences fetch, analyze, render, and deliver for
// one run, applying fallback policy when an optional stage fails. The
// fallback ladder is an explicit state machine, so the terminal state
// always reflects what actually happened rather than "an error
// occurred somewhere".
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"newsbrief/internal/analyze"
	"newsbrief/internal/fetch"
	"newsbrief/internal/news"
	"newsbrief/internal/report"
	"newsbrief/internal/sources"
	"newsbrief/internal/storage"
)

// State is the pipeline's position in one run.
type State string

const (
	StateFetching   State = "fetching"
	StateAnalyzing  State = "analyzing"
	StateRendering  State = "rendering"
	StateDelivering State = "delivering"
	StateDone       State = "done"

	// StatePartiallyCompleted is the alternate terminal: the run
	// produced output but at least one non-optional step failed.
	StatePartiallyCompleted State = "partially_completed"
)

// Analyzer consumes the deduplicated item sequence; failure is
// non-fatal and falls back to rendering raw items.
type Analyzer interface {
	Analyze(ctx context.Context, items []news.Item) (*analyze.Analysis, error)
}

// Renderer produces the report artifact in the requested format.
type Renderer interface {
	Render(items []news.Item, analysis *analyze.Analysis, format report.Format) (*report.Artifact, error)
}

// Deliverer performs the one-shot send of a rendered artifact.
type Deliverer interface {
	Deliver(ctx context.Context, artifact *report.Artifact, dest string) error
}

// Options configure one run.
type Options struct {
	// Sources selects adapters by name; nil means all enabled sources.
	// Unknown names fail the run before any stage starts.
	Sources []string

	// Limit is the per-source item cap.
	Limit int

	// Deliver enables the delivery stage.
	Deliver bool

	// Destination overrides the configured delivery recipient.
	Destination string

	// TextOnly skips the HTML primary format and renders text directly.
	TextOnly bool
}

// Summary is what one run produced, whatever its terminal state.
type Summary struct {
	State        State
	Report       *news.RunReport
	Analysis     *analyze.Analysis
	Artifact     *report.Artifact
	ArtifactPath string
	StageErrors  []*news.StageError
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Driver wires the stages together.
type Driver struct {
	registry     *sources.Registry
	orchestrator *fetch.Orchestrator
	analyzer     Analyzer
	renderer     Renderer
	deliverer    Deliverer
	archive      storage.Archive
	outputDir    string
	logger       *slog.Logger
}

// DriverConfig collects the driver's collaborators. Analyzer,
// Deliverer, and Archive may be nil: a nil analyzer skips analysis, a
// nil deliverer makes the delivery stage fail as unconfigured, a nil
// archive disables run history.
type DriverConfig struct {
	Registry     *sources.Registry
	Orchestrator *fetch.Orchestrator
	Analyzer     Analyzer
	Renderer     Renderer
	Deliverer    Deliverer
	Archive      storage.Archive
	OutputDir    string
	Logger       *slog.Logger
}

func NewDriver(cfg DriverConfig) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		registry:     cfg.Registry,
		orchestrator: cfg.Orchestrator,
		analyzer:     cfg.Analyzer,
		renderer:     cfg.Renderer,
		deliverer:    cfg.Deliverer,
		archive:      cfg.Archive,
		outputDir:    cfg.OutputDir,
		logger:       logger,
	}
}

// Run executes one pipeline run. The only error it returns is a
// configuration failure detected before any stage starts (an unknown
// source selection); everything after that is recorded on the summary.
func (d *Driver) Run(ctx context.Context, opts Options) (*Summary, error) {
	srcs, err := d.selectSources(opts.Sources)
	if err != nil {
		return nil, err
	}

	summary := &Summary{StartedAt: time.Now()}
	defer func() {
		summary.FinishedAt = time.Now()
		d.record(ctx, summary)
	}()

	// Fetching is never fatal: a run with zero successful sources
	// still proceeds with zero items.
	summary.State = StateFetching
	summary.Report = d.orchestrator.Run(ctx, srcs, opts.Limit)
	d.logger.Info("fetch complete",
		"items", len(summary.Report.Items),
		"succeeded", len(summary.Report.Succeeded),
		"failed", len(summary.Report.Failed))

	summary.State = StateAnalyzing
	if d.analyzer != nil {
		analysis, err := d.analyzer.Analyze(ctx, summary.Report.Items)
		if err != nil {
			d.logger.Warn("analysis failed, rendering raw items", "error", err)
			summary.StageErrors = append(summary.StageErrors, &news.StageError{Stage: news.StageAnalyze, Err: err})
		} else {
			summary.Analysis = analysis
		}
	}

	summary.State = StateRendering
	if !d.render(summary, opts) {
		summary.State = StatePartiallyCompleted
		d.logger.Error("all render formats failed, skipping delivery")
		return summary, nil
	}
	d.preserveArtifact(summary)

	if opts.Deliver {
		summary.State = StateDelivering
		if err := d.deliver(ctx, summary.Artifact, opts.Destination); err != nil {
			d.logger.Error("delivery failed, artifact preserved locally",
				"error", err, "artifact", summary.ArtifactPath)
			summary.StageErrors = append(summary.StageErrors, &news.StageError{Stage: news.StageDeliver, Err: err})
			summary.State = StatePartiallyCompleted
			return summary, nil
		}
	}

	summary.State = StateDone
	return summary, nil
}

func (d *Driver) selectSources(names []string) ([]sources.Source, error) {
	if names == nil {
		return d.registry.Sources(sources.Enabled), nil
	}
	return d.registry.Resolve(names)
}

// render walks the format ladder: primary first, then the guaranteed
// fallback. Returns false only when every format failed.
func (d *Driver) render(summary *Summary, opts Options) bool {
	formats := []report.Format{report.FormatHTML, report.FormatText}
	if opts.TextOnly {
		formats = []report.Format{report.FormatText}
	}

	for _, format := range formats {
		artifact, err := d.renderer.Render(summary.Report.Items, summary.Analysis, format)
		if err != nil {
			d.logger.Warn("render failed", "format", format, "error", err)
			summary.StageErrors = append(summary.StageErrors, &news.StageError{Stage: news.StageRender, Err: err})
			continue
		}
		summary.Artifact = artifact
		return true
	}
	return false
}

// preserveArtifact writes the rendered report under the output
// directory before delivery is attempted, so a human can recover it
// even when automated delivery fails. A write failure is logged, not
// fatal: the bytes stay on the summary either way.
func (d *Driver) preserveArtifact(summary *Summary) {
	if d.outputDir == "" || summary.Artifact == nil {
		return
	}

	if err := os.MkdirAll(d.outputDir, 0o755); err != nil {
		d.logger.Warn("failed to create output directory", "dir", d.outputDir, "error", err)
		return
	}

	path := filepath.Join(d.outputDir, summary.Artifact.Name)
	if err := os.WriteFile(path, summary.Artifact.Data, 0o644); err != nil {
		d.logger.Warn("failed to write artifact", "path", path, "error", err)
		return
	}

	summary.ArtifactPath = path
	d.logger.Info("artifact written", "path", path)
}

func (d *Driver) deliver(ctx context.Context, artifact *report.Artifact, dest string) error {
	if d.deliverer == nil {
		return fmt.Errorf("no deliverer configured")
	}
	return d.deliverer.Deliver(ctx, artifact, dest)
}

// record archives the run. Archive failures are logged only; history
// is a convenience, not a correctness requirement.
func (d *Driver) record(ctx context.Context, summary *Summary) {
	if d.archive == nil || summary.Report == nil {
		return
	}

	if err := d.archive.SaveItems(ctx, summary.Report.Items); err != nil {
		d.logger.Warn("failed to archive items", "error", err)
	}

	_, err := d.archive.SaveRun(ctx, storage.RunRecord{
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
		State:        string(summary.State),
		ItemCount:    len(summary.Report.Items),
		Succeeded:    summary.Report.Succeeded,
		Failed:       summary.Report.Failed,
		ArtifactPath: summary.ArtifactPath,
	})
	if err != nil {
		d.logger.Warn("failed to archive run", "error", err)
	}
}
