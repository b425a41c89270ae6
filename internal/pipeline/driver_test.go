package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"newsbrief/internal/analyze"
	"newsbrief/internal/fetch"
	"newsbrief/internal/news"
	"newsbrief/internal/report"
	"newsbrief/internal/sources"
)

type stubSource struct {
	name  string
	items []news.Item
}

func (s *stubSource) Descriptor() sources.Descriptor {
	return sources.Descriptor{Name: s.name, Kind: sources.KindAPI, Enabled: true}
}

func (s *stubSource) Fetch(ctx context.Context, limit int) ([]news.Item, error) {
	if limit < len(s.items) {
		return s.items[:limit], nil
	}
	return s.items, nil
}

type fakeAnalyzer struct {
	analysis *analyze.Analysis
	err      error
	gotItems []news.Item
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, items []news.Item) (*analyze.Analysis, error) {
	f.gotItems = items
	return f.analysis, f.err
}

type fakeRenderer struct {
	failHTML    bool
	failText    bool
	gotAnalysis []*analyze.Analysis
	gotFormats  []report.Format
}

func (f *fakeRenderer) Render(items []news.Item, analysis *analyze.Analysis, format report.Format) (*report.Artifact, error) {
	f.gotAnalysis = append(f.gotAnalysis, analysis)
	f.gotFormats = append(f.gotFormats, format)
	if format == report.FormatHTML && f.failHTML {
		return nil, errors.New("html render broken")
	}
	if format == report.FormatText && f.failText {
		return nil, errors.New("text render broken")
	}
	return &report.Artifact{
		Name:        "report_test." + format.String(),
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte("rendered " + format.String()),
	}, nil
}

type fakeDeliverer struct {
	err   error
	calls int
	dest  string
}

func (f *fakeDeliverer) Deliver(ctx context.Context, artifact *report.Artifact, dest string) error {
	f.calls++
	f.dest = dest
	return f.err
}

func newTestRegistry(t *testing.T) *sources.Registry {
	t.Helper()
	r := sources.NewRegistry()
	stubs := []*stubSource{
		{name: "alpha", items: []news.Item{{Source: "alpha", Title: "story a", URL: "https://example.com/a"}}},
		{name: "beta", items: []news.Item{{Source: "beta", Title: "story b", URL: "https://example.com/b"}}},
	}
	for _, s := range stubs {
		if err := r.Register(s.Descriptor(), s); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func newTestDriver(t *testing.T, cfg DriverConfig) *Driver {
	t.Helper()
	if cfg.Registry == nil {
		cfg.Registry = newTestRegistry(t)
	}
	if cfg.Orchestrator == nil {
		cfg.Orchestrator = fetch.NewOrchestrator(time.Second, quietLogger())
	}
	if cfg.Renderer == nil {
		cfg.Renderer = &fakeRenderer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	return NewDriver(cfg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCompletes(t *testing.T) {
	outDir := t.TempDir()
	analyzer := &fakeAnalyzer{analysis: &analyze.Analysis{Summary: "fine"}}
	renderer := &fakeRenderer{}
	d := newTestDriver(t, DriverConfig{
		Analyzer:  analyzer,
		Renderer:  renderer,
		OutputDir: outDir,
	})

	summary, err := d.Run(context.Background(), Options{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}

	if summary.State != StateDone {
		t.Errorf("expected done, got %s", summary.State)
	}
	if len(summary.Report.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(summary.Report.Items))
	}
	if summary.Analysis == nil || summary.Analysis.Summary != "fine" {
		t.Errorf("analysis should be carried on the summary, got %+v", summary.Analysis)
	}
	if len(summary.StageErrors) != 0 {
		t.Errorf("expected no stage errors, got %v", summary.StageErrors)
	}
	if len(renderer.gotFormats) != 1 || renderer.gotFormats[0] != report.FormatHTML {
		t.Errorf("expected one HTML render, got %v", renderer.gotFormats)
	}

	wantPath := filepath.Join(outDir, summary.Artifact.Name)
	if summary.ArtifactPath != wantPath {
		t.Fatalf("artifact path %q, want %q", summary.ArtifactPath, wantPath)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("artifact should be written locally: %v", err)
	}
}

func TestRunAnalysisFailureRendersRawItems(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("model unavailable")}
	renderer := &fakeRenderer{}
	d := newTestDriver(t, DriverConfig{Analyzer: analyzer, Renderer: renderer})

	summary, err := d.Run(context.Background(), Options{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}

	if summary.State != StateDone {
		t.Errorf("analysis failure must not abort the run, got %s", summary.State)
	}
	if summary.Analysis != nil {
		t.Error("failed analysis must not appear on the summary")
	}
	if len(renderer.gotAnalysis) != 1 || renderer.gotAnalysis[0] != nil {
		t.Error("renderer should receive nil analysis after an analyze failure")
	}

	if len(summary.StageErrors) != 1 {
		t.Fatalf("expected 1 stage error, got %d", len(summary.StageErrors))
	}
	if summary.StageErrors[0].Stage != news.StageAnalyze {
		t.Errorf("expected an analyze stage error, got %v", summary.StageErrors[0])
	}
}

func TestRunFallsBackToTextRender(t *testing.T) {
	renderer := &fakeRenderer{failHTML: true}
	d := newTestDriver(t, DriverConfig{Renderer: renderer})

	summary, err := d.Run(context.Background(), Options{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}

	if summary.State != StateDone {
		t.Errorf("text fallback should still complete the run, got %s", summary.State)
	}
	want := []report.Format{report.FormatHTML, report.FormatText}
	if len(renderer.gotFormats) != 2 || renderer.gotFormats[0] != want[0] || renderer.gotFormats[1] != want[1] {
		t.Errorf("expected the HTML then text ladder, got %v", renderer.gotFormats)
	}
	if len(summary.StageErrors) != 1 || summary.StageErrors[0].Stage != news.StageRender {
		t.Errorf("the failed HTML render should be recorded, got %v", summary.StageErrors)
	}
}

func TestRunAllRendersFailedSkipsDelivery(t *testing.T) {
	renderer := &fakeRenderer{failHTML: true, failText: true}
	deliverer := &fakeDeliverer{}
	d := newTestDriver(t, DriverConfig{Renderer: renderer, Deliverer: deliverer})

	summary, err := d.Run(context.Background(), Options{Limit: 10, Deliver: true})
	if err != nil {
		t.Fatal(err)
	}

	if summary.State != StatePartiallyCompleted {
		t.Errorf("expected partially_completed, got %s", summary.State)
	}
	if summary.Artifact != nil {
		t.Error("no artifact should exist when every format failed")
	}
	if deliverer.calls != 0 {
		t.Error("delivery must be skipped when rendering failed entirely")
	}
}

func TestRunDeliveryFailurePreservesArtifact(t *testing.T) {
	outDir := t.TempDir()
	deliverer := &fakeDeliverer{err: errors.New("smtp refused")}
	d := newTestDriver(t, DriverConfig{Deliverer: deliverer, OutputDir: outDir})

	summary, err := d.Run(context.Background(), Options{Limit: 10, Deliver: true})
	if err != nil {
		t.Fatal(err)
	}

	if summary.State != StatePartiallyCompleted {
		t.Errorf("expected partially_completed, got %s", summary.State)
	}
	if deliverer.calls != 1 {
		t.Errorf("expected one delivery attempt, got %d", deliverer.calls)
	}
	if summary.ArtifactPath == "" {
		t.Fatal("artifact must be preserved locally before delivery")
	}
	if _, err := os.Stat(summary.ArtifactPath); err != nil {
		t.Errorf("preserved artifact should exist: %v", err)
	}
	if len(summary.StageErrors) != 1 || summary.StageErrors[0].Stage != news.StageDeliver {
		t.Errorf("the delivery failure should be recorded, got %v", summary.StageErrors)
	}
}

func TestRunUnknownSourceFailsBeforeStages(t *testing.T) {
	deliverer := &fakeDeliverer{}
	renderer := &fakeRenderer{}
	d := newTestDriver(t, DriverConfig{Renderer: renderer, Deliverer: deliverer})

	summary, err := d.Run(context.Background(), Options{Sources: []string{"missing"}, Limit: 10})
	if err == nil {
		t.Fatal("unknown source names must fail the run")
	}
	var unknown *news.UnknownSourceError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSourceError, got %v", err)
	}
	if summary != nil {
		t.Error("no summary should be produced for a configuration failure")
	}
	if len(renderer.gotFormats) != 0 || deliverer.calls != 0 {
		t.Error("no stage should run after a configuration failure")
	}
}

func TestRunTextOnlySkipsHTML(t *testing.T) {
	renderer := &fakeRenderer{}
	d := newTestDriver(t, DriverConfig{Renderer: renderer})

	if _, err := d.Run(context.Background(), Options{Limit: 10, TextOnly: true}); err != nil {
		t.Fatal(err)
	}
	if len(renderer.gotFormats) != 1 || renderer.gotFormats[0] != report.FormatText {
		t.Errorf("text-only run should render text directly, got %v", renderer.gotFormats)
	}
}

func TestRunWithoutAnalyzerSkipsAnalysis(t *testing.T) {
	renderer := &fakeRenderer{}
	d := newTestDriver(t, DriverConfig{Renderer: renderer})

	summary, err := d.Run(context.Background(), Options{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Analysis != nil {
		t.Error("no analyzer, no analysis")
	}
	if len(summary.StageErrors) != 0 {
		t.Errorf("skipping analysis is not an error, got %v", summary.StageErrors)
	}
	if summary.State != StateDone {
		t.Errorf("expected done, got %s", summary.State)
	}
}

func TestRunDeliverWithoutDelivererFails(t *testing.T) {
	d := newTestDriver(t, DriverConfig{})

	summary, err := d.Run(context.Background(), Options{Limit: 10, Deliver: true})
	if err != nil {
		t.Fatal(err)
	}
	if summary.State != StatePartiallyCompleted {
		t.Errorf("delivery without a deliverer should degrade, got %s", summary.State)
	}
	if len(summary.StageErrors) != 1 || summary.StageErrors[0].Stage != news.StageDeliver {
		t.Errorf("expected a deliver stage error, got %v", summary.StageErrors)
	}
}
