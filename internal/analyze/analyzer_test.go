package analyze

import (
	"strings"
	"testing"

	"newsbrief/internal/config"
	"newsbrief/internal/news"
)

func TestParseAnalysisHandlesCodeFences(t *testing.T) {
	raw := "Sure, here is the analysis:\n```json\n" +
		`{"summary":"busy week","trends":["ai","wasm"],"opportunities":["tooling"],` +
		`"projects":[{"name":"feedbot","description":"d","target_users":"devs",` +
		`"tech_stack":["go"],"difficulty":"medium","reason":"r","priority":2}]}` +
		"\n```\nHope that helps!"

	analysis, err := parseAnalysis(raw)
	if err != nil {
		t.Fatal(err)
	}

	if analysis.Summary != "busy week" {
		t.Errorf("unexpected summary %q", analysis.Summary)
	}
	if len(analysis.Trends) != 2 || analysis.Trends[0] != "ai" {
		t.Errorf("unexpected trends %v", analysis.Trends)
	}
	if len(analysis.Projects) != 1 || analysis.Projects[0].Priority != 2 {
		t.Errorf("unexpected projects %+v", analysis.Projects)
	}
	if analysis.Raw != raw {
		t.Error("raw model output should be preserved")
	}
}

func TestParseAnalysisRejectsNonJSON(t *testing.T) {
	if _, err := parseAnalysis("the model refused to answer"); err == nil {
		t.Fatal("expected an error for a response without JSON")
	}
	if _, err := parseAnalysis(`{"summary": unterminated`); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestBuildPromptNumbersItems(t *testing.T) {
	items := []news.Item{
		{Source: "HackerNews", Title: "First story", Summary: "short summary"},
		{Source: "GitHubTrending", Title: "Second story", Summary: strings.Repeat("x", 400)},
	}

	prompt := buildPrompt(items)

	if !strings.Contains(prompt, "1. [HackerNews] First story") {
		t.Errorf("missing first entry in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "2. [GitHubTrending] Second story") {
		t.Errorf("missing second entry in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "short summary") {
		t.Error("item summaries should be included")
	}
	if strings.Contains(prompt, strings.Repeat("x", 201)) {
		t.Error("long summaries should be trimmed to 200 characters")
	}
}

func TestNoActivityIsWellFormed(t *testing.T) {
	a := noActivity()
	if a.Summary == "" {
		t.Error("degenerate analysis needs a summary")
	}
	if a.Trends == nil || a.Opportunities == nil || a.Projects == nil {
		t.Error("degenerate analysis slices must be non-nil")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New(config.AIConfig{Provider: "carrier-pigeon"}); err == nil {
		t.Fatal("unknown provider must be rejected")
	}
}
