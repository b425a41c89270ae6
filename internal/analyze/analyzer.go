// Package analyze turns a fetched item set into structured insights
// using an LLM. Analysis is an enhancement: the pipeline renders raw
// items when it fails.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"newsbrief/internal/config"
	"newsbrief/internal/news"
)

// ProjectIdea is one project suggestion extracted from the analysis.
type ProjectIdea struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TargetUsers string   `json:"target_users"`
	TechStack   []string `json:"tech_stack"`
	Difficulty  string   `json:"difficulty"`
	Reason      string   `json:"reason"`
	Priority    int      `json:"priority"`
}

// Analysis is the structured result of analyzing one item set.
type Analysis struct {
	Summary       string        `json:"summary"`
	Trends        []string      `json:"trends"`
	Opportunities []string      `json:"opportunities"`
	Projects      []ProjectIdea `json:"projects"`

	// Raw keeps the unparsed model output for debugging.
	Raw string `json:"-"`
}

// Analyzer consumes the deduplicated item sequence. Implementations
// must tolerate an empty sequence.
type Analyzer interface {
	Analyze(ctx context.Context, items []news.Item) (*Analysis, error)
}

// New builds the analyzer selected by configuration.
func New(cfg config.AIConfig) (Analyzer, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIAnalyzer(cfg)
	case "ollama":
		return NewOllamaAnalyzer(cfg)
	default:
		return nil, fmt.Errorf("unknown ai provider: %q", cfg.Provider)
	}
}

// noActivity is the degenerate result for an empty item set. No model
// call is made, so a fully-failed fetch never costs an API call.
func noActivity() *Analysis {
	return &Analysis{
		Summary:       "No notable activity: no items were fetched in this run.",
		Trends:        []string{},
		Opportunities: []string{},
		Projects:      []ProjectIdea{},
	}
}

const systemPrompt = `You are a seasoned technology analyst advising independent developers. ` +
	`Analyze the provided news digest and respond with a single JSON object with keys: ` +
	`"summary" (string, at most 200 words), "trends" (3-5 keyword strings), ` +
	`"opportunities" (2-3 strings), and "projects" (3-5 objects with keys ` +
	`"name", "description", "target_users", "tech_stack" (string array), ` +
	`"difficulty", "reason", "priority" (integer 1-5)). ` +
	`Respond with JSON only, no surrounding prose.`

// buildPrompt flattens the items into the numbered digest the model
// sees. Long summaries are trimmed so one verbose feed can't crowd out
// the rest.
func buildPrompt(items []news.Item) string {
	var b strings.Builder
	b.WriteString("News items:\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, item.Source, item.Title)
		if item.Summary != "" {
			summary := item.Summary
			if len(summary) > 200 {
				summary = summary[:200]
			}
			fmt.Fprintf(&b, "   %s\n", summary)
		}
	}
	return b.String()
}

// parseAnalysis extracts the outermost JSON object from a model
// response and unmarshals it. Models wrap JSON in code fences or prose
// often enough that strict parsing is not an option.
func parseAnalysis(raw string) (*Analysis, error) {
	jsonText, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(jsonText), &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}

	analysis.Raw = raw
	return &analysis, nil
}

func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object in model response")
	}
	return s[start : end+1], nil
}
