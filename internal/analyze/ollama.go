package analyze

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmorganca/ollama/api"

	"newsbrief/internal/config"
	"newsbrief/internal/news"
)

// OllamaAnalyzer runs the analysis against a local Ollama instance.
// The server address comes from the environment (OLLAMA_HOST).
type OllamaAnalyzer struct {
	client *api.Client
	model  string
}

func NewOllamaAnalyzer(cfg config.AIConfig) (*OllamaAnalyzer, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ai model must be set for the ollama provider")
	}

	return &OllamaAnalyzer{client: client, model: cfg.Model}, nil
}

func (a *OllamaAnalyzer) Analyze(ctx context.Context, items []news.Item) (*Analysis, error) {
	if len(items) == 0 {
		return noActivity(), nil
	}

	req := &api.GenerateRequest{
		Model:  a.model,
		System: systemPrompt,
		Prompt: buildPrompt(items),
		Stream: new(bool),
		Format: "json",
	}

	var response strings.Builder
	respFunc := func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	}

	if err := a.client.Generate(ctx, req, respFunc); err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	return parseAnalysis(response.String())
}
