package analyze

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"newsbrief/internal/config"
	"newsbrief/internal/news"
)

// OpenAIAnalyzer talks to any OpenAI-compatible chat endpoint
// (DashScope, OpenAI, a local proxy) through langchaingo.
type OpenAIAnalyzer struct {
	llm *openai.LLM
}

func NewOpenAIAnalyzer(cfg config.AIConfig) (*OpenAIAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai api key not set (AI_API_KEY or DASHSCOPE_API_KEY)")
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return &OpenAIAnalyzer{llm: llm}, nil
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, items []news.Item) (*Analysis, error) {
	if len(items) == 0 {
		return noActivity(), nil
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, buildPrompt(items)),
	}

	resp, err := a.llm.GenerateContent(ctx, messages, llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	return parseAnalysis(resp.Choices[0].Content)
}
