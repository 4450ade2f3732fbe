package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
)

// OpenAIConfig holds what the OpenAI completer needs. The key is passed in
// explicitly; nothing here reads the environment.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
}

// OpenAICompleter talks to the OpenAI chat API through langchaingo.
type OpenAICompleter struct {
	llm         llms.Model
	temperature float64
}

// NewOpenAICompleter builds a completer. An empty key is an error.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	return &OpenAICompleter{llm: llm, temperature: cfg.Temperature}, nil
}

// Complete sends one system and one user message.
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	msgs := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: system}}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: user}}},
	}
	resp, err := c.llm.GenerateContent(ctx, msgs, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Content, nil
}
