// Package openaichat wires OpenAI-compatible chat backends (OpenAI itself,
// OpenRouter, local gateways) into the pipeline: either directly through the
// openai-go SDK via Layer, or as an eino chat model via NewChatModel for use
// with the agent/llm adapter.
package openaichat

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	contractx "github.com/yugent/yugent/agent/contract"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SystemPrompt       string        `envconfig:"SYSTEM_PROMPT" split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	return nil
}

// NewClient builds a raw SDK client for callers needing direct API access.
func NewClient(cfg Config) (*openaisdk.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openaisdk.NewClient(opts...)
	return &client, nil
}

// NewChatModel builds an eino ToolCallingChatModel over the configured
// backend, for composition through the agent/llm adapter.
func (c Config) NewChatModel(ctx context.Context) (einomodel.ToolCallingChatModel, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	maxTokens := c.MaxCompletionToken
	temperature := c.Temperature
	conf := &openaimodel.ChatModelConfig{
		BaseURL:     strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       strings.TrimSpace(c.Model),
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     c.Timeout,
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: create chat model: %v", contractx.ErrProvider, err)
	}
	return m, nil
}
