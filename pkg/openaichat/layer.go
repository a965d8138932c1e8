package openaichat

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/yugent/yugent/agent/contract"
)

// Layer implements contract.LLMLayer directly on the openai-go chat
// completions API. Tool declarations usually come from pipeline.Tools().
type Layer struct {
	client      *openaisdk.Client
	model       string
	temperature float32
	maxTokens   int
	system      string
	tools       []openaisdk.ChatCompletionToolParam
}

func NewLayer(cfg Config, tools []contractx.ToolLayer) (*Layer, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &Layer{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionToken,
		system:      strings.TrimSpace(cfg.SystemPrompt),
		tools:       toToolParams(tools),
	}, nil
}

func (l *Layer) Send(ctx context.Context, history []contractx.Message) (contractx.Message, error) {
	messages, err := toChatMessages(l.system, history)
	if err != nil {
		return contractx.Message{}, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(l.model),
		Messages:    messages,
		Temperature: openaisdk.Float(float64(l.temperature)),
	}
	if l.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(l.maxTokens))
	}
	if len(l.tools) > 0 {
		params.Tools = l.tools
	}

	completion, err := l.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.Message{}, fmt.Errorf("%w: chat completion: %v", contractx.ErrProvider, err)
	}
	if len(completion.Choices) == 0 {
		return contractx.Message{}, fmt.Errorf("%w: completion has no choices", contractx.ErrParse)
	}
	return fromCompletionMessage(completion.Choices[0].Message)
}
