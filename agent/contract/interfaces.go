package contract

import "context"

// LLMLayer drives the conversation. The returned message carries a ToolCall
// when the model wants a tool executed before answering.
type LLMLayer interface {
	Send(ctx context.Context, history []Message) (Message, error)
}

// LogLayer receives pipeline events. Side-effect only; the pipeline never
// consumes its return value beyond diagnostics.
type LogLayer interface {
	Execute(ctx context.Context, event Event) error
}
