package logx

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/yugent/yugent/agent/contract"
)

// EventLayer is the local log connector: a pipeline log layer that writes
// events through zerolog. It never fails.
type EventLayer struct {
	log zerolog.Logger
}

func NewEventLayer() *EventLayer {
	return &EventLayer{
		log: log.With().Str("connector", "local").Logger(),
	}
}

// NewEventLayerWith uses an explicit zerolog logger instead of the global one.
func NewEventLayerWith(logger zerolog.Logger) *EventLayer {
	return &EventLayer{log: logger}
}

func (l *EventLayer) Execute(ctx context.Context, event contractx.Event) error {
	entry := l.log.Info().
		Str("cycle", event.CycleID).
		Str("event", string(event.Type)).
		Int("iteration", event.Iteration)

	if event.Message != nil {
		entry = entry.Str("role", string(event.Message.Role))
		if event.Message.ToolCall != nil {
			entry = entry.Str("tool", event.Message.ToolCall.Tool)
		}
	}
	if event.ToolResult != nil {
		entry = entry.Str("tool", event.ToolResult.Tool)
		if event.ToolResult.Error != "" {
			entry = entry.Str("tool_error", event.ToolResult.Error)
		}
	}

	detail := event.Detail
	if detail == "" && event.Message != nil {
		detail = event.Message.Content
	}
	entry.Msg(detail)
	return nil
}
