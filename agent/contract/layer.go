package contract

import (
	"fmt"
	"strings"
)

// LayerKind tags the role a layer contributes to a pipeline.
type LayerKind string

const (
	KindLLM  LayerKind = "llm"
	KindTool LayerKind = "tool"
	KindLog  LayerKind = "log"
)

// Layer is the closed union over the three layer roles. Exactly one of the
// role fields is set, matching Kind; the pipeline dispatches on the tag.
type Layer struct {
	ID   string
	Kind LayerKind

	LLMImpl LLMLayer
	Tool    *ToolLayer
	LogImpl LogLayer

	// Blocking marks a log layer that must be awaited even when the
	// dispatcher runs in async mode.
	Blocking bool
}

// LLM wraps an LLM driver as a pipeline layer.
func LLM(id string, impl LLMLayer) Layer {
	return Layer{ID: id, Kind: KindLLM, LLMImpl: impl}
}

// Tool wraps a tool declaration as a pipeline layer. The layer id is the
// tool id.
func Tool(spec ToolLayer) Layer {
	return Layer{ID: spec.ID, Kind: KindTool, Tool: &spec}
}

// Log wraps a log connector as a pipeline layer.
func Log(id string, impl LogLayer) Layer {
	return Layer{ID: id, Kind: KindLog, LogImpl: impl}
}

// BlockingLog wraps a log connector that stays on the critical path even when
// the dispatcher runs asynchronously.
func BlockingLog(id string, impl LogLayer) Layer {
	return Layer{ID: id, Kind: KindLog, LogImpl: impl, Blocking: true}
}

func (l Layer) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("%w: layer id is empty", ErrValidation)
	}
	switch l.Kind {
	case KindLLM:
		if l.LLMImpl == nil {
			return fmt.Errorf("%w: llm layer %q has no implementation", ErrValidation, l.ID)
		}
	case KindTool:
		if l.Tool == nil || l.Tool.Handler == nil {
			return fmt.Errorf("%w: tool layer %q has no handler", ErrValidation, l.ID)
		}
		if strings.TrimSpace(l.Tool.ID) == "" {
			return fmt.Errorf("%w: tool layer %q has an empty tool id", ErrValidation, l.ID)
		}
	case KindLog:
		if l.LogImpl == nil {
			return fmt.Errorf("%w: log layer %q has no implementation", ErrValidation, l.ID)
		}
	default:
		return fmt.Errorf("%w: layer %q has unknown kind %q", ErrValidation, l.ID, l.Kind)
	}
	return nil
}
