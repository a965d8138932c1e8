package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/yugent/yugent/agent/contract"
	conversationx "github.com/yugent/yugent/agent/conversation"
	"github.com/yugent/yugent/agent/logdispatch"
	toolx "github.com/yugent/yugent/agent/tool"
)

// Pipeline owns an ordered set of layers and drives execution cycles: human
// turn in, LLM consulted with full history, tools invoked on request, final
// assistant message out, events fanned to log layers.
type Pipeline struct {
	llmID string
	llm   contractx.LLMLayer
	tools *toolx.Registry
	logs  *logdispatch.Dispatcher
	cfg   Config

	// mu serializes cycles: the conversation and cycle state are mutated in
	// place and are not safe for concurrent execution.
	mu  sync.Mutex
	log zerolog.Logger
}

// New builds a pipeline from its layers. Exactly one LLM layer is required;
// tool and log layers are optional.
func New(layers []contractx.Layer, cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	p := &Pipeline{
		tools: toolx.NewRegistry(cfg.ToolTimeout),
		cfg:   cfg,
		log:   log.With().Str("component", "pipeline").Logger(),
	}

	logLayers := make([]contractx.Layer, 0)
	for _, layer := range layers {
		if err := layer.Validate(); err != nil {
			return nil, err
		}
		switch layer.Kind {
		case contractx.KindLLM:
			if p.llm != nil {
				return nil, fmt.Errorf("%w: multiple llm layers (%q and %q); exactly one may drive a pipeline",
					contractx.ErrValidation, p.llmID, layer.ID)
			}
			p.llmID = layer.ID
			p.llm = layer.LLMImpl
		case contractx.KindTool:
			if err := p.tools.Register(*layer.Tool); err != nil {
				return nil, err
			}
		case contractx.KindLog:
			logLayers = append(logLayers, layer)
		}
	}
	if p.llm == nil {
		return nil, fmt.Errorf("%w: an llm layer is required", contractx.ErrValidation)
	}

	p.logs = logdispatch.New(logLayers, logdispatch.Mode(cfg.LoggerMode), cfg.LoggerTimeout)
	return p, nil
}

// Tools exposes the registered tool declarations, for binding into providers.
func (p *Pipeline) Tools() []contractx.ToolLayer {
	return p.tools.Definitions()
}

// Flush waits for async log deliveries still in flight.
func (p *Pipeline) Flush() {
	p.logs.Flush()
}

// Execute runs one cycle on the given conversation. Concurrent calls on the
// same pipeline are rejected with ErrBusy. On any failure or cancellation the
// conversation is rewound to its pre-cycle state.
func (p *Pipeline) Execute(ctx context.Context, conv *conversationx.Conversation, text string) (contractx.Message, error) {
	if conv == nil {
		return contractx.Message{}, fmt.Errorf("%w: conversation is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		return contractx.Message{}, fmt.Errorf("%w: message text is empty", contractx.ErrValidation)
	}

	if !p.mu.TryLock() {
		return contractx.Message{}, fmt.Errorf("%w: conversation %s", contractx.ErrBusy, conv.ID())
	}
	defer p.mu.Unlock()

	cyc := newCycle()
	mark := conv.Len()

	human := contractx.Message{Role: contractx.RoleHuman, Content: text}
	conv.Append(human)
	cyc.record(contractx.EventCycleStarted, func(e *contractx.Event) {
		e.Message = &human
	})

	final, err := p.run(ctx, conv, cyc)
	if err != nil {
		conv.Rewind(mark)
		cyc.fail()
		cyc.record(contractx.EventCycleFailed, func(e *contractx.Event) {
			e.Detail = err.Error()
		})
		p.logs.Dispatch(ctx, cyc.events...)
		p.log.Debug().
			Err(err).
			Str("cycle", cyc.id).
			Str("conversation", conv.ID()).
			Int("iterations", cyc.iterations).
			Msg("cycle failed")
		return contractx.Message{}, err
	}

	cyc.record(contractx.EventCycleCompleted, func(e *contractx.Event) {
		e.Message = &final
	})
	p.logs.Dispatch(ctx, cyc.events...)
	return final, nil
}

func (p *Pipeline) run(ctx context.Context, conv *conversationx.Conversation, cyc *cycle) (contractx.Message, error) {
	if err := cyc.transition(phaseAwaitingLLM); err != nil {
		return contractx.Message{}, err
	}

	for {
		reply, err := p.callLLM(ctx, conv.History())
		if err != nil {
			return contractx.Message{}, err
		}

		if reply.ToolCall == nil {
			if err := cyc.transition(phaseDone); err != nil {
				return contractx.Message{}, err
			}
			conv.Append(reply)
			cyc.record(contractx.EventAssistantMessage, func(e *contractx.Event) {
				e.Message = &reply
			})
			return reply, nil
		}

		cyc.iterations++
		if cyc.iterations > p.cfg.MaxToolIterations {
			return contractx.Message{}, fmt.Errorf("%w: %d tool calls with a budget of %d",
				contractx.ErrMaxToolIterations, cyc.iterations, p.cfg.MaxToolIterations)
		}

		if err := cyc.transition(phaseToolRequested); err != nil {
			return contractx.Message{}, err
		}
		conv.Append(reply)
		cyc.record(contractx.EventAssistantMessage, func(e *contractx.Event) {
			e.Message = &reply
		})

		if err := cyc.transition(phaseAwaitingTool); err != nil {
			return contractx.Message{}, err
		}
		result, err := p.tools.Invoke(ctx, *reply.ToolCall)
		if err != nil {
			if !p.recoverable(err) {
				return contractx.Message{}, err
			}
			result = contractx.ToolResult{
				Tool:   reply.ToolCall.Tool,
				CallID: reply.ToolCall.ID,
				Error:  err.Error(),
			}
		}

		toolMessage := contractx.Message{Role: contractx.RoleTool, ToolResult: &result}
		conv.Append(toolMessage)
		cyc.record(contractx.EventToolResult, func(e *contractx.Event) {
			e.ToolResult = &result
		})

		if err := cyc.transition(phaseAwaitingLLM); err != nil {
			return contractx.Message{}, err
		}
	}
}

func (p *Pipeline) callLLM(ctx context.Context, history []contractx.Message) (contractx.Message, error) {
	parent := ctx
	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()

	reply, err := p.llm.Send(ctx, history)
	if err != nil {
		if parent.Err() != nil {
			return contractx.Message{}, parent.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return contractx.Message{}, fmt.Errorf("%w: llm %q timed out after %s",
				contractx.ErrProvider, p.llmID, p.cfg.LLMTimeout)
		}
		if errors.Is(err, contractx.ErrProvider) || errors.Is(err, contractx.ErrParse) {
			return contractx.Message{}, err
		}
		return contractx.Message{}, fmt.Errorf("%w: llm %q: %v", contractx.ErrProvider, p.llmID, err)
	}

	if reply.Role == "" {
		reply.Role = contractx.RoleAssistant
	}
	if reply.ToolCall != nil && strings.TrimSpace(reply.ToolCall.Tool) == "" {
		return contractx.Message{}, fmt.Errorf("%w: tool call without a tool id", contractx.ErrParse)
	}
	if reply.ToolCall == nil && strings.TrimSpace(reply.Content) == "" {
		return contractx.Message{}, fmt.Errorf("%w: assistant message is empty", contractx.ErrParse)
	}
	return reply, nil
}

// recoverable reports whether a tool failure may be surfaced to the LLM as a
// tool-error turn. Unknown tools and malformed params always abort: they are
// contract violations, not transient tool trouble.
func (p *Pipeline) recoverable(err error) bool {
	if !p.cfg.RecoverToolErrors {
		return false
	}
	return errors.Is(err, contractx.ErrToolExecution) || errors.Is(err, contractx.ErrToolTimeout)
}
