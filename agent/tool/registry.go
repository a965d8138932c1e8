package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	contractx "github.com/yugent/yugent/agent/contract"
)

// DefaultTimeout bounds a tool handler when no timeout is configured.
// Unbounded tool execution is never the default.
const DefaultTimeout = 30 * time.Second

// Registry resolves tool-call requests to registered tool layers and executes
// them under a bounded timeout.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]contractx.ToolLayer
	timeout time.Duration
}

func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		tools:   make(map[string]contractx.ToolLayer),
		timeout: timeout,
	}
}

// Register adds a tool. Registering an id twice fails and leaves the first
// registration active.
func (r *Registry) Register(spec contractx.ToolLayer) error {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return fmt.Errorf("%w: tool id is empty", contractx.ErrValidation)
	}
	if spec.Handler == nil {
		return fmt.Errorf("%w: tool %q has a nil handler", contractx.ErrValidation, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[id]; exists {
		return fmt.Errorf("%w: %q", contractx.ErrDuplicateTool, id)
	}
	r.tools[id] = spec
	return nil
}

// Definitions returns the registered tool declarations sorted by id, for
// binding into an LLM layer.
func (r *Registry) Definitions() []contractx.ToolLayer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contractx.ToolLayer, 0, len(r.tools))
	for _, spec := range r.tools {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Invoke resolves and executes one tool-call request. The handler runs in its
// own goroutine so an overrunning tool can never block the cycle; on timeout
// the result is ErrToolTimeout and the handler is abandoned with a cancelled
// context.
func (r *Registry) Invoke(ctx context.Context, req contractx.ToolCallRequest) (contractx.ToolResult, error) {
	id := strings.TrimSpace(req.Tool)
	if id == "" {
		return contractx.ToolResult{}, fmt.Errorf("%w: tool id is empty", contractx.ErrUnknownTool)
	}

	r.mu.RLock()
	spec, ok := r.tools[id]
	r.mu.RUnlock()
	if !ok {
		return contractx.ToolResult{}, fmt.Errorf("%w: %q", contractx.ErrUnknownTool, id)
	}

	if err := validateParams(req.Params, spec.Params); err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: tool %q: %v", contractx.ErrInvalidParams, id, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("handler panic: %v", p)}
			}
		}()
		value, err := spec.Handler(execCtx, req.Params)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return contractx.ToolResult{}, fmt.Errorf("%w: tool %q: %v", contractx.ErrToolExecution, id, out.err)
		}
		return contractx.ToolResult{
			Tool:   id,
			CallID: req.ID,
			Result: out.value,
		}, nil
	case <-execCtx.Done():
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return contractx.ToolResult{}, ctx.Err()
		}
		return contractx.ToolResult{}, fmt.Errorf("%w: tool %q after %s", contractx.ErrToolTimeout, id, r.timeout)
	}
}

func validateParams(params map[string]any, declared map[string]contractx.ParamInfo) error {
	for name, info := range declared {
		value, present := params[name]
		if !present {
			if info.Required {
				return fmt.Errorf("missing required param %q", name)
			}
			continue
		}
		if err := checkParamType(value, info.Type); err != nil {
			return fmt.Errorf("param %q: %v", name, err)
		}
	}
	return nil
}

func checkParamType(value any, want contractx.ParamType) error {
	if value == nil {
		return nil
	}
	switch want {
	case contractx.TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case contractx.TypeNumber:
		if !isNumeric(value) {
			return fmt.Errorf("expected number, got %T", value)
		}
	case contractx.TypeInteger:
		switch v := value.(type) {
		case int, int32, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got fractional number %v", v)
			}
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case contractx.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case contractx.TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case contractx.TypeArray:
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	}
	return nil
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
