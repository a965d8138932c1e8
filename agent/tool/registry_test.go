package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/yugent/yugent/agent/contract"
)

func echoTool(id string) contractx.ToolLayer {
	return contractx.ToolLayer{
		ID:   id,
		Desc: "echo the input back",
		Params: map[string]contractx.ParamInfo{
			"text": {Type: contractx.TypeString, Required: true},
		},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return params["text"], nil
		},
	}
}

func TestRegisterDuplicateIDKeepsFirst(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(0)
	first := echoTool("echo")
	if err := registry.Register(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := contractx.ToolLayer{
		ID: "echo",
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return "replacement", nil
		},
	}
	if err := registry.Register(second); !errors.Is(err, contractx.ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}

	out, err := registry.Invoke(context.Background(), contractx.ToolCallRequest{
		Tool:   "echo",
		Params: map[string]any{"text": "original"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Result != "original" {
		t.Fatalf("first registration was replaced: %v", out.Result)
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(0)
	_, err := registry.Invoke(context.Background(), contractx.ToolCallRequest{Tool: "missing"})
	if !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestInvokeValidatesParams(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(0)
	if err := registry.Register(echoTool("echo")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name   string
		params map[string]any
	}{
		{name: "missing required", params: map[string]any{}},
		{name: "wrong type", params: map[string]any{"text": 42}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := registry.Invoke(context.Background(), contractx.ToolCallRequest{
				Tool:   "echo",
				Params: tc.params,
			})
			if !errors.Is(err, contractx.ErrInvalidParams) {
				t.Fatalf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestInvokeTimesOutSlowHandler(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(20 * time.Millisecond)
	err := registry.Register(contractx.ToolLayer{
		ID: "sleepy",
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			select {
			case <-time.After(5 * time.Second):
				return "too late", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	_, err = registry.Invoke(context.Background(), contractx.ToolCallRequest{Tool: "sleepy"})
	if !errors.Is(err, contractx.ErrToolTimeout) {
		t.Fatalf("expected ErrToolTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("invoke blocked for %s", elapsed)
	}
}

func TestInvokeHonorsCallerCancellation(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(time.Minute)
	err := registry.Register(contractx.ToolLayer{
		ID: "blocked",
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = registry.Invoke(ctx, contractx.ToolCallRequest{Tool: "blocked"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestInvokeWrapsHandlerError(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(0)
	err := registry.Register(contractx.ToolLayer{
		ID: "broken",
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = registry.Invoke(context.Background(), contractx.ToolCallRequest{Tool: "broken"})
	if !errors.Is(err, contractx.ErrToolExecution) {
		t.Fatalf("expected ErrToolExecution, got %v", err)
	}
}

func TestInvokeRecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(0)
	err := registry.Register(contractx.ToolLayer{
		ID: "panicky",
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			panic("boom")
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = registry.Invoke(context.Background(), contractx.ToolCallRequest{Tool: "panicky"})
	if !errors.Is(err, contractx.ErrToolExecution) {
		t.Fatalf("expected ErrToolExecution, got %v", err)
	}
}

func TestInvokeReturnsResultWithCallID(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(0)
	if err := registry.Register(echoTool("echo")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := registry.Invoke(context.Background(), contractx.ToolCallRequest{
		ID:     "call-7",
		Tool:   "echo",
		Params: map[string]any{"text": "ping"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CallID != "call-7" {
		t.Fatalf("expected call id to be carried over, got %q", out.CallID)
	}
	if out.Result != "ping" {
		t.Fatalf("unexpected result: %v", out.Result)
	}
}

func TestDefinitionsSortedByID(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(0)
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := registry.Register(echoTool(id)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	defs := registry.Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, def := range defs {
		if def.ID != want[i] {
			t.Fatalf("definition %d: expected %q, got %q", i, want[i], def.ID)
		}
	}
}
