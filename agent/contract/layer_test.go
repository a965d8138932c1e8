package contract

import (
	"context"
	"errors"
	"testing"
)

type nopLLM struct{}

func (nopLLM) Send(ctx context.Context, history []Message) (Message, error) {
	return Message{Role: RoleAssistant, Content: "ok"}, nil
}

type nopLog struct{}

func (nopLog) Execute(ctx context.Context, event Event) error {
	return nil
}

func TestLayerConstructorsSetKind(t *testing.T) {
	t.Parallel()

	llm := LLM("driver", nopLLM{})
	if llm.Kind != KindLLM || llm.ID != "driver" {
		t.Fatalf("unexpected llm layer: %+v", llm)
	}

	tool := Tool(ToolLayer{
		ID: "get_weather",
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return nil, nil
		},
	})
	if tool.Kind != KindTool || tool.ID != "get_weather" {
		t.Fatalf("unexpected tool layer: %+v", tool)
	}

	logLayer := Log("console", nopLog{})
	if logLayer.Kind != KindLog || logLayer.Blocking {
		t.Fatalf("unexpected log layer: %+v", logLayer)
	}

	blocking := BlockingLog("audit", nopLog{})
	if !blocking.Blocking {
		t.Fatalf("expected blocking log layer: %+v", blocking)
	}
}

func TestLayerValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		layer Layer
	}{
		{name: "empty id", layer: Layer{Kind: KindLLM, LLMImpl: nopLLM{}}},
		{name: "llm without impl", layer: Layer{ID: "x", Kind: KindLLM}},
		{name: "tool without handler", layer: Layer{ID: "x", Kind: KindTool, Tool: &ToolLayer{ID: "x"}}},
		{name: "log without impl", layer: Layer{ID: "x", Kind: KindLog}},
		{name: "unknown kind", layer: Layer{ID: "x", Kind: "router"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := tc.layer.Validate(); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}

	valid := LLM("driver", nopLLM{})
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCloneMessageIsolatesToolCallParams(t *testing.T) {
	t.Parallel()

	original := Message{
		Role: RoleAssistant,
		ToolCall: &ToolCallRequest{
			Tool:   "get_weather",
			Params: map[string]any{"city": "Oslo"},
		},
	}
	clone := CloneMessage(original)
	clone.ToolCall.Params["city"] = "Bergen"

	if original.ToolCall.Params["city"] != "Oslo" {
		t.Fatalf("clone mutation leaked into original: %+v", original.ToolCall.Params)
	}
}
