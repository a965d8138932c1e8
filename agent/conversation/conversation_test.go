package conversation

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/yugent/yugent/agent/contract"
)

func TestAppendPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	conv := New("conv-1")
	inputs := []contractx.Message{
		{Role: contractx.RoleHuman, Content: "first"},
		{Role: contractx.RoleAssistant, Content: "second"},
		{Role: contractx.RoleHuman, Content: "third"},
		{Role: contractx.RoleAssistant, Content: "fourth"},
	}
	for _, m := range inputs {
		conv.Append(m)
	}

	history := conv.History()
	if len(history) != len(inputs) {
		t.Fatalf("expected %d messages, got %d", len(inputs), len(history))
	}
	for i, m := range history {
		if m.Content != inputs[i].Content {
			t.Fatalf("message %d: expected %q, got %q", i, inputs[i].Content, m.Content)
		}
	}
}

func TestHistoryIsASnapshot(t *testing.T) {
	t.Parallel()

	conv := New("conv-1")
	conv.Append(contractx.Message{Role: contractx.RoleHuman, Content: "hello"})

	snapshot := conv.History()
	snapshot[0].Content = "mutated"

	latest, err := conv.Latest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Content != "hello" {
		t.Fatalf("snapshot mutation leaked into conversation: %q", latest.Content)
	}
}

func TestLatestFiltersByRole(t *testing.T) {
	t.Parallel()

	conv := New("conv-1")
	conv.Append(
		contractx.Message{Role: contractx.RoleHuman, Content: "question"},
		contractx.Message{Role: contractx.RoleAssistant, Content: "answer"},
	)

	latest, err := conv.Latest(contractx.RoleHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Content != "question" {
		t.Fatalf("expected latest human message, got %q", latest.Content)
	}

	if _, err := conv.Latest(contractx.RoleTool); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestOnEmptyConversation(t *testing.T) {
	t.Parallel()

	conv := New("conv-1")
	if _, err := conv.Latest(); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRewindDropsOnlyTrailingMessages(t *testing.T) {
	t.Parallel()

	conv := New("conv-1")
	conv.Append(contractx.Message{Role: contractx.RoleHuman, Content: "kept"})
	mark := conv.Len()
	conv.Append(
		contractx.Message{Role: contractx.RoleHuman, Content: "aborted"},
		contractx.Message{Role: contractx.RoleAssistant, Content: "partial"},
	)

	conv.Rewind(mark)

	if conv.Len() != 1 {
		t.Fatalf("expected 1 message after rewind, got %d", conv.Len())
	}
	latest, err := conv.Latest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Content != "kept" {
		t.Fatalf("expected committed message to survive, got %q", latest.Content)
	}
}

func TestNewGeneratesIDWhenEmpty(t *testing.T) {
	t.Parallel()

	conv := New("  ")
	if conv.ID() == "" {
		t.Fatal("expected a generated conversation id")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	conv := New("conv-1")
	conv.Append(
		contractx.Message{Role: contractx.RoleHuman, Content: "hi"},
		contractx.Message{Role: contractx.RoleAssistant, Content: "hello"},
	)

	if err := store.Save(ctx, conv); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	loaded, err := store.Load(ctx, "conv-1")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", loaded.Len())
	}

	if err := store.Delete(ctx, "conv-1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, err := store.Load(ctx, "conv-1"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestMessageRowRoundTrip(t *testing.T) {
	t.Parallel()

	messages := []contractx.Message{
		{Role: contractx.RoleHuman, Content: "what is the weather in Oslo?"},
		{
			Role: contractx.RoleAssistant,
			ToolCall: &contractx.ToolCallRequest{
				ID:     "call-1",
				Tool:   "get_weather",
				Params: map[string]any{"city": "Oslo"},
			},
		},
		{
			Role: contractx.RoleTool,
			ToolResult: &contractx.ToolResult{
				Tool:   "get_weather",
				CallID: "call-1",
				Result: map[string]any{"temperature": "16.7 C"},
			},
		},
	}

	rows, err := toRows("conv-1", 0, messages)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1].Seq != 1 {
		t.Fatalf("expected seq 1, got %d", rows[1].Seq)
	}

	decoded, err := fromRows(rows)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if decoded[1].ToolCall == nil || decoded[1].ToolCall.Tool != "get_weather" {
		t.Fatalf("tool call lost in round trip: %+v", decoded[1])
	}
	if decoded[2].ToolResult == nil || decoded[2].ToolResult.CallID != "call-1" {
		t.Fatalf("tool result lost in round trip: %+v", decoded[2])
	}
}
