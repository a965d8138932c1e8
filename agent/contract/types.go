package contract

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation. An assistant message may carry a
// ToolCall; a tool message carries the matching ToolResult.
type Message struct {
	Role       Role             `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCall   *ToolCallRequest `json:"tool_call,omitempty"`
	ToolResult *ToolResult      `json:"tool_result,omitempty"`
}

// CloneMessage returns a copy safe to hand across layer boundaries.
func CloneMessage(in Message) Message {
	out := in
	if in.ToolCall != nil {
		call := *in.ToolCall
		if in.ToolCall.Params != nil {
			call.Params = make(map[string]any, len(in.ToolCall.Params))
			for k, v := range in.ToolCall.Params {
				call.Params[k] = v
			}
		}
		out.ToolCall = &call
	}
	if in.ToolResult != nil {
		result := *in.ToolResult
		out.ToolResult = &result
	}
	return out
}

// CloneMessages copies a full history snapshot.
func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i := range in {
		out[i] = CloneMessage(in[i])
	}
	return out
}

// ToolCallRequest is emitted by the LLM layer to ask the pipeline to run a
// registered tool.
type ToolCallRequest struct {
	ID     string         `json:"id,omitempty"`
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
}

// ToolResult is the outcome of one tool invocation. Error is set instead of
// Result when the handler failed and the pipeline chose to recover.
type ToolResult struct {
	Tool   string `json:"tool"`
	CallID string `json:"call_id,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ParamType enumerates the value kinds a tool parameter may declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

// ParamInfo declares one named input parameter of a tool.
type ParamInfo struct {
	Type     ParamType `json:"type"`
	Desc     string    `json:"desc,omitempty"`
	Required bool      `json:"required,omitempty"`
}

// ToolLayer declares a callable capability exposed to the LLM. Handlers own
// any external resources they hold and are expected to be stateless between
// calls.
type ToolLayer struct {
	ID      string
	Desc    string
	Params  map[string]ParamInfo
	Handler func(ctx context.Context, params map[string]any) (any, error)
}

// EventType classifies pipeline events delivered to log layers.
type EventType string

const (
	EventCycleStarted     EventType = "cycle_started"
	EventAssistantMessage EventType = "assistant_message"
	EventToolResult       EventType = "tool_result"
	EventCycleCompleted   EventType = "cycle_completed"
	EventCycleFailed      EventType = "cycle_failed"
)

// Event is the compact observability record fanned out to log layers.
type Event struct {
	CycleID    string      `json:"cycle_id"`
	Iteration  int         `json:"iteration"`
	Type       EventType   `json:"type"`
	Message    *Message    `json:"message,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}
