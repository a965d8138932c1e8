package openaichat

import (
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/yugent/yugent/agent/contract"
)

func toChatMessages(system string, history []contractx.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if system != "" {
		out = append(out, openaisdk.SystemMessage(system))
	}

	for i, m := range history {
		switch m.Role {
		case contractx.RoleHuman:
			out = append(out, openaisdk.UserMessage(m.Content))
		case contractx.RoleAssistant:
			if m.ToolCall == nil {
				out = append(out, openaisdk.AssistantMessage(m.Content))
				continue
			}
			args, err := json.Marshal(m.ToolCall.Params)
			if err != nil {
				return nil, fmt.Errorf("%w: marshal tool call args at message %d: %v", contractx.ErrValidation, i, err)
			}
			assistant := openaisdk.ChatCompletionAssistantMessageParam{
				ToolCalls: []openaisdk.ChatCompletionMessageToolCallParam{{
					ID: m.ToolCall.ID,
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      m.ToolCall.Tool,
						Arguments: string(args),
					},
				}},
			}
			if m.Content != "" {
				assistant.Content.OfString = openaisdk.String(m.Content)
			}
			out = append(out, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case contractx.RoleTool:
			content, callID, err := renderToolTurn(m.ToolResult)
			if err != nil {
				return nil, fmt.Errorf("%w: render tool result at message %d: %v", contractx.ErrValidation, i, err)
			}
			out = append(out, openaisdk.ToolMessage(content, callID))
		default:
			return nil, fmt.Errorf("%w: unsupported role %q at message %d", contractx.ErrValidation, m.Role, i)
		}
	}
	return out, nil
}

func renderToolTurn(result *contractx.ToolResult) (content string, callID string, err error) {
	if result == nil {
		return "", "", nil
	}
	if result.Error != "" {
		raw, err := json.Marshal(map[string]string{"error": result.Error})
		return string(raw), result.CallID, err
	}
	raw, err := json.Marshal(result.Result)
	return string(raw), result.CallID, err
}

func fromCompletionMessage(msg openaisdk.ChatCompletionMessage) (contractx.Message, error) {
	out := contractx.Message{
		Role:    contractx.RoleAssistant,
		Content: msg.Content,
	}
	if len(msg.ToolCalls) == 0 {
		return out, nil
	}

	call := msg.ToolCalls[0]
	name := strings.TrimSpace(call.Function.Name)
	if name == "" {
		return contractx.Message{}, fmt.Errorf("%w: tool call without a function name", contractx.ErrParse)
	}

	params := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return contractx.Message{}, fmt.Errorf("%w: tool call args for %q: %v", contractx.ErrParse, name, err)
		}
	}

	out.ToolCall = &contractx.ToolCallRequest{
		ID:     call.ID,
		Tool:   name,
		Params: params,
	}
	return out, nil
}

func toToolParams(tools []contractx.ToolLayer) []openaisdk.ChatCompletionToolParam {
	if len(tools) == 0 {
		return nil
	}

	out := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		properties := make(map[string]any, len(t.Params))
		required := make([]string, 0)
		for name, info := range t.Params {
			prop := map[string]any{"type": string(info.Type)}
			if info.Desc != "" {
				prop["description"] = info.Desc
			}
			properties[name] = prop
			if info.Required {
				required = append(required, name)
			}
		}

		schema := map[string]any{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			schema["required"] = required
		}

		out = append(out, openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        t.ID,
				Description: openaisdk.String(t.Desc),
				Parameters:  openaisdk.FunctionParameters(schema),
			},
		})
	}
	return out
}
