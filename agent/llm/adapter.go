// Package llm adapts eino chat models into pipeline LLM layers. Any
// model.ToolCallingChatModel (OpenAI-compatible backends via eino-ext, or
// anything else speaking eino's schema) can drive a pipeline through it.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/yugent/yugent/agent/contract"
)

// Adapter wraps an eino chat model as a contract.LLMLayer.
type Adapter struct {
	model  einomodel.ToolCallingChatModel
	system string
}

type Option func(*Adapter)

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) Option {
	return func(a *Adapter) {
		a.system = strings.TrimSpace(prompt)
	}
}

// NewAdapter binds the given tool declarations into the model and returns the
// layer. Tools usually come from pipeline.Tools().
func NewAdapter(chatModel einomodel.ToolCallingChatModel, tools []contractx.ToolLayer, opts ...Option) (*Adapter, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}

	if len(tools) > 0 {
		bound, err := chatModel.WithTools(toToolInfos(tools))
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrProvider, err)
		}
		chatModel = bound
	}

	a := &Adapter{model: chatModel}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

func (a *Adapter) Send(ctx context.Context, history []contractx.Message) (contractx.Message, error) {
	in, err := toSchemaMessages(a.system, history)
	if err != nil {
		return contractx.Message{}, err
	}

	out, err := a.model.Generate(ctx, in)
	if err != nil {
		return contractx.Message{}, fmt.Errorf("%w: generate: %v", contractx.ErrProvider, err)
	}
	if out == nil {
		return contractx.Message{}, fmt.Errorf("%w: model returned no message", contractx.ErrParse)
	}
	return fromSchemaMessage(out)
}

func toSchemaMessages(system string, history []contractx.Message) ([]*schema.Message, error) {
	out := make([]*schema.Message, 0, len(history)+1)
	if system != "" {
		out = append(out, schema.SystemMessage(system))
	}

	for i, m := range history {
		switch m.Role {
		case contractx.RoleHuman:
			out = append(out, schema.UserMessage(m.Content))
		case contractx.RoleAssistant:
			msg := &schema.Message{Role: schema.Assistant, Content: m.Content}
			if m.ToolCall != nil {
				args, err := json.Marshal(m.ToolCall.Params)
				if err != nil {
					return nil, fmt.Errorf("%w: marshal tool call args at message %d: %v", contractx.ErrValidation, i, err)
				}
				msg.ToolCalls = []schema.ToolCall{{
					ID: m.ToolCall.ID,
					Function: schema.FunctionCall{
						Name:      m.ToolCall.Tool,
						Arguments: string(args),
					},
				}}
			}
			out = append(out, msg)
		case contractx.RoleTool:
			content, err := renderToolContent(m.ToolResult)
			if err != nil {
				return nil, fmt.Errorf("%w: render tool result at message %d: %v", contractx.ErrValidation, i, err)
			}
			msg := &schema.Message{Role: schema.Tool, Content: content}
			if m.ToolResult != nil {
				msg.ToolCallID = m.ToolResult.CallID
			}
			out = append(out, msg)
		default:
			return nil, fmt.Errorf("%w: unsupported role %q at message %d", contractx.ErrValidation, m.Role, i)
		}
	}
	return out, nil
}

func fromSchemaMessage(in *schema.Message) (contractx.Message, error) {
	out := contractx.Message{
		Role:    contractx.RoleAssistant,
		Content: in.Content,
	}
	if len(in.ToolCalls) == 0 {
		return out, nil
	}

	call := in.ToolCalls[0]
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

func renderToolContent(result *contractx.ToolResult) (string, error) {
	if result == nil {
		return "", nil
	}
	if result.Error != "" {
		raw, err := json.Marshal(map[string]string{"error": result.Error})
		return string(raw), err
	}
	raw, err := json.Marshal(result.Result)
	return string(raw), err
}

func toToolInfos(tools []contractx.ToolLayer) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		params := make(map[string]*schema.ParameterInfo, len(t.Params))
		for name, info := range t.Params {
			params[name] = &schema.ParameterInfo{
				Type:     toDataType(info.Type),
				Desc:     info.Desc,
				Required: info.Required,
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        t.ID,
			Desc:        t.Desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func toDataType(t contractx.ParamType) schema.DataType {
	switch t {
	case contractx.TypeNumber:
		return schema.Number
	case contractx.TypeInteger:
		return schema.Integer
	case contractx.TypeBoolean:
		return schema.Boolean
	case contractx.TypeObject:
		return schema.Object
	case contractx.TypeArray:
		return schema.Array
	default:
		return schema.String
	}
}
