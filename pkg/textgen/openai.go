package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
)

var _ Generator = (*OpenAIGenerator)(nil)

const (
	oaiFinishReasonStop          = "stop"
	oaiFinishReasonToolCalls     = "tool_calls"
	oaiFinishReasonLength        = "length"
	oaiFinishReasonContentFilter = "content_filter"
)

// OpenAISchemaFormatter formats a JSON schema for OpenAI structured outputs.
type OpenAISchemaFormatter func(m *jsonschema.Schema) *jsonschema.Schema

// OpenAIGenerator implements Generator using the OpenAI chat completions API.
type OpenAIGenerator struct {
	Client *openai.Client `json:"-"`

	Model string `json:"model"`

	GenerateParams *ModelParams `json:"generate_params,omitzero"`
	InvokeParams   *ModelParams `json:"invoke_params,omitzero"`

	SupportJSONOutput bool `json:"support_json_output,omitzero"`
	SupportToolCalls  bool `json:"support_tool_calls,omitzero"`
	UseSystemRole     bool `json:"use_system_role,omitzero"`

	ExtraFields map[string]any `json:"extra_fields,omitzero"`

	SchemaFormatter OpenAISchemaFormatter `json:"-"`
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req *Request) (string, error) {
	params := g.chatCompletion(req, req.pick(g.GenerateParams))
	resp, err := g.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("textgen: openai: no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", Blocked(choice.Message.Refusal)
	}
	switch choice.FinishReason {
	case oaiFinishReasonStop:
	case oaiFinishReasonLength:
		return choice.Message.Content, ErrTruncated
	case oaiFinishReasonContentFilter:
		return "", Blocked("content filter")
	default:
		return "", fmt.Errorf("textgen: openai: unexpected finish reason: %s", choice.FinishReason)
	}
	return choice.Message.Content, nil
}

func (g *OpenAIGenerator) GenerateJSON(ctx context.Context, req *Request, schema *Schema) (json.RawMessage, error) {
	switch {
	case g.SupportJSONOutput:
		return g.generateJSONOutput(ctx, req, schema)
	case g.SupportToolCalls:
		return g.generateToolCall(ctx, req, schema)
	default:
		return nil, errors.New("textgen: openai: json output or tool calls are required")
	}
}

func (g *OpenAIGenerator) generateJSONOutput(ctx context.Context, req *Request, schema *Schema) (json.RawMessage, error) {
	params := g.chatCompletion(req, req.pick(g.InvokeParams))
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        schema.Name,
				Description: param.NewOpt(schema.Description),
				Schema:      g.convSchemaForOutput(schema.JSON),
				Strict:      param.NewOpt(true),
			},
		},
	}
	resp, err := g.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("textgen: openai: no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, Blocked(choice.Message.Refusal)
	}
	switch choice.FinishReason {
	case oaiFinishReasonStop:
	case oaiFinishReasonLength:
		return nil, ErrTruncated
	case oaiFinishReasonContentFilter:
		return nil, Blocked("content filter")
	default:
		return nil, fmt.Errorf("textgen: openai: want stop, got unexpected finish reason: %s", choice.FinishReason)
	}
	if len(choice.Message.Content) == 0 {
		return nil, errors.New("textgen: openai: no content")
	}
	return json.RawMessage(choice.Message.Content), nil
}

func (g *OpenAIGenerator) generateToolCall(ctx context.Context, req *Request, schema *Schema) (json.RawMessage, error) {
	params := g.chatCompletion(req, req.pick(g.InvokeParams))
	params.Tools = []openai.ChatCompletionToolParam{{
		Function: openai.FunctionDefinitionParam{
			Name:        schema.Name,
			Description: param.NewOpt(schema.Description),
			Parameters:  g.convSchemaForFunc(schema.JSON),
			Strict:      param.NewOpt(true),
		},
	}}
	params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
		OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
			Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
				Name: schema.Name,
			},
		},
	}
	resp, err := g.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("textgen: openai: no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, Blocked(choice.Message.Refusal)
	}
	// A named tool choice finishes with "stop" on some providers.
	if choice.FinishReason != oaiFinishReasonToolCalls && choice.FinishReason != oaiFinishReasonStop {
		return nil, fmt.Errorf("textgen: openai: want tool calls, got unexpected finish reason: %s", choice.FinishReason)
	}
	if len(choice.Message.ToolCalls) == 0 {
		return nil, errors.New("textgen: openai: no tool calls")
	}
	return json.RawMessage(choice.Message.ToolCalls[0].Function.Arguments), nil
}

func (g *OpenAIGenerator) chatCompletion(req *Request, mp *ModelParams) openai.ChatCompletionNewParams {
	var msgs []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		if g.UseSystemRole {
			msgs = append(msgs, openai.SystemMessage(req.Instructions))
		} else {
			msgs = append(msgs, openai.DeveloperMessage(req.Instructions))
		}
	}
	msgs = append(msgs, openai.UserMessage(req.Input))

	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    g.Model,
	}
	if mp != nil {
		if mp.FrequencyPenalty > 0 {
			params.FrequencyPenalty = param.NewOpt(float64(mp.FrequencyPenalty))
		}
		if mp.MaxTokens > 0 {
			params.MaxCompletionTokens = param.NewOpt(int64(mp.MaxTokens))
		}
		if mp.Temperature > 0 {
			params.Temperature = param.NewOpt(float64(mp.Temperature))
		}
		if mp.TopP > 0 {
			params.TopP = param.NewOpt(float64(mp.TopP))
		}
		if mp.PresencePenalty > 0 {
			params.PresencePenalty = param.NewOpt(float64(mp.PresencePenalty))
		}
	}
	if len(g.ExtraFields) > 0 {
		params.SetExtraFields(g.ExtraFields)
	}
	return params
}

func (g *OpenAIGenerator) convSchemaForOutput(s *jsonschema.Schema) any {
	if s == nil {
		return nil
	}
	return (any)(g.patchSchema(s))
}

func (g *OpenAIGenerator) convSchemaForFunc(s *jsonschema.Schema) openai.FunctionParameters {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(g.patchSchema(s))
	if err != nil {
		return nil
	}
	var m openai.FunctionParameters
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

func (g *OpenAIGenerator) patchSchema(m *jsonschema.Schema) *jsonschema.Schema {
	s := m.CloneSchemas()
	if g.SchemaFormatter != nil {
		return g.SchemaFormatter(s)
	}
	return FormatOpenAISchema(s)
}

// FormatOpenAISchema formats a schema for OpenAI structured outputs.
//
// OpenAI strict mode requires:
//   - All objects must have additionalProperties: false
//   - All properties must be listed in required
//
// Optional properties become nullable so they can still be listed as required.
func FormatOpenAISchema(m *jsonschema.Schema) *jsonschema.Schema {
	if m == nil {
		return nil
	}
	if m.Type != "" && len(m.Types) > 0 {
		m.Types = append(m.Types, m.Type)
		m.Type = ""
	}

	typ := m.Type
	if typ == "" {
		for _, t := range m.Types {
			if t != "null" && t != "" {
				typ = t
				break
			}
		}
	}

	switch typ {
	case "array":
		m.Items = FormatOpenAISchema(m.Items)
	case "object":
		m.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}

		requires := make(map[string]struct{}, len(m.Properties))
		for _, v := range m.Required {
			requires[v] = struct{}{}
		}
		for k, v := range m.Properties {
			if _, ok := requires[k]; !ok {
				requires[k] = struct{}{}
				if v.Type != "" {
					v.Types = []string{v.Type}
					v.Type = ""
				}
				if !slices.Contains(v.Types, "null") {
					v.Types = append(v.Types, "null")
				}
			}
			m.Properties[k] = FormatOpenAISchema(v)
		}
		m.Required = slices.Sorted(maps.Keys(requires))
	}
	return m
}
