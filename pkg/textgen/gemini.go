package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"
)

var _ Generator = (*GeminiGenerator)(nil)

// GeminiGenerator implements Generator using Google Gemini API.
type GeminiGenerator struct {
	Client *genai.Client `json:"-"`

	InvokeParams   *ModelParams `json:"invoke_params,omitzero"`
	GenerateParams *ModelParams `json:"generate_params,omitzero"`

	// Model should not start with "models/"
	Model string `json:"model"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, req *Request) (string, error) {
	cfg := g.config(req, req.pick(g.GenerateParams))
	return g.generate(ctx, req, cfg)
}

func (g *GeminiGenerator) GenerateJSON(ctx context.Context, req *Request, schema *Schema) (json.RawMessage, error) {
	cfg := g.config(req, req.pick(g.InvokeParams))
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = geminiConvSchema(schema.JSON)
	text, err := g.generate(ctx, req, cfg)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(text), nil
}

func (g *GeminiGenerator) generate(ctx context.Context, req *Request, cfg *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.Input, genai.RoleUser)}
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) {
			err = apiErr.Unwrap()
		}
		return "", err
	}
	return geminiResponseText(resp)
}

func (g *GeminiGenerator) config(req *Request, mp *ModelParams) *genai.GenerateContentConfig {
	cfg := genai.GenerateContentConfig{
		SafetySettings: []*genai.SafetySetting{
			{
				Category:  genai.HarmCategoryHateSpeech,
				Threshold: genai.HarmBlockThresholdOff,
			},
			{
				Category:  genai.HarmCategoryHarassment,
				Threshold: genai.HarmBlockThresholdOff,
			},
			{
				Category:  genai.HarmCategoryDangerousContent,
				Threshold: genai.HarmBlockThresholdOff,
			},
		},
	}
	if req.Instructions != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.Instructions)},
		}
	}
	if mp != nil {
		if mp.MaxTokens > 0 {
			cfg.MaxOutputTokens = int32(mp.MaxTokens)
		}
		if mp.Temperature > 0 {
			cfg.Temperature = genai.Ptr(mp.Temperature)
		}
		if mp.TopP > 0 {
			cfg.TopP = genai.Ptr(mp.TopP)
		}
		if mp.TopK > 0 {
			cfg.TopK = genai.Ptr(mp.TopK)
		}
		if mp.FrequencyPenalty > 0 {
			cfg.FrequencyPenalty = genai.Ptr(mp.FrequencyPenalty)
		}
		if mp.PresencePenalty > 0 {
			cfg.PresencePenalty = genai.Ptr(mp.PresencePenalty)
		}
	}
	return &cfg
}

// geminiResponseText extracts the first candidate's text, mapping safety
// stops to ErrBlocked and token exhaustion to ErrTruncated.
func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
		reason := pf.BlockReasonMessage
		if reason == "" {
			reason = string(pf.BlockReason)
		}
		return "", Blocked(reason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("textgen: gemini: no candidates")
	}
	t := resp.Candidates[0]
	switch t.FinishReason {
	case "", genai.FinishReasonStop, genai.FinishReasonUnspecified:
	case genai.FinishReasonMaxTokens:
		return "", ErrTruncated
	case genai.FinishReasonSafety,
		genai.FinishReasonRecitation,
		genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII:
		reason := t.FinishMessage
		if reason == "" {
			reason = string(t.FinishReason)
		}
		return "", Blocked(reason)
	default:
		return "", fmt.Errorf("textgen: gemini: unexpected finish reason: %s", t.FinishReason)
	}
	if t.Content == nil {
		return "", errors.New("textgen: gemini: no content")
	}
	var sb strings.Builder
	for _, p := range t.Content.Parts {
		if p.Text != "" && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

func geminiConvSchema(schema *jsonschema.Schema) *genai.Schema {
	if schema == nil {
		return nil
	}

	var enums []string
	for _, v := range schema.Enum {
		enums = append(enums, fmt.Sprintf("%v", v))
	}

	gs := genai.Schema{
		Format:      schema.Format,
		Description: schema.Description,
		Enum:        enums,
		Items:       geminiConvSchema(schema.Items),
		Required:    schema.Required,
	}
	if n := len(schema.Properties); n > 0 {
		gs.Properties = make(map[string]*genai.Schema, n)
		for k, prop := range schema.Properties {
			gs.Properties[k] = geminiConvSchema(prop)
		}
	}

	typ := schema.Type
	if typ == "" {
		for _, t := range schema.Types {
			if t == "null" {
				gs.Nullable = genai.Ptr(true)
				continue
			}
			typ = t
		}
	}
	switch typ {
	case "object":
		gs.Type = genai.TypeObject
	case "array":
		gs.Type = genai.TypeArray
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	}
	return &gs
}
