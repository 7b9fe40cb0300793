package textgen

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
	GenerateJSON(ctx context.Context, req *Request, schema *Schema) (json.RawMessage, error)
}

// Forker is implemented by generators that keep per-battle state. Fork
// returns an independent copy with that state reset.
type Forker interface {
	Fork() Generator
}

// Fork returns g.Fork() when g is a Forker and g otherwise.
func Fork(g Generator) Generator {
	if f, ok := g.(Forker); ok {
		return f.Fork()
	}
	return g
}

// Request is a single backend call: role instructions and the turn prompt.
type Request struct {
	// Instructions is sent as the system (or developer) message.
	Instructions string

	// Input is the user-side prompt, usually a rendered template that embeds
	// the formatted email thread.
	Input string

	// Params overrides the generator's configured defaults when set.
	Params *ModelParams
}

type ModelParams struct {
	MaxTokens        int     `json:"max_tokens,omitzero" yaml:"max_tokens,omitzero"`
	FrequencyPenalty float32 `json:"frequency_penalty,omitzero" yaml:"frequency_penalty,omitzero"`
	Temperature      float32 `json:"temperature,omitzero" yaml:"temperature,omitzero"`
	TopP             float32 `json:"top_p,omitzero" yaml:"top_p,omitzero"`
	PresencePenalty  float32 `json:"presence_penalty,omitzero" yaml:"presence_penalty,omitzero"`
	TopK             float32 `json:"top_k,omitzero" yaml:"top_k,omitzero"`
}

func (p *ModelParams) String() string {
	if p == nil {
		return "<default>"
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%+v", *p)
	}
	return string(b)
}

// pick returns the request override when present, else the fallback.
func (r *Request) pick(fallback *ModelParams) *ModelParams {
	if r != nil && r.Params != nil {
		return r.Params
	}
	return fallback
}

// Invoke calls GenerateJSON and decodes the validated result into T.
func Invoke[T any](ctx context.Context, g Generator, req *Request, schema *Schema) (T, error) {
	var zero T
	raw, err := g.GenerateJSON(ctx, req, schema)
	if err != nil {
		return zero, err
	}
	return Decode[T](schema, raw)
}
