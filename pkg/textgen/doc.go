// Package textgen provides text-generation backends for persona turns.
//
// # Core Types
//
// Generator is the backend abstraction used by the battle engine:
//
//	type Generator interface {
//	    Generate(ctx context.Context, req *Request) (string, error)
//	    GenerateJSON(ctx context.Context, req *Request, schema *Schema) (json.RawMessage, error)
//	}
//
// Generate turns role instructions plus an input prompt into free text.
// GenerateJSON asks the backend for output conforming to a Schema. Callers
// should decode the result with [Decode], which repairs malformed JSON and
// validates it against the schema before anything reaches caller state.
//
// # Implementations
//
//   - OpenAIGenerator: OpenAI chat completions (json_schema or tool calls)
//   - GeminiGenerator: Google Gemini GenerateContent (response schema)
//   - Scripted: replays canned outputs, for offline battles and tests
//
// WithTimeout wraps any Generator with a per-call deadline; an expired call
// fails with ErrTimeout. Fork gives stateful generators such as Scripted a
// fresh copy per battle.
//
// # Registry
//
// Mux maps model names to generators. LoadFromDir reads YAML/JSON model
// configs and registers the generators they describe:
//
//	schema: openai/chat/v1
//	type: generator
//	api_key: $OPENAI_API_KEY
//	models:
//	  - name: reviewer/gpt
//	    model: gpt-4.1
//	    support_json_output: true
//	    generate_params:
//	      temperature: 0.7
package textgen
