package textgen

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// fakeOpenAI serves a canned chat completion and records the last request body.
type fakeOpenAI struct {
	reply string
	last  map[string]any
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.last = nil
	_ = json.Unmarshal(body, &f.last)
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, f.reply)
}

func newFakeOpenAI(t *testing.T, reply string) (*fakeOpenAI, *openai.Client) {
	t.Helper()
	f := &fakeOpenAI{reply: reply}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	client := openai.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	return f, &client
}

func chatReply(finish, content, refusal string) string {
	msg := map[string]any{"role": "assistant", "content": content}
	if refusal != "" {
		msg["refusal"] = refusal
	}
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": finish,
			"message":       msg,
		}},
	})
	return string(b)
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	f, client := newFakeOpenAI(t, chatReply("stop", "Here are my five bullets.", ""))
	g := &OpenAIGenerator{
		Client:         client,
		Model:          "test-model",
		UseSystemRole:  true,
		GenerateParams: &ModelParams{Temperature: 0.7, MaxTokens: 256},
	}

	got, err := g.Generate(t.Context(), &Request{Instructions: "be brief", Input: "write"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Here are my five bullets." {
		t.Errorf("Generate = %q", got)
	}

	if f.last["model"] != "test-model" {
		t.Errorf("model = %v", f.last["model"])
	}
	msgs, _ := f.last["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v, want 2", msgs)
	}
	if role := msgs[0].(map[string]any)["role"]; role != "system" {
		t.Errorf("first role = %v, want system", role)
	}
	if role := msgs[1].(map[string]any)["role"]; role != "user" {
		t.Errorf("second role = %v, want user", role)
	}
	if mt := f.last["max_completion_tokens"]; mt != float64(256) {
		t.Errorf("max_completion_tokens = %v", mt)
	}
}

func TestOpenAIGenerator_DeveloperRole(t *testing.T) {
	f, client := newFakeOpenAI(t, chatReply("stop", "ok", ""))
	g := &OpenAIGenerator{Client: client, Model: "m"}
	if _, err := g.Generate(t.Context(), &Request{Instructions: "sys", Input: "hi"}); err != nil {
		t.Fatal(err)
	}
	msgs, _ := f.last["messages"].([]any)
	if role := msgs[0].(map[string]any)["role"]; role != "developer" {
		t.Errorf("first role = %v, want developer", role)
	}
}

func TestOpenAIGenerator_Refusal(t *testing.T) {
	_, client := newFakeOpenAI(t, chatReply("stop", "", "I can't help with that."))
	g := &OpenAIGenerator{Client: client, Model: "m"}

	_, err := g.Generate(t.Context(), &Request{Input: "hi"})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("error = %v, want ErrBlocked", err)
	}
	var be *BlockedError
	if !errors.As(err, &be) || be.Reason != "I can't help with that." {
		t.Errorf("blocked reason = %+v", be)
	}
}

func TestOpenAIGenerator_Truncated(t *testing.T) {
	_, client := newFakeOpenAI(t, chatReply("length", "partial", ""))
	g := &OpenAIGenerator{Client: client, Model: "m"}
	if _, err := g.Generate(t.Context(), &Request{Input: "hi"}); !errors.Is(err, ErrTruncated) {
		t.Fatalf("error = %v, want ErrTruncated", err)
	}
}

func TestOpenAIGenerator_GenerateJSON(t *testing.T) {
	s := newTestSchema(t)
	f, client := newFakeOpenAI(t, chatReply("stop", `{"label":"YES","body":"ok"}`, ""))
	g := &OpenAIGenerator{Client: client, Model: "m", SupportJSONOutput: true}

	raw, err := g.GenerateJSON(t.Context(), &Request{Input: "decide"}, s)
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if string(raw) != `{"label":"YES","body":"ok"}` {
		t.Errorf("raw = %s", raw)
	}
	rf, _ := f.last["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Fatalf("response_format = %v", rf)
	}
	js, _ := rf["json_schema"].(map[string]any)
	if js["name"] != "test_verdict" || js["strict"] != true {
		t.Errorf("json_schema = %v", js)
	}
}

func TestOpenAIGenerator_GenerateJSONRequiresMode(t *testing.T) {
	g := &OpenAIGenerator{Model: "m"}
	if _, err := g.GenerateJSON(t.Context(), &Request{}, newTestSchema(t)); err == nil {
		t.Fatal("expected error without json output or tool calls")
	}
}

func TestFormatOpenAISchema(t *testing.T) {
	s := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"a": {Type: "string"},
			"b": {Type: "string"},
		},
		Required: []string{"a"},
	}
	got := FormatOpenAISchema(s)

	if !slices.Equal(got.Required, []string{"a", "b"}) {
		t.Errorf("Required = %v, want [a b]", got.Required)
	}
	if got.AdditionalProperties == nil || got.AdditionalProperties.Not == nil {
		t.Errorf("AdditionalProperties = %+v, want false schema", got.AdditionalProperties)
	}
	if got.Properties["a"].Type != "string" {
		t.Errorf("required prop changed: %+v", got.Properties["a"])
	}
	if !slices.Contains(got.Properties["b"].Types, "null") {
		t.Errorf("optional prop not nullable: %+v", got.Properties["b"])
	}
}
