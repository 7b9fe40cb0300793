package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// errNoCredentials marks configs whose API key expanded to nothing. Such
// files are skipped rather than failing the whole load.
var errNoCredentials = errors.New("api_key is required")

type ConfigFile struct {
	Schema string `json:"schema,omitzero" yaml:"schema,omitzero"` // e.g. "openai/chat/v1", "gemini/chat/v1", "scripted/replay/v1"
	Type   string `json:"type,omitzero" yaml:"type,omitzero"`     // "generator"

	// Legacy format: "openai", "gemini", "scripted".
	Kind string `json:"kind,omitzero" yaml:"kind,omitzero"`

	APIKey  string `json:"api_key,omitzero" yaml:"api_key,omitzero"` // Can be env var name like "$OPENAI_API_KEY"
	BaseURL string `json:"base_url,omitzero" yaml:"base_url,omitzero"`

	Models []Entry `json:"models,omitzero" yaml:"models,omitzero"`
}

type Entry struct {
	Name              string         `json:"name" yaml:"name"`
	Model             string         `json:"model,omitzero" yaml:"model,omitzero"`
	Desc              string         `json:"desc,omitzero" yaml:"desc,omitzero"`
	GenerateParams    *ModelParams   `json:"generate_params,omitzero" yaml:"generate_params,omitzero"`
	InvokeParams      *ModelParams   `json:"invoke_params,omitzero" yaml:"invoke_params,omitzero"`
	SupportJSONOutput bool           `json:"support_json_output,omitzero" yaml:"support_json_output,omitzero"`
	SupportToolCalls  bool           `json:"support_tool_calls,omitzero" yaml:"support_tool_calls,omitzero"`
	UseSystemRole     bool           `json:"use_system_role,omitzero" yaml:"use_system_role,omitzero"`
	ExtraFields       map[string]any `json:"extra_fields,omitzero" yaml:"extra_fields,omitzero"`

	// Scripted specific
	Replies []string `json:"replies,omitzero" yaml:"replies,omitzero"`
	Outputs []string `json:"outputs,omitzero" yaml:"outputs,omitzero"`
	Loop    bool     `json:"loop,omitzero" yaml:"loop,omitzero"`
}

// ModelInfo describes a registered generator.
type ModelInfo struct {
	Name     string `json:"name" yaml:"name" msgpack:"name"`
	Provider string `json:"provider" yaml:"provider" msgpack:"provider"`
	Model    string `json:"model,omitzero" yaml:"model,omitzero" msgpack:"model,omitempty"`
	Desc     string `json:"desc,omitzero" yaml:"desc,omitzero" msgpack:"desc,omitempty"`
	Source   string `json:"source,omitzero" yaml:"source,omitzero" msgpack:"source,omitempty"`
}

// DisplayName returns Desc when set, else Model, else Name.
func (m ModelInfo) DisplayName() string {
	switch {
	case m.Desc != "":
		return m.Desc
	case m.Model != "":
		return m.Model
	default:
		return m.Name
	}
}

// Loader registers generators described by config files into a Mux.
type Loader struct {
	Mux *Mux

	// Verbose logs every outgoing request body at debug level.
	Verbose bool

	Logger *slog.Logger
}

func (l *Loader) mux() *Mux {
	if l.Mux != nil {
		return l.Mux
	}
	return DefaultMux
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// LoadFromDir loads model configs from dir recursively and registers generators.
// Configs with missing credentials (empty API key after env expansion) are skipped.
func (l *Loader) LoadFromDir(dir string) ([]ModelInfo, error) {
	var infos []ModelInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			return nil
		}
		got, err := l.LoadFile(path)
		if err != nil {
			if errors.Is(err, errNoCredentials) {
				l.logger().Debug("skipping model config", "path", path, "error", err)
				return nil
			}
			return err
		}
		infos = append(infos, got...)
		return nil
	})
	return infos, err
}

// LoadFile parses one config file and registers its models.
func (l *Loader) LoadFile(path string) ([]ModelInfo, error) {
	cfg, err := ParseConfig(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	infos, err := l.Register(*cfg)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", path, err)
	}
	for i := range infos {
		infos[i].Source = path
	}
	return infos, nil
}

func ParseConfig(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ConfigFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported extension: %s", ext)
	}
	return &cfg, nil
}

// Register creates the generators described by cfg.
func (l *Loader) Register(cfg ConfigFile) ([]ModelInfo, error) {
	cfg.APIKey = expandEnv(cfg.APIKey)
	cfg.BaseURL = expandEnv(cfg.BaseURL)

	provider, err := cfg.provider()
	if err != nil {
		return nil, err
	}
	switch provider {
	case "openai":
		return l.registerOpenAI(cfg)
	case "gemini":
		return l.registerGemini(cfg)
	case "scripted":
		return l.registerScripted(cfg)
	default:
		return nil, fmt.Errorf("unknown generator provider: %s", provider)
	}
}

// provider resolves "{provider}/{subject}/{version}" schemas and legacy kinds.
func (cfg *ConfigFile) provider() (string, error) {
	if cfg.Schema != "" {
		if cfg.Type != "" && cfg.Type != "generator" {
			return "", fmt.Errorf("unknown type: %s", cfg.Type)
		}
		parts := strings.Split(cfg.Schema, "/")
		if len(parts) < 2 {
			return "", fmt.Errorf("invalid schema: %s", cfg.Schema)
		}
		return parts[0], nil
	}
	if cfg.Kind == "" {
		return "", errors.New("schema or kind is required")
	}
	return strings.ToLower(cfg.Kind), nil
}

// expandEnv expands environment variables in a string.
// Supports formats: $VAR, ${VAR}, and plain values.
// If the value starts with $ but the env var is not set, returns empty string.
func expandEnv(s string) string {
	if strings.HasPrefix(s, "$") {
		return os.ExpandEnv(s)
	}
	return s
}

func (l *Loader) registerOpenAI(cfg ConfigFile) ([]ModelInfo, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for openai", errNoCredentials)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if l.Verbose {
		opts = append(opts, option.WithHTTPClient(l.verboseClient()))
	}
	client := openai.NewClient(opts...)

	return l.register(cfg, "openai", func(m Entry) Generator {
		return &OpenAIGenerator{
			Client:            &client,
			Model:             m.Model,
			GenerateParams:    m.GenerateParams,
			InvokeParams:      m.InvokeParams,
			SupportJSONOutput: m.SupportJSONOutput,
			SupportToolCalls:  m.SupportToolCalls,
			UseSystemRole:     m.UseSystemRole,
			ExtraFields:       m.ExtraFields,
		}
	})
}

func (l *Loader) registerGemini(cfg ConfigFile) ([]ModelInfo, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for gemini", errNoCredentials)
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if l.Verbose {
		cc.HTTPClient = l.verboseClient()
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, err
	}

	return l.register(cfg, "gemini", func(m Entry) Generator {
		return &GeminiGenerator{
			Client:         client,
			Model:          m.Model,
			GenerateParams: m.GenerateParams,
			InvokeParams:   m.InvokeParams,
		}
	})
}

func (l *Loader) registerScripted(cfg ConfigFile) ([]ModelInfo, error) {
	return l.register(cfg, "scripted", func(m Entry) Generator {
		return &Scripted{
			Replies: m.Replies,
			Outputs: m.Outputs,
			Loop:    m.Loop,
		}
	})
}

func (l *Loader) register(cfg ConfigFile, provider string, build func(Entry) Generator) ([]ModelInfo, error) {
	var infos []ModelInfo
	for _, m := range cfg.Models {
		if m.Name == "" {
			return nil, errors.New("model entry missing name")
		}
		if m.Model == "" && provider != "scripted" {
			return nil, fmt.Errorf("model entry %q missing model", m.Name)
		}
		if err := l.mux().Handle(m.Name, build(m)); err != nil {
			return nil, fmt.Errorf("register generator %q: %w", m.Name, err)
		}
		infos = append(infos, ModelInfo{
			Name:     m.Name,
			Provider: provider,
			Model:    m.Model,
			Desc:     m.Desc,
		})
	}
	return infos, nil
}

func (l *Loader) verboseClient() *http.Client {
	return &http.Client{
		Transport: &verboseTransport{base: http.DefaultTransport, logger: l.logger()},
	}
}

type verboseTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *verboseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, body, "", "  "); err == nil {
			body = pretty.Bytes()
		}
		t.logger.Debug("backend request", "url", req.URL.String(), "body", string(body))
	}
	return t.base.RoundTrip(req)
}
