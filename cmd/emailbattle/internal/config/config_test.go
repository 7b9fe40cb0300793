package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		ModelsDir:   "models",
		MaxRounds:   5,
		CallTimeout: 2 * time.Minute,
		Addr:        ":8080",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() (-want +got):\n%s", diff)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("EMAILBATTLE_MODELS_DIR", "/etc/emailbattle/models")
	t.Setenv("EMAILBATTLE_EVALUATOR", "gpt")
	t.Setenv("EMAILBATTLE_RESPONDENT", "gemini")
	t.Setenv("EMAILBATTLE_MAX_ROUNDS", "3")
	t.Setenv("EMAILBATTLE_CALL_TIMEOUT", "45s")
	t.Setenv("EMAILBATTLE_ALLOWED_ORIGINS", "http://a.example,http://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ModelsDir != "/etc/emailbattle/models" || cfg.Evaluator != "gpt" || cfg.Respondent != "gemini" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MaxRounds != 3 || cfg.CallTimeout != 45*time.Second {
		t.Errorf("rounds/timeout = %d/%v", cfg.MaxRounds, cfg.CallTimeout)
	}
	if diff := cmp.Diff([]string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins); diff != "" {
		t.Errorf("AllowedOrigins (-want +got):\n%s", diff)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"EMAILBATTLE_MAX_ROUNDS":   "many",
		"EMAILBATTLE_CALL_TIMEOUT": "soon",
	}
	for k, v := range tests {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", k, v)
			}
		})
	}
	t.Run("negative rounds", func(t *testing.T) {
		t.Setenv("EMAILBATTLE_MAX_ROUNDS", "-2")
		if _, err := Load(); err == nil {
			t.Error("negative rounds accepted")
		}
	})
}
