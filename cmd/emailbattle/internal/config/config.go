// Package config loads emailbattle settings from the environment. Command
// flags override these values.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything a command may need.
type Config struct {
	// ModelsDir is scanned recursively for model configs (.yaml/.yml/.json).
	ModelsDir string `env:"EMAILBATTLE_MODELS_DIR" envDefault:"models"`

	// Evaluator and Respondent name registered models.
	Evaluator  string `env:"EMAILBATTLE_EVALUATOR"`
	Respondent string `env:"EMAILBATTLE_RESPONDENT"`

	MaxRounds   int           `env:"EMAILBATTLE_MAX_ROUNDS"   envDefault:"5"`
	CallTimeout time.Duration `env:"EMAILBATTLE_CALL_TIMEOUT" envDefault:"2m"`

	// Personas is a persona library file. The embedded library is used
	// when empty.
	Personas string `env:"EMAILBATTLE_PERSONAS"`
	Script   string `env:"EMAILBATTLE_SCRIPT"`

	Addr           string   `env:"EMAILBATTLE_ADDR"            envDefault:":8080"`
	AllowedOrigins []string `env:"EMAILBATTLE_ALLOWED_ORIGINS" envSeparator:","`

	// OtelEndpoint enables OTLP/HTTP trace export when set.
	OtelEndpoint string `env:"EMAILBATTLE_OTEL_ENDPOINT"`
}

// Load parses the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxRounds < 0 {
		return nil, fmt.Errorf("EMAILBATTLE_MAX_ROUNDS must not be negative, got %d", cfg.MaxRounds)
	}
	return &cfg, nil
}
