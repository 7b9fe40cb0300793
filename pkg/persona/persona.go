// Package persona loads battle scripts: the two personas' instructions, the
// per-turn prompt templates and the envelope used to address their mail.
//
// A library file holds one or more scripts:
//
//	default: doge-review
//	scripts:
//	  - name: doge-review
//	    evaluator: {name: ..., instructions: ...}
//	    respondent: {name: ..., instructions: ...}
//	    envelope: {evaluator_address: ..., subject: ..., ...}
//	    prompts:
//	      kickoff: ...
//	      initial_reply: "... {{.Thread}}"
//
// Prompts are text/template sources executed with [TemplateData]. Every
// [battle.Turn] needs a prompt.
package persona

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/haivivi/emailbattle/pkg/battle"
)

// ErrNotFound is returned by Library.Get for an unknown script name.
var ErrNotFound = errors.New("persona: script not found")

// Persona is one side of a script.
type Persona struct {
	Name         string `yaml:"name"`
	Instructions string `yaml:"instructions"`
}

// Config is the decoded form of one script.
type Config struct {
	Name       string                 `yaml:"name"`
	Desc       string                 `yaml:"desc,omitempty"`
	Evaluator  Persona                `yaml:"evaluator"`
	Respondent Persona                `yaml:"respondent"`
	Envelope   battle.Envelope        `yaml:"envelope"`
	Prompts    map[battle.Turn]string `yaml:"prompts"`
}

// TemplateData is what prompt templates see.
type TemplateData struct {
	battle.PromptData
	Evaluator  string
	Respondent string
	Envelope   battle.Envelope
}

// Script is a compiled Config. It implements battle.Script.
type Script struct {
	name       string
	desc       string
	evaluator  Persona
	respondent Persona
	envelope   battle.Envelope
	prompts    map[battle.Turn]*template.Template
}

var _ battle.Script = (*Script)(nil)

// Compile validates cfg and parses its prompt templates.
func Compile(cfg Config) (*Script, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errors.New("persona: script name is required")
	}
	for _, p := range []struct {
		role battle.Role
		p    Persona
	}{
		{battle.RoleEvaluator, cfg.Evaluator},
		{battle.RoleRespondent, cfg.Respondent},
	} {
		if strings.TrimSpace(p.p.Name) == "" {
			return nil, fmt.Errorf("persona: %s: %s name is required", cfg.Name, p.role)
		}
		if strings.TrimSpace(p.p.Instructions) == "" {
			return nil, fmt.Errorf("persona: %s: %s instructions are required", cfg.Name, p.role)
		}
	}
	if err := cfg.Envelope.Validate(); err != nil {
		return nil, fmt.Errorf("persona: %s: %w", cfg.Name, err)
	}

	s := &Script{
		name:       cfg.Name,
		desc:       cfg.Desc,
		evaluator:  cfg.Evaluator,
		respondent: cfg.Respondent,
		envelope:   cfg.Envelope,
		prompts:    make(map[battle.Turn]*template.Template, len(battle.Turns)),
	}
	for turn := range cfg.Prompts {
		if !turn.IsValid() {
			return nil, fmt.Errorf("persona: %s: unknown turn %q", cfg.Name, turn)
		}
	}
	for _, turn := range battle.Turns {
		src, ok := cfg.Prompts[turn]
		if !ok || strings.TrimSpace(src) == "" {
			return nil, fmt.Errorf("persona: %s: missing prompt for %s", cfg.Name, turn)
		}
		tpl, err := template.New(string(turn)).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("persona: %s: prompt %s: %w", cfg.Name, turn, err)
		}
		s.prompts[turn] = tpl
	}
	// Render every turn once so unknown fields surface here.
	for _, turn := range battle.Turns {
		if _, err := s.Prompt(turn, battle.PromptData{Thread: battle.EmptyThread, MaxRounds: 1}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Script) Name() string { return s.name }
func (s *Script) Desc() string { return s.desc }

// Persona returns the battle identity of role. Model is left for the caller.
func (s *Script) Persona(role battle.Role) battle.Persona {
	p := s.evaluator
	if role == battle.RoleRespondent {
		p = s.respondent
	}
	return battle.Persona{Role: role, Name: p.Name}
}

func (s *Script) Instructions(role battle.Role) string {
	if role == battle.RoleRespondent {
		return s.respondent.Instructions
	}
	return s.evaluator.Instructions
}

func (s *Script) Prompt(turn battle.Turn, data battle.PromptData) (string, error) {
	tpl, ok := s.prompts[turn]
	if !ok {
		return "", fmt.Errorf("persona: %s: no prompt for turn %q", s.name, turn)
	}
	var buf bytes.Buffer
	err := tpl.Execute(&buf, TemplateData{
		PromptData: data,
		Evaluator:  s.evaluator.Name,
		Respondent: s.respondent.Name,
		Envelope:   s.envelope,
	})
	if err != nil {
		return "", fmt.Errorf("persona: %s: render %s: %w", s.name, turn, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (s *Script) Envelope() battle.Envelope {
	return s.envelope
}
