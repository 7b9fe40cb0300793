package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/haivivi/emailbattle/cmd/emailbattle/internal/config"
	"github.com/haivivi/emailbattle/pkg/battle"
	"github.com/haivivi/emailbattle/pkg/battleserver"
	"github.com/haivivi/emailbattle/pkg/persona"
	"github.com/haivivi/emailbattle/pkg/textgen"
)

// arena prepares battles from the loaded models and persona library. It
// implements battleserver.Starter.
type arena struct {
	cfg         *config.Config
	mux         *textgen.Mux
	models      map[string]textgen.ModelInfo
	library     *persona.Library
	oldestFirst bool
	log         *slog.Logger
}

var _ battleserver.Starter = (*arena)(nil)

func loadModels(dir string) (*textgen.Mux, []textgen.ModelInfo, error) {
	mux := textgen.NewMux()
	l := &textgen.Loader{Mux: mux, Verbose: verbose, Logger: slog.Default()}
	infos, err := l.LoadFromDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load models from %s: %w", dir, err)
	}
	return mux, infos, nil
}

func loadLibrary(path string) (*persona.Library, error) {
	if path == "" {
		return persona.Default(), nil
	}
	return persona.Load(path)
}

func newArena(cfg *config.Config) (*arena, error) {
	lib, err := loadLibrary(cfg.Personas)
	if err != nil {
		return nil, err
	}
	mux, infos, err := loadModels(cfg.ModelsDir)
	if err != nil {
		return nil, err
	}
	a := &arena{
		cfg:     cfg,
		mux:     mux,
		models:  make(map[string]textgen.ModelInfo, len(infos)),
		library: lib,
		log:     slog.Default(),
	}
	for _, info := range infos {
		a.models[info.Name] = info
	}
	// Both models must resolve before any battle starts.
	for _, name := range []string{cfg.Evaluator, cfg.Respondent} {
		if _, err := a.generator(name); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *arena) generator(name string) (textgen.Generator, error) {
	if name == "" {
		return nil, errors.New("evaluator and respondent models are required (--evaluator/--respondent or EMAILBATTLE_EVALUATOR/EMAILBATTLE_RESPONDENT)")
	}
	return a.mux.Get(name)
}

func (a *arena) Start(req battleserver.StartRequest) (*battleserver.Battle, error) {
	name := req.Script
	if name == "" {
		name = a.cfg.Script
	}
	script, err := a.library.Get(name)
	if err != nil {
		return nil, err
	}
	eval, err := a.generator(a.cfg.Evaluator)
	if err != nil {
		return nil, err
	}
	resp, err := a.generator(a.cfg.Respondent)
	if err != nil {
		return nil, err
	}
	// Each battle replays stateful backends from the start.
	engine, err := battle.New(battle.Config{
		Evaluator:   textgen.Fork(eval),
		Respondent:  textgen.Fork(resp),
		Script:      script,
		CallTimeout: a.cfg.CallTimeout,
		OldestFirst: a.oldestFirst,
		Logger:      a.log,
	})
	if err != nil {
		return nil, err
	}
	rounds := req.MaxRounds
	if rounds == 0 {
		rounds = a.cfg.MaxRounds
	}
	st, err := battle.NewState(rounds)
	if err != nil {
		return nil, err
	}

	ev := script.Persona(battle.RoleEvaluator)
	ev.Model = a.displayName(a.cfg.Evaluator)
	rp := script.Persona(battle.RoleRespondent)
	rp.Model = a.displayName(a.cfg.Respondent)
	a.log.Debug("battle prepared", "script", script.Name(), "evaluator", ev.Model, "respondent", rp.Model, "max_rounds", st.MaxFollowUpRounds)
	return &battleserver.Battle{
		Engine:     engine,
		State:      st,
		Script:     script.Name(),
		Evaluator:  ev,
		Respondent: rp,
	}, nil
}

func (a *arena) displayName(name string) string {
	if info, ok := a.models[name]; ok {
		return info.DisplayName()
	}
	return name
}

// envelope returns the addresses of the named script.
func (a *arena) envelope(script string) battle.Envelope {
	s, err := a.library.Get(script)
	if err != nil {
		return battle.Envelope{}
	}
	return s.Envelope()
}
