package battle

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/haivivi/emailbattle/pkg/textgen"
)

// DefaultCallTimeout bounds a single backend call.
const DefaultCallTimeout = 2 * time.Minute

const tracerName = "github.com/haivivi/emailbattle/pkg/battle"

// Config wires an Engine.
type Config struct {
	// Evaluator backs side A, Respondent side B. Both are required.
	Evaluator  textgen.Generator
	Respondent textgen.Generator

	// Script supplies prompts and addresses. Required.
	Script Script

	// RefusalDetector classifies respondent replies.
	// DefaultRefusalDetector is used when nil.
	RefusalDetector RefusalDetector

	// CallTimeout bounds every backend call. Zero selects
	// DefaultCallTimeout; a negative value disables the bound.
	CallTimeout time.Duration

	// OldestFirst renders the thread chronologically in backend context.
	// By default the newest message comes first.
	OldestFirst bool

	Clock  func() time.Time
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Engine runs battles. An Engine holds no per-battle state; each battle
// owns its State.
type Engine struct {
	evaluator   textgen.Generator
	respondent  textgen.Generator
	script      Script
	detector    RefusalDetector
	oldestFirst bool
	clock       func() time.Time
	log         *slog.Logger
	tracer      trace.Tracer
	nodes       map[NodeName]Handler
}

func New(cfg Config) (*Engine, error) {
	if cfg.Evaluator == nil || cfg.Respondent == nil {
		return nil, errors.New("battle: evaluator and respondent backends are required")
	}
	if cfg.Script == nil {
		return nil, errors.New("battle: script is required")
	}
	if err := cfg.Script.Envelope().Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = DefaultCallTimeout
	}
	e := &Engine{
		evaluator:   textgen.WithTimeout(cfg.Evaluator, timeout),
		respondent:  textgen.WithTimeout(cfg.Respondent, timeout),
		script:      cfg.Script,
		detector:    cfg.RefusalDetector,
		oldestFirst: cfg.OldestFirst,
		clock:       cfg.Clock,
		log:         cfg.Logger,
		tracer:      cfg.Tracer,
	}
	if e.detector == nil {
		e.detector = DefaultRefusalDetector
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	e.nodes = e.handlers()
	return e, nil
}

// Step is one executed node.
type Step struct {
	Node   NodeName `json:"node" yaml:"node" msgpack:"node"`
	Update Update   `json:"update" yaml:"update" msgpack:"update"`
	// State is a snapshot taken after Update was merged.
	State *State `json:"state" yaml:"state" msgpack:"state"`
}

// Stream runs the battle on s and yields one Step per executed node, in
// order. Updates are merged into s before they are yielded. The sequence
// ends after OutcomeResolver or after the first failure; a failure yields
// a final Step carrying the error, with s.Error set. An invalid s fails
// the same way before any node runs. Stopping the iteration early abandons
// the battle without touching s.Error.
func (e *Engine) Stream(ctx context.Context, s *State) iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		if err := s.Validate(); err != nil {
			// Merge would reject an invalid state; record the error directly.
			msg := err.Error()
			s.Error = msg
			e.log.Error("battle rejected", "error", err)
			yield(Step{Update: Update{Error: &msg}, State: s.Clone()}, err)
			return
		}
		ctx, span := e.tracer.Start(ctx, "battle.run", trace.WithAttributes(
			attribute.Int("battle.max_follow_up_rounds", s.MaxFollowUpRounds),
		))
		defer span.End()

		node := StartNode
		for node != End {
			if err := ctx.Err(); err != nil {
				e.fail(span, s, node, err, yield)
				return
			}
			u, err := e.step(ctx, node, s)
			if err != nil {
				e.fail(span, s, node, err, yield)
				return
			}
			next, err := Next(node, s)
			if err != nil {
				e.fail(span, s, node, err, yield)
				return
			}
			if !yield(Step{Node: node, Update: u, State: s.Clone()}, nil) {
				return
			}
			node = next
		}

		span.SetAttributes(
			attribute.String("battle.outcome", string(s.Outcome)),
			attribute.String("battle.winner", string(s.Winner)),
			attribute.Int("battle.follow_up_round", s.FollowUpRound),
		)
		e.log.Info("battle resolved",
			"outcome", s.Outcome,
			"winner", s.Winner,
			"rounds", s.FollowUpRound,
			"messages", len(s.Transcript),
		)
	}
}

// step runs node on a snapshot of s and merges the result into s.
func (e *Engine) step(ctx context.Context, node NodeName, s *State) (Update, error) {
	h, ok := e.nodes[node]
	if !ok {
		return Update{}, fmt.Errorf("%w: no handler for %q", ErrBadRoute, node)
	}
	ctx, span := e.tracer.Start(ctx, "battle."+string(node), trace.WithAttributes(
		attribute.Int("battle.follow_up_round", s.FollowUpRound),
	))
	defer span.End()

	start := time.Now()
	e.log.Debug("node start", "node", node, "round", s.FollowUpRound)
	u, err := h(ctx, s.Clone())
	if err == nil {
		err = s.Merge(u)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Update{}, err
	}
	e.log.Debug("node done",
		"node", node,
		"fields", u.Fields(),
		"elapsed", time.Since(start),
	)
	return u, nil
}

func (e *Engine) fail(span trace.Span, s *State, node NodeName, err error, yield func(Step, error) bool) {
	msg := err.Error()
	if mergeErr := s.Merge(Update{Error: &msg}); mergeErr != nil {
		s.Error = msg
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	e.log.Error("battle failed", "node", node, "error", err)
	yield(Step{Node: node, Update: Update{Error: &msg}, State: s.Clone()}, err)
}

// Run drives Stream to completion and returns s.
func (e *Engine) Run(ctx context.Context, s *State) (*State, error) {
	for _, err := range e.Stream(ctx, s) {
		if err != nil {
			return s, err
		}
	}
	return s, nil
}
