package battle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haivivi/emailbattle/pkg/textgen"
)

// Handler runs one node. It reads s and returns the fields it changed.
type Handler func(ctx context.Context, s *State) (Update, error)

func (e *Engine) handlers() map[NodeName]Handler {
	return map[NodeName]Handler{
		NodeMassEmail:          e.massEmail,
		NodeRespondentInitial:  e.respondentInitial,
		NodeEvaluatorDecision:  e.evaluatorDecision,
		NodeRespondentFollowUp: e.respondentFollowUp,
		NodeOutcomeResolver:    e.outcomeResolver,
	}
}

// massEmail has the evaluator write the opening broadcast.
func (e *Engine) massEmail(ctx context.Context, s *State) (Update, error) {
	env := e.script.Envelope()
	prompt, err := e.script.Prompt(TurnKickoff, PromptData{
		Round:     s.FollowUpRound,
		MaxRounds: s.MaxFollowUpRounds,
	})
	if err != nil {
		return Update{}, fmt.Errorf("battle: %s: %w", NodeMassEmail, err)
	}
	body, err := e.evaluator.Generate(ctx, &textgen.Request{
		Instructions: e.script.Instructions(RoleEvaluator),
		Input:        prompt,
	})
	if err != nil {
		return Update{}, &BackendError{Node: NodeMassEmail, Role: RoleEvaluator, Err: err}
	}
	entry, err := NewEntry(env.EvaluatorAddress, env.BroadcastRecipient, env.Subject, body, e.stamp(s))
	if err != nil {
		return Update{}, err
	}
	return Update{Transcript: []Entry{entry}}, nil
}

func (e *Engine) respondentInitial(ctx context.Context, s *State) (Update, error) {
	text, refused, err := e.respond(ctx, NodeRespondentInitial, TurnInitialReply, s)
	if err != nil {
		return Update{}, err
	}
	if refused {
		return refusalUpdate(), nil
	}
	env := e.script.Envelope()
	entry, err := NewEntry(env.RespondentAddress, env.EvaluatorAddress, env.InitialReplySubject(), text, e.stamp(s))
	if err != nil {
		return Update{}, err
	}
	return Update{
		Transcript: []Entry{entry},
		IsRefusal:  ptr(false),
	}, nil
}

// evaluatorDecision asks the evaluator for a structured verdict. Only
// FOLLOW_UP and TERMINATED produce a message.
func (e *Engine) evaluatorDecision(ctx context.Context, s *State) (Update, error) {
	turn := TurnInitialReview
	if s.FollowUpRound > 0 {
		turn = TurnFollowUpReview
	}
	prompt, err := e.script.Prompt(turn, e.promptData(s))
	if err != nil {
		return Update{}, fmt.Errorf("battle: %s: %w", NodeEvaluatorDecision, err)
	}
	v, err := textgen.Invoke[Verdict](ctx, e.evaluator, &textgen.Request{
		Instructions: e.script.Instructions(RoleEvaluator),
		Input:        prompt,
	}, VerdictSchema)
	if err != nil {
		if errors.Is(err, textgen.ErrSchemaViolation) {
			err = fmt.Errorf("%w: %w", ErrContractViolation, err)
		}
		return Update{}, &BackendError{Node: NodeEvaluatorDecision, Role: RoleEvaluator, Err: err}
	}
	if !v.Decision.IsValid() {
		return Update{}, &BackendError{
			Node: NodeEvaluatorDecision,
			Role: RoleEvaluator,
			Err:  fmt.Errorf("%w: decision %q", ErrContractViolation, v.Decision),
		}
	}
	e.log.Debug("evaluator decision",
		"round", s.FollowUpRound,
		"decision", v.Decision,
		"reasoning", v.Reasoning,
	)

	u := Update{Decision: ptr(v.Decision)}
	env := e.script.Envelope()
	var subject string
	switch v.Decision {
	case DecisionFollowUp:
		subject = env.FollowUpSubject(s.FollowUpRound)
	case DecisionTerminated:
		subject = env.TerminationSubject
	default:
		return u, nil
	}
	entry, err := NewEntry(env.EvaluatorAddress, env.RespondentAddress, subject, v.EmailBody, e.stamp(s))
	if err != nil {
		return Update{}, err
	}
	u.Transcript = []Entry{entry}
	return u, nil
}

// respondentFollowUp answers a follow-up and completes one round. The round
// counter advances after the reply entry is built. The reply subject encodes
// the round being completed (FollowUpRound+1), so it sits one "RE: " deeper
// than the follow-up it answers, which was addressed with FollowUpRound.
func (e *Engine) respondentFollowUp(ctx context.Context, s *State) (Update, error) {
	text, refused, err := e.respond(ctx, NodeRespondentFollowUp, TurnFollowUpReply, s)
	if err != nil {
		return Update{}, err
	}
	if refused {
		return refusalUpdate(), nil
	}
	round := s.FollowUpRound + 1
	env := e.script.Envelope()
	entry, err := NewEntry(env.RespondentAddress, env.EvaluatorAddress, env.FollowUpReplySubject(round), text, e.stamp(s))
	if err != nil {
		return Update{}, err
	}
	return Update{
		Transcript:    []Entry{entry},
		FollowUpRound: ptr(round),
		IsRefusal:     ptr(false),
	}, nil
}

func (e *Engine) outcomeResolver(_ context.Context, s *State) (Update, error) {
	o := ResolveOutcome(s)
	if o == OutcomeUnknown {
		e.log.Warn("battle resolved without a terminal decision",
			"decision", s.Decision,
			"round", s.FollowUpRound,
		)
	}
	return Update{
		Outcome: ptr(o),
		Winner:  ptr(WinnerFor(o)),
	}, nil
}

// respond runs a respondent turn and classifies the reply. A provider-side
// block counts as a refusal.
func (e *Engine) respond(ctx context.Context, node NodeName, turn Turn, s *State) (string, bool, error) {
	prompt, err := e.script.Prompt(turn, e.promptData(s))
	if err != nil {
		return "", false, fmt.Errorf("battle: %s: %w", node, err)
	}
	text, err := e.respondent.Generate(ctx, &textgen.Request{
		Instructions: e.script.Instructions(RoleRespondent),
		Input:        prompt,
	})
	if err != nil {
		if errors.Is(err, textgen.ErrBlocked) {
			e.log.Info("respondent blocked by provider", "node", node, "error", err)
			return "", true, nil
		}
		return "", false, &BackendError{Node: node, Role: RoleRespondent, Err: err}
	}
	if e.detector.IsRefusal(text) {
		e.log.Info("respondent refused", "node", node)
		return text, true, nil
	}
	return text, false, nil
}

func refusalUpdate() Update {
	return Update{
		IsRefusal: ptr(true),
		Outcome:   ptr(OutcomeRefusal),
		Winner:    ptr(WinnerFor(OutcomeRefusal)),
	}
}

func (e *Engine) promptData(s *State) PromptData {
	return PromptData{
		Thread:    FormatThread(s.Transcript, !e.oldestFirst),
		Round:     s.FollowUpRound,
		MaxRounds: s.MaxFollowUpRounds,
	}
}

// stamp returns the clock reading, never earlier than the last entry so
// transcript timestamps stay non-decreasing.
func (e *Engine) stamp(s *State) time.Time {
	now := e.clock()
	if n := len(s.Transcript); n > 0 {
		last, err := time.ParseInLocation(TimeLayout, s.Transcript[n-1].Timestamp, now.Location())
		if err == nil && now.Before(last) {
			return last
		}
	}
	return now
}
