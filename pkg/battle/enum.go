package battle

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Decision is the evaluator's structured verdict label.
type Decision string

const (
	DecisionPass       Decision = "PASS"
	DecisionFollowUp   Decision = "FOLLOW_UP"
	DecisionTerminated Decision = "TERMINATED"
	DecisionRetained   Decision = "RETAINED"
)

// Decisions lists every valid decision label in schema order.
var Decisions = []Decision{DecisionPass, DecisionFollowUp, DecisionTerminated, DecisionRetained}

var validDecisions = map[Decision]struct{}{
	DecisionPass:       {},
	DecisionFollowUp:   {},
	DecisionTerminated: {},
	DecisionRetained:   {},
}

// IsValid reports whether d is one of the four decision labels.
// The empty (unset) decision is not valid.
func (d Decision) IsValid() bool {
	_, ok := validDecisions[d]
	return ok
}

func (d *Decision) UnmarshalJSON(data []byte) error {
	return unmarshalLabel(json.Unmarshal, data, d, "decision")
}

func (d *Decision) UnmarshalMsgpack(data []byte) error {
	return unmarshalLabel(msgpack.Unmarshal, data, d, "decision")
}

func (d *Decision) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalYAMLLabel(value, d, "decision")
}

// Outcome is the terminal classification of a battle.
type Outcome string

const (
	OutcomePass       Outcome = "PASS"
	OutcomeTerminated Outcome = "TERMINATED"
	OutcomeRetained   Outcome = "RETAINED"
	OutcomeMaxRounds  Outcome = "MAX_ROUNDS"
	OutcomeRefusal    Outcome = "REFUSAL"
	OutcomeUnknown    Outcome = "UNKNOWN"
)

var validOutcomes = map[Outcome]struct{}{
	OutcomePass:       {},
	OutcomeTerminated: {},
	OutcomeRetained:   {},
	OutcomeMaxRounds:  {},
	OutcomeRefusal:    {},
	OutcomeUnknown:    {},
}

func (o Outcome) IsValid() bool {
	_, ok := validOutcomes[o]
	return ok
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	return unmarshalLabel(json.Unmarshal, data, o, "outcome")
}

func (o *Outcome) UnmarshalMsgpack(data []byte) error {
	return unmarshalLabel(msgpack.Unmarshal, data, o, "outcome")
}

func (o *Outcome) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalYAMLLabel(value, o, "outcome")
}

// Winner names the side that won: A is the evaluator, B the respondent.
type Winner string

const (
	WinnerA    Winner = "A"
	WinnerB    Winner = "B"
	WinnerDraw Winner = "DRAW"
)

var validWinners = map[Winner]struct{}{
	WinnerA:    {},
	WinnerB:    {},
	WinnerDraw: {},
}

func (w Winner) IsValid() bool {
	_, ok := validWinners[w]
	return ok
}

func (w *Winner) UnmarshalJSON(data []byte) error {
	return unmarshalLabel(json.Unmarshal, data, w, "winner")
}

func (w *Winner) UnmarshalMsgpack(data []byte) error {
	return unmarshalLabel(msgpack.Unmarshal, data, w, "winner")
}

func (w *Winner) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalYAMLLabel(value, w, "winner")
}

// Role is one of the two fixed personas.
type Role string

const (
	RoleEvaluator  Role = "evaluator"
	RoleRespondent Role = "respondent"
)

func (r Role) IsValid() bool {
	return r == RoleEvaluator || r == RoleRespondent
}

// Side returns the winner label that represents r.
func (r Role) Side() Winner {
	if r == RoleEvaluator {
		return WinnerA
	}
	return WinnerB
}

func (r *Role) UnmarshalJSON(data []byte) error {
	return unmarshalLabel(json.Unmarshal, data, r, "role")
}

func (r *Role) UnmarshalMsgpack(data []byte) error {
	return unmarshalLabel(msgpack.Unmarshal, data, r, "role")
}

func (r *Role) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalYAMLLabel(value, r, "role")
}

// Turn identifies which prompt a persona-invoking node asks the Script for.
type Turn string

const (
	TurnKickoff        Turn = "kickoff"
	TurnInitialReply   Turn = "initial_reply"
	TurnInitialReview  Turn = "initial_review"
	TurnFollowUpReply  Turn = "follow_up_reply"
	TurnFollowUpReview Turn = "follow_up_review"
)

// Turns lists every turn in workflow order.
var Turns = []Turn{TurnKickoff, TurnInitialReply, TurnInitialReview, TurnFollowUpReply, TurnFollowUpReview}

var turnRoles = map[Turn]Role{
	TurnKickoff:        RoleEvaluator,
	TurnInitialReply:   RoleRespondent,
	TurnInitialReview:  RoleEvaluator,
	TurnFollowUpReply:  RoleRespondent,
	TurnFollowUpReview: RoleEvaluator,
}

func (t Turn) IsValid() bool {
	_, ok := turnRoles[t]
	return ok
}

// Role returns the persona that speaks on turn t.
func (t Turn) Role() Role {
	return turnRoles[t]
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	return unmarshalLabel(json.Unmarshal, data, t, "turn")
}

func (t *Turn) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalYAMLLabel(value, t, "turn")
}

type label interface {
	~string
	IsValid() bool
}

// unmarshalLabel decodes a string label and rejects unknown values. The
// empty string decodes to the zero (unset) value.
func unmarshalLabel[T label](unmarshal func([]byte, any) error, data []byte, dst *T, kind string) error {
	var s string
	if err := unmarshal(data, &s); err != nil {
		return err
	}
	return setLabel(s, dst, kind)
}

func unmarshalYAMLLabel[T label](value *yaml.Node, dst *T, kind string) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return setLabel(s, dst, kind)
}

func setLabel[T label](s string, dst *T, kind string) error {
	v := T(s)
	if s != "" && !v.IsValid() {
		return fmt.Errorf("battle: invalid %s: %q", kind, s)
	}
	*dst = v
	return nil
}
