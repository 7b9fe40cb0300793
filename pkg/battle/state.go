package battle

import (
	"fmt"
	"slices"
)

// DefaultMaxFollowUpRounds bounds the follow-up loop when no limit is given.
const DefaultMaxFollowUpRounds = 5

// State is the mutable accumulation of one battle. Nodes never modify it
// directly; they return an Update that the Engine merges.
type State struct {
	Transcript        []Entry  `json:"transcript" yaml:"transcript" msgpack:"transcript"`
	FollowUpRound     int      `json:"follow_up_round" yaml:"follow_up_round" msgpack:"follow_up_round"`
	MaxFollowUpRounds int      `json:"max_follow_up_rounds" yaml:"max_follow_up_rounds" msgpack:"max_follow_up_rounds"`
	Decision          Decision `json:"decision,omitzero" yaml:"decision,omitempty" msgpack:"decision,omitempty"`
	IsRefusal         bool     `json:"is_refusal" yaml:"is_refusal" msgpack:"is_refusal"`
	Outcome           Outcome  `json:"outcome,omitzero" yaml:"outcome,omitempty" msgpack:"outcome,omitempty"`
	Winner            Winner   `json:"winner,omitzero" yaml:"winner,omitempty" msgpack:"winner,omitempty"`
	Error             string   `json:"error,omitzero" yaml:"error,omitempty" msgpack:"error,omitempty"`
}

// NewState returns an empty battle state. A zero maxRounds selects
// DefaultMaxFollowUpRounds; a negative one is rejected.
func NewState(maxRounds int) (*State, error) {
	if maxRounds == 0 {
		maxRounds = DefaultMaxFollowUpRounds
	}
	if maxRounds < 0 {
		return nil, fmt.Errorf("%w: max follow-up rounds must be positive, got %d", ErrInvalidState, maxRounds)
	}
	return &State{MaxFollowUpRounds: maxRounds}, nil
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.Transcript = slices.Clone(s.Transcript)
	return &c
}

// Resolved reports whether the battle has an outcome.
func (s *State) Resolved() bool {
	return s.Outcome != ""
}

// Failed reports whether the battle stopped on an error.
func (s *State) Failed() bool {
	return s.Error != ""
}

// Validate checks the state invariants.
func (s *State) Validate() error {
	if s.MaxFollowUpRounds <= 0 {
		return fmt.Errorf("%w: max follow-up rounds must be positive, got %d", ErrInvalidState, s.MaxFollowUpRounds)
	}
	if s.FollowUpRound < 0 || s.FollowUpRound > s.MaxFollowUpRounds {
		return fmt.Errorf("%w: follow-up round %d outside [0, %d]", ErrInvalidState, s.FollowUpRound, s.MaxFollowUpRounds)
	}
	if s.Decision != "" && !s.Decision.IsValid() {
		return fmt.Errorf("%w: decision %q", ErrInvalidState, s.Decision)
	}
	if s.Outcome != "" && !s.Outcome.IsValid() {
		return fmt.Errorf("%w: outcome %q", ErrInvalidState, s.Outcome)
	}
	if (s.Outcome == "") != (s.Winner == "") {
		return fmt.Errorf("%w: outcome %q and winner %q must be set together", ErrInvalidState, s.Outcome, s.Winner)
	}
	if s.Outcome != "" && s.Winner != WinnerFor(s.Outcome) {
		return fmt.Errorf("%w: winner %q does not follow outcome %q", ErrInvalidState, s.Winner, s.Outcome)
	}
	return nil
}

// Update is the partial state a node returns. Nil pointers and an empty
// Transcript mean "unchanged".
type Update struct {
	Transcript    []Entry   `json:"transcript,omitzero" yaml:"transcript,omitempty" msgpack:"transcript,omitempty"`
	FollowUpRound *int      `json:"follow_up_round,omitzero" yaml:"follow_up_round,omitempty" msgpack:"follow_up_round,omitempty"`
	Decision      *Decision `json:"decision,omitzero" yaml:"decision,omitempty" msgpack:"decision,omitempty"`
	IsRefusal     *bool     `json:"is_refusal,omitzero" yaml:"is_refusal,omitempty" msgpack:"is_refusal,omitempty"`
	Outcome       *Outcome  `json:"outcome,omitzero" yaml:"outcome,omitempty" msgpack:"outcome,omitempty"`
	Winner        *Winner   `json:"winner,omitzero" yaml:"winner,omitempty" msgpack:"winner,omitempty"`
	Error         *string   `json:"error,omitzero" yaml:"error,omitempty" msgpack:"error,omitempty"`
}

// Fields returns the fields u sets, in merge order.
func (u *Update) Fields() []Field {
	var fs []Field
	for _, f := range Fields {
		if u.has(f) {
			fs = append(fs, f)
		}
	}
	return fs
}

// IsEmpty reports whether u changes nothing.
func (u *Update) IsEmpty() bool {
	return len(u.Fields()) == 0
}

func (u *Update) has(f Field) bool {
	switch f {
	case FieldTranscript:
		return len(u.Transcript) > 0
	case FieldFollowUpRound:
		return u.FollowUpRound != nil
	case FieldDecision:
		return u.Decision != nil
	case FieldIsRefusal:
		return u.IsRefusal != nil
	case FieldOutcome:
		return u.Outcome != nil
	case FieldWinner:
		return u.Winner != nil
	case FieldError:
		return u.Error != nil
	}
	return false
}

func ptr[T any](v T) *T { return &v }
