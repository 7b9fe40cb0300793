package battle

import (
	"errors"
	"strings"
)

// Script supplies everything persona-specific: role instructions, per-turn
// prompts and the envelope used to address messages.
type Script interface {
	// Instructions returns the system instructions for role.
	Instructions(role Role) string

	// Prompt renders the prompt for turn.
	Prompt(turn Turn, data PromptData) (string, error)

	Envelope() Envelope
}

// PromptData is passed to Script.Prompt.
type PromptData struct {
	// Thread is the formatted transcript; empty for the kickoff turn.
	Thread    string
	Round     int
	MaxRounds int
}

// Envelope holds addresses and subject lines.
type Envelope struct {
	EvaluatorAddress   string `json:"evaluator_address" yaml:"evaluator_address"`
	RespondentAddress  string `json:"respondent_address" yaml:"respondent_address"`
	BroadcastRecipient string `json:"broadcast_recipient" yaml:"broadcast_recipient"`
	Subject            string `json:"subject" yaml:"subject"`
	// ReplySubject is the base subject of respondent follow-up replies.
	// Subject is used when empty.
	ReplySubject       string `json:"reply_subject,omitempty" yaml:"reply_subject,omitempty"`
	TerminationSubject string `json:"termination_subject" yaml:"termination_subject"`
}

func (e Envelope) Validate() error {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"evaluator_address", e.EvaluatorAddress},
		{"respondent_address", e.RespondentAddress},
		{"broadcast_recipient", e.BroadcastRecipient},
		{"subject", e.Subject},
		{"termination_subject", e.TerminationSubject},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.New("battle: envelope missing " + strings.Join(missing, ", "))
	}
	return nil
}

func replyPrefix(n int) string {
	return strings.Repeat("RE: ", n)
}

// InitialReplySubject is the subject of the respondent's first reply.
func (e Envelope) InitialReplySubject() string {
	return replyPrefix(1) + e.Subject
}

// FollowUpSubject is the subject of an evaluator follow-up sent while
// round follow-ups have completed.
func (e Envelope) FollowUpSubject(round int) string {
	return replyPrefix(round+2) + e.Subject
}

// FollowUpReplySubject is the subject of the respondent reply that completes
// round.
func (e Envelope) FollowUpReplySubject(round int) string {
	base := e.ReplySubject
	if base == "" {
		base = e.Subject
	}
	return replyPrefix(round+2) + base
}
