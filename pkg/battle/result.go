package battle

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Persona identifies who played a side and on which model.
type Persona struct {
	Role  Role   `json:"role" yaml:"role" msgpack:"role"`
	Name  string `json:"name" yaml:"name" msgpack:"name"`
	Model string `json:"model,omitempty" yaml:"model,omitempty" msgpack:"model,omitempty"`
}

// Result is the snapshot of a finished battle handed to presentation
// layers. It carries either Outcome and Winner or Error.
type Result struct {
	ID         string    `json:"id" yaml:"id" msgpack:"id"`
	Script     string    `json:"script,omitempty" yaml:"script,omitempty" msgpack:"script,omitempty"`
	Evaluator  Persona   `json:"evaluator" yaml:"evaluator" msgpack:"evaluator"`
	Respondent Persona   `json:"respondent" yaml:"respondent" msgpack:"respondent"`
	Outcome    Outcome   `json:"outcome,omitempty" yaml:"outcome,omitempty" msgpack:"outcome,omitempty"`
	Winner     Winner    `json:"winner,omitempty" yaml:"winner,omitempty" msgpack:"winner,omitempty"`
	Rounds     int       `json:"rounds" yaml:"rounds" msgpack:"rounds"`
	MaxRounds  int       `json:"max_rounds" yaml:"max_rounds" msgpack:"max_rounds"`
	Transcript []Entry   `json:"transcript" yaml:"transcript" msgpack:"transcript"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error,omitempty"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at" msgpack:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at" msgpack:"finished_at"`
}

// NewResult snapshots s. The transcript is copied.
func NewResult(s *State, evaluator, respondent Persona, started, finished time.Time) *Result {
	return &Result{
		ID:         uuid.NewString(),
		Evaluator:  evaluator,
		Respondent: respondent,
		Outcome:    s.Outcome,
		Winner:     s.Winner,
		Rounds:     s.FollowUpRound,
		MaxRounds:  s.MaxFollowUpRounds,
		Transcript: slices.Clone(s.Transcript),
		Error:      s.Error,
		StartedAt:  started,
		FinishedAt: finished,
	}
}

// WinnerName resolves the winner label to the persona name, or "DRAW".
func (r *Result) WinnerName() string {
	switch r.Winner {
	case WinnerA:
		return r.Evaluator.Name
	case WinnerB:
		return r.Respondent.Name
	default:
		return string(r.Winner)
	}
}

// Duration is the wall time the battle took.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
