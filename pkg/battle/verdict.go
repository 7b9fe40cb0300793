package battle

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/haivivi/emailbattle/pkg/textgen"
)

// Verdict is the evaluator's structured decision.
type Verdict struct {
	Decision  Decision `json:"decision" jsonschema:"The decision about the employee. PASS: Response shows legitimate productivity, no follow-up needed. FOLLOW_UP: Response raises concerns, need to probe deeper. TERMINATED: Employee is clearly coasting, fire them. RETAINED: Employee has adequately demonstrated value."`
	EmailBody string   `json:"email_body" jsonschema:"The email content to send. For PASS decision, this can be a brief acknowledgment. For FOLLOW_UP, this should contain probing questions. For TERMINATED, this should be a termination notice. For RETAINED, this can be a brief acknowledgment."`
	Reasoning string   `json:"reasoning" jsonschema:"Brief explanation for the decision (1-2 sentences)."`
}

func decisionEnum() []any {
	out := make([]any, len(Decisions))
	for i, d := range Decisions {
		out[i] = string(d)
	}
	return out
}

// VerdictSchema constrains evaluator output to the four decision labels.
var VerdictSchema = textgen.MustNewSchema[Verdict](
	"review_decision",
	"Structured decision for an efficiency review email exchange",
	textgen.WithTypeSchema[Decision](&jsonschema.Schema{
		Type: "string",
		Enum: decisionEnum(),
	}),
)
