package persona

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/haivivi/emailbattle/pkg/battle"
)

const twoScripts = `
default: b
scripts:
  - name: a
    evaluator: {name: Ann, instructions: review}
    respondent: {name: Bob, instructions: reply}
    envelope:
      evaluator_address: Ann <ann@x>
      respondent_address: Bob <bob@x>
      broadcast_recipient: Everyone
      subject: Status
      termination_subject: Bye
    prompts:
      kickoff: write the broadcast
      initial_reply: "reply to:\n{{.Thread}}"
      initial_review: "review:\n{{.Thread}}"
      follow_up_reply: "{{.Evaluator}} asks again:\n{{.Thread}}"
      follow_up_review: "round {{.Round}} of {{.MaxRounds}} on {{.Envelope.Subject}}:\n{{.Thread}}"
  - name: b
    evaluator: {name: Cy, instructions: review}
    respondent: {name: Di, instructions: reply}
    envelope:
      evaluator_address: Cy <cy@x>
      respondent_address: Di <di@x>
      broadcast_recipient: Everyone
      subject: Audit
      termination_subject: Done
    prompts:
      kickoff: k
      initial_reply: r
      initial_review: v
      follow_up_reply: f
      follow_up_review: g
`

func TestParse(t *testing.T) {
	l, err := Parse([]byte(twoScripts))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, l.Names()); diff != "" {
		t.Errorf("Names() (-want +got):\n%s", diff)
	}
	def, err := l.Get("")
	if err != nil || def.Name() != "b" || l.DefaultName() != "b" {
		t.Errorf("default = %v, %v", def, err)
	}
	if _, err := l.Get("zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(zzz) error = %v", err)
	}

	s, _ := l.Get("a")
	got, err := s.Prompt(battle.TurnFollowUpReview, battle.PromptData{Thread: "THREAD", Round: 2, MaxRounds: 5})
	if err != nil {
		t.Fatal(err)
	}
	if want := "round 2 of 5 on Status:\nTHREAD"; got != want {
		t.Errorf("Prompt = %q, want %q", got, want)
	}
	got, _ = s.Prompt(battle.TurnFollowUpReply, battle.PromptData{Thread: "T"})
	if got != "Ann asks again:\nT" {
		t.Errorf("Prompt(follow_up_reply) = %q", got)
	}
	if s.Instructions(battle.RoleRespondent) != "reply" || s.Instructions(battle.RoleEvaluator) != "review" {
		t.Error("instructions swapped")
	}
	if p := s.Persona(battle.RoleRespondent); p.Name != "Bob" || p.Role != battle.RoleRespondent {
		t.Errorf("Persona = %+v", p)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "unknown key",
			mutate:  func(s string) string { return strings.Replace(s, "default: b", "default: b\nextra: 1", 1) },
			wantErr: "extra",
		},
		{
			name:    "unknown turn",
			mutate:  func(s string) string { return strings.Replace(s, "kickoff: k", "kickoff: k\n      epilogue: e", 1) },
			wantErr: "epilogue",
		},
		{
			name:    "missing prompt",
			mutate:  func(s string) string { return strings.Replace(s, "      follow_up_review: g\n", "", 1) },
			wantErr: "missing prompt for follow_up_review",
		},
		{
			name:    "bad template field",
			mutate:  func(s string) string { return strings.Replace(s, "initial_reply: r", "initial_reply: \"{{.Transcript}}\"", 1) },
			wantErr: "Transcript",
		},
		{
			name:    "missing envelope field",
			mutate:  func(s string) string { return strings.Replace(s, "      termination_subject: Done\n", "", 1) },
			wantErr: "termination_subject",
		},
		{
			name:    "missing persona name",
			mutate:  func(s string) string { return strings.Replace(s, "{name: Di, instructions: reply}", "{instructions: reply}", 1) },
			wantErr: "respondent name",
		},
		{
			name:    "duplicate",
			mutate:  func(s string) string { return strings.Replace(s, "- name: b", "- name: a", 1) },
			wantErr: "duplicate",
		},
		{
			name:    "undefined default",
			mutate:  func(s string) string { return strings.Replace(s, "default: b", "default: c", 1) },
			wantErr: `default script "c"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.mutate(twoScripts)))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := Parse(nil); err == nil {
		t.Error("Parse(nil) should fail")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	if err := os.WriteFile(path, []byte(twoScripts), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Names()) != 2 {
		t.Errorf("Names() = %v", l.Names())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) should fail")
	}
}

func TestDefault(t *testing.T) {
	l := Default()
	s, err := l.Get("")
	if err != nil {
		t.Fatal(err)
	}
	env := s.Envelope()
	if env.EvaluatorAddress != "Elon Musk <elon.musk@doge.gov>" || env.RespondentAddress != "John Smith <john.smith@uscis.gov>" {
		t.Errorf("envelope = %+v", env)
	}
	if got := env.FollowUpReplySubject(1); got != "RE: RE: RE: DOGE Efficiency Review" {
		t.Errorf("FollowUpReplySubject(1) = %q", got)
	}

	kickoff, err := s.Prompt(battle.TurnKickoff, battle.PromptData{MaxRounds: 5})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(kickoff, "Write a mass email") {
		t.Errorf("kickoff = %q", kickoff)
	}
	reply, err := s.Prompt(battle.TurnFollowUpReply, battle.PromptData{Thread: "THREAD-MARKER", Round: 1, MaxRounds: 5})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(reply, "Elon Musk is following up") || !strings.HasSuffix(reply, "THREAD-MARKER") {
		t.Errorf("follow_up_reply = %q", reply)
	}
	for _, role := range []battle.Role{battle.RoleEvaluator, battle.RoleRespondent} {
		if s.Instructions(role) == "" {
			t.Errorf("no instructions for %s", role)
		}
	}
}
