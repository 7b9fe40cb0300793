package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/haivivi/emailbattle/pkg/battle"
)

func testRenderer(buf *bytes.Buffer) *Renderer {
	r := NewRenderer(buf, Party{Name: "Ann", Address: "Ann <ann@x>"}, Party{Name: "Bob", Address: "Bob <bob@x>"})
	r.Width = 100
	return r
}

func TestRenderer_EmailCard(t *testing.T) {
	r := testRenderer(&bytes.Buffer{})
	res := testResult()

	card := r.EmailCard(2, res.Transcript[1])
	for _, want := range []string{"Email 2: BOB", "From: Bob <bob@x>", "Subject: RE: Status", "Did things."} {
		if !strings.Contains(card, want) {
			t.Errorf("card missing %q:\n%s", want, card)
		}
	}

	empty := r.EmailCard(1, battle.Entry{Sender: "Stranger", Recipient: "x", Subject: "s"})
	if !strings.Contains(empty, "STRANGER") || !strings.Contains(empty, "(empty)") {
		t.Errorf("unknown sender card:\n%s", empty)
	}
}

func TestRenderer_Step(t *testing.T) {
	var buf bytes.Buffer
	r := testRenderer(&buf)
	res := testResult()

	r.Step(battle.Step{Node: battle.NodeMassEmail, Update: battle.Update{Transcript: res.Transcript[:1]}})
	r.Step(battle.Step{Node: battle.NodeOutcomeResolver})
	r.Step(battle.Step{Node: battle.NodeRespondentInitial, Update: battle.Update{Transcript: res.Transcript[1:]}})

	out := buf.String()
	if !strings.Contains(out, "Email 1: ANN") || !strings.Contains(out, "Email 2: BOB") {
		t.Errorf("steps not numbered in order:\n%s", out)
	}
}

func TestRenderer_ResultBanner(t *testing.T) {
	r := testRenderer(&bytes.Buffer{})
	res := testResult()
	res.StartedAt = time.Date(2025, 2, 24, 9, 0, 0, 0, time.UTC)
	res.FinishedAt = res.StartedAt.Add(1500 * time.Millisecond)

	banner := r.ResultBanner(res)
	for _, want := range []string{"BATTLE RESULT", "TERMINATED", "2 / 5", "ANN WINS", "Ann's Model:", "gpt", "Bob's Model:", "1.5s"} {
		if !strings.Contains(banner, want) {
			t.Errorf("banner missing %q:\n%s", want, banner)
		}
	}

	res.Winner = battle.WinnerDraw
	res.Outcome = battle.OutcomeMaxRounds
	if banner := r.ResultBanner(res); !strings.Contains(banner, "DRAW") {
		t.Errorf("draw banner:\n%s", banner)
	}

	failed := &battle.Result{Error: "backend down", Evaluator: res.Evaluator, Respondent: res.Respondent}
	banner = r.ResultBanner(failed)
	if !strings.Contains(banner, "ERROR") || !strings.Contains(banner, "backend down") {
		t.Errorf("error banner:\n%s", banner)
	}
}
