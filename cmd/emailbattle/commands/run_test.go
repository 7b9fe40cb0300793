package commands

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/haivivi/emailbattle/pkg/battle"
)

func TestRunFormatJSON(t *testing.T) {
	dir := writeTestYAML(t, "scripted.yaml", scriptedModels)
	stdout, stderr, code := runCmd(t, "run",
		"--models-dir", dir, "--evaluator", "judge", "--respondent", "clerk",
		"--max-rounds", "3", "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var res battle.Result
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if res.Outcome != battle.OutcomeTerminated || res.Winner != battle.WinnerA {
		t.Errorf("outcome/winner = %s/%s", res.Outcome, res.Winner)
	}
	if res.Rounds != 1 || res.MaxRounds != 3 || len(res.Transcript) != 5 {
		t.Errorf("rounds/max/len = %d/%d/%d", res.Rounds, res.MaxRounds, len(res.Transcript))
	}
	if res.Evaluator.Model != "Scripted Judge" || res.Respondent.Model != "clerk" {
		t.Errorf("models = %q/%q", res.Evaluator.Model, res.Respondent.Model)
	}
	if res.Script != "doge-review" {
		t.Errorf("script = %q", res.Script)
	}
}

func TestRunQuery(t *testing.T) {
	dir := writeTestYAML(t, "scripted.yaml", scriptedModels)
	stdout, stderr, code := runCmd(t, "run",
		"--models-dir", dir, "--evaluator", "judge", "--respondent", "clerk",
		"--format", "json", "-q", ".outcome")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != `"TERMINATED"` {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestRunRender(t *testing.T) {
	dir := writeTestYAML(t, "scripted.yaml", scriptedModels)
	stdout, stderr, code := runCmd(t, "run",
		"--models-dir", dir, "--evaluator", "judge", "--respondent", "clerk")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"Email 1", "Email 5", "BATTLE RESULT", "TERMINATED", "ELON MUSK WINS"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("missing %q in:\n%s", want, stdout)
		}
	}
}

func TestRunUnknownModel(t *testing.T) {
	dir := writeTestYAML(t, "scripted.yaml", scriptedModels)
	_, stderr, code := runCmd(t, "run",
		"--models-dir", dir, "--evaluator", "nope", "--respondent", "clerk")
	if code == 0 {
		t.Fatal("expected failure")
	}
	if !strings.Contains(stderr, "not found") {
		t.Fatalf("stderr: %s", stderr)
	}
}

func TestRunMissingModels(t *testing.T) {
	dir := writeTestYAML(t, "scripted.yaml", scriptedModels)
	_, stderr, code := runCmd(t, "run", "--models-dir", dir, "--evaluator", "judge")
	if code == 0 {
		t.Fatal("expected failure")
	}
	if !strings.Contains(stderr, "respondent models are required") {
		t.Fatalf("stderr: %s", stderr)
	}
}

func TestRunContractViolation(t *testing.T) {
	dir := writeTestYAML(t, "scripted.yaml", scriptedModels)
	stdout, stderr, code := runCmd(t, "run",
		"--models-dir", dir, "--evaluator", "erratic", "--respondent", "clerk",
		"--format", "json")
	if code == 0 {
		t.Fatal("expected failure")
	}
	if !strings.Contains(stderr, "battle failed") {
		t.Errorf("stderr: %s", stderr)
	}
	var res battle.Result
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if res.Error == "" || res.Outcome != "" {
		t.Errorf("result = %+v", res)
	}
}
