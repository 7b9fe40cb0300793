package battle

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/haivivi/emailbattle/pkg/textgen"
)

func TestDecision_UnmarshalJSON(t *testing.T) {
	var v struct {
		D Decision `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"FOLLOW_UP"}`), &v); err != nil || v.D != DecisionFollowUp {
		t.Errorf("got %q, %v", v.D, err)
	}
	if err := json.Unmarshal([]byte(`{"d":""}`), &v); err != nil || v.D != "" {
		t.Errorf("empty label: got %q, %v", v.D, err)
	}
	err := json.Unmarshal([]byte(`{"d":"MAYBE"}`), &v)
	if err == nil || !strings.Contains(err.Error(), "invalid decision") {
		t.Errorf("unknown label error = %v", err)
	}
}

func TestLabels_YAML(t *testing.T) {
	var v struct {
		Outcome Outcome `yaml:"outcome"`
		Winner  Winner  `yaml:"winner"`
		Turn    Turn    `yaml:"turn"`
	}
	if err := yaml.Unmarshal([]byte("outcome: MAX_ROUNDS\nwinner: DRAW\nturn: kickoff\n"), &v); err != nil {
		t.Fatal(err)
	}
	if v.Outcome != OutcomeMaxRounds || v.Winner != WinnerDraw || v.Turn != TurnKickoff {
		t.Errorf("decoded %+v", v)
	}
	if err := yaml.Unmarshal([]byte("turn: epilogue\n"), &v); err == nil {
		t.Error("unknown turn accepted")
	}
}

func TestState_MsgpackRoundTrip(t *testing.T) {
	s := State{
		MaxFollowUpRounds: 3,
		FollowUpRound:     1,
		Decision:          DecisionTerminated,
		Outcome:           OutcomeTerminated,
		Winner:            WinnerA,
		Transcript:        []Entry{{Sender: "a", Recipient: "b", Subject: "s", Body: "x", Timestamp: "2025-01-01 00:00:00"}},
	}
	data, err := msgpack.Marshal(&s)
	if err != nil {
		t.Fatal(err)
	}
	var got State
	if err := msgpack.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Outcome != s.Outcome || got.Winner != s.Winner || len(got.Transcript) != 1 {
		t.Errorf("round trip = %+v", got)
	}

	bad, _ := msgpack.Marshal(map[string]any{"max_follow_up_rounds": 1, "winner": "C"})
	if err := msgpack.Unmarshal(bad, &got); err == nil {
		t.Error("unknown winner accepted")
	}
}

func TestVerdictSchema(t *testing.T) {
	v, err := textgen.Decode[Verdict](VerdictSchema, []byte(`{"decision":"RETAINED","email_body":"ok","reasoning":"fine"}`))
	if err != nil {
		t.Fatal(err)
	}
	if v.Decision != DecisionRetained {
		t.Errorf("Decision = %q", v.Decision)
	}
	for _, raw := range []string{
		`{"decision":"FIRED","email_body":"","reasoning":""}`,
		`{"decision":"PASS","reasoning":""}`,
	} {
		if _, err := textgen.Decode[Verdict](VerdictSchema, []byte(raw)); err == nil {
			t.Errorf("Decode(%s) accepted", raw)
		}
	}
}
