package battle

import (
	"errors"
	"slices"
	"testing"
)

func TestRouters(t *testing.T) {
	tests := []struct {
		name   string
		router Router
		state  State
		want   NodeName
	}{
		{"initial reply", AfterInitialResponse, State{MaxFollowUpRounds: 5}, NodeEvaluatorDecision},
		{"initial refusal", AfterInitialResponse, State{MaxFollowUpRounds: 5, IsRefusal: true}, NodeOutcomeResolver},
		{"follow up", AfterEvaluatorDecision, State{MaxFollowUpRounds: 5, Decision: DecisionFollowUp}, NodeRespondentFollowUp},
		{"pass", AfterEvaluatorDecision, State{MaxFollowUpRounds: 5, Decision: DecisionPass}, NodeOutcomeResolver},
		{"terminated", AfterEvaluatorDecision, State{MaxFollowUpRounds: 5, Decision: DecisionTerminated}, NodeOutcomeResolver},
		{"retained", AfterEvaluatorDecision, State{MaxFollowUpRounds: 5, Decision: DecisionRetained}, NodeOutcomeResolver},
		{"loop continues", AfterFollowUp, State{MaxFollowUpRounds: 5, FollowUpRound: 1, Decision: DecisionFollowUp}, NodeEvaluatorDecision},
		{"loop exhausted", AfterFollowUp, State{MaxFollowUpRounds: 2, FollowUpRound: 2, Decision: DecisionFollowUp}, NodeOutcomeResolver},
		{"follow-up refusal", AfterFollowUp, State{MaxFollowUpRounds: 5, IsRefusal: true}, NodeOutcomeResolver},
		{"always", Always(End), State{}, End},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.state
			for range 3 {
				if got := tt.router(&s); got != tt.want {
					t.Fatalf("router = %s, want %s", got, tt.want)
				}
			}
		})
	}
}

func TestNext(t *testing.T) {
	s := &State{MaxFollowUpRounds: 5, Decision: DecisionFollowUp}
	got, err := Next(NodeEvaluatorDecision, s)
	if err != nil || got != NodeRespondentFollowUp {
		t.Errorf("Next = %s, %v", got, err)
	}
	if _, err := Next("nowhere", s); !errors.Is(err, ErrBadRoute) {
		t.Errorf("Next(unknown) error = %v, want ErrBadRoute", err)
	}
	if got, err := Next(NodeOutcomeResolver, s); err != nil || got != End {
		t.Errorf("Next(resolver) = %s, %v", got, err)
	}
}

func TestGraphShape(t *testing.T) {
	for _, n := range Nodes {
		if !n.IsValid() {
			t.Errorf("%s not routed", n)
		}
		if len(Targets(n)) == 0 {
			t.Errorf("%s has no targets", n)
		}
	}
	if End.IsValid() {
		t.Error("End should not be a routable node")
	}

	edges := Edges()
	if len(edges) != 8 {
		t.Errorf("len(Edges()) = %d, want 8", len(edges))
	}
	for _, e := range edges {
		if e.From == NodeMassEmail && e.Conditional {
			t.Error("mass_email edge should be unconditional")
		}
		if e.From == NodeEvaluatorDecision && !e.Conditional {
			t.Error("evaluator_decision edges should be conditional")
		}
	}

	// Every node is reachable from the start.
	seen := map[NodeName]bool{StartNode: true}
	queue := []NodeName{StartNode}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range Targets(n) {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	for _, n := range append(slices.Clone(Nodes), End) {
		if !seen[n] {
			t.Errorf("%s unreachable", n)
		}
	}
}

func TestWinnerFor(t *testing.T) {
	tests := map[Outcome]Winner{
		OutcomeTerminated: WinnerA,
		OutcomeRefusal:    WinnerA,
		OutcomePass:       WinnerB,
		OutcomeRetained:   WinnerB,
		OutcomeMaxRounds:  WinnerDraw,
		OutcomeUnknown:    WinnerDraw,
	}
	for o, want := range tests {
		if got := WinnerFor(o); got != want {
			t.Errorf("WinnerFor(%s) = %s, want %s", o, got, want)
		}
	}
}

func TestResolveOutcome(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Outcome
	}{
		{"keeps refusal", State{MaxFollowUpRounds: 5, Outcome: OutcomeRefusal, Decision: DecisionPass}, OutcomeRefusal},
		{"pass", State{MaxFollowUpRounds: 5, Decision: DecisionPass}, OutcomePass},
		{"terminated", State{MaxFollowUpRounds: 5, Decision: DecisionTerminated}, OutcomeTerminated},
		{"retained", State{MaxFollowUpRounds: 5, FollowUpRound: 5, Decision: DecisionRetained}, OutcomeRetained},
		{"exhausted", State{MaxFollowUpRounds: 2, FollowUpRound: 2, Decision: DecisionFollowUp}, OutcomeMaxRounds},
		{"no decision", State{MaxFollowUpRounds: 5}, OutcomeUnknown},
		{"follow-up mid loop", State{MaxFollowUpRounds: 5, FollowUpRound: 1, Decision: DecisionFollowUp}, OutcomeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveOutcome(&tt.state); got != tt.want {
				t.Errorf("ResolveOutcome = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRoleSide(t *testing.T) {
	if RoleEvaluator.Side() != WinnerA || RoleRespondent.Side() != WinnerB {
		t.Error("role sides swapped")
	}
	for _, turn := range Turns {
		if !turn.Role().IsValid() {
			t.Errorf("turn %s has no role", turn)
		}
	}
}
