package battle

import (
	"fmt"
	"slices"
)

// NodeName identifies a node in the battle graph.
type NodeName string

const (
	NodeMassEmail          NodeName = "mass_email"
	NodeRespondentInitial  NodeName = "respondent_initial"
	NodeEvaluatorDecision  NodeName = "evaluator_decision"
	NodeRespondentFollowUp NodeName = "respondent_follow_up"
	NodeOutcomeResolver    NodeName = "outcome_resolver"

	// End is the pseudo-node after OutcomeResolver.
	End NodeName = "__end__"
)

// StartNode is the first node of every battle.
const StartNode = NodeMassEmail

// Nodes lists the graph nodes in declaration order.
var Nodes = []NodeName{
	NodeMassEmail,
	NodeRespondentInitial,
	NodeEvaluatorDecision,
	NodeRespondentFollowUp,
	NodeOutcomeResolver,
}

func (n NodeName) IsValid() bool {
	_, ok := routes[n]
	return ok
}

// route pairs a node's router with the targets it may answer.
type route struct {
	router  Router
	targets []NodeName
}

var routes = map[NodeName]route{
	NodeMassEmail: {
		router:  Always(NodeRespondentInitial),
		targets: []NodeName{NodeRespondentInitial},
	},
	NodeRespondentInitial: {
		router:  AfterInitialResponse,
		targets: []NodeName{NodeEvaluatorDecision, NodeOutcomeResolver},
	},
	NodeEvaluatorDecision: {
		router:  AfterEvaluatorDecision,
		targets: []NodeName{NodeRespondentFollowUp, NodeOutcomeResolver},
	},
	NodeRespondentFollowUp: {
		router:  AfterFollowUp,
		targets: []NodeName{NodeEvaluatorDecision, NodeOutcomeResolver},
	},
	NodeOutcomeResolver: {
		router:  Always(End),
		targets: []NodeName{End},
	},
}

// Targets returns the nodes n may route to.
func Targets(n NodeName) []NodeName {
	return slices.Clone(routes[n].targets)
}

// Next runs n's router on s and checks the answer against n's targets.
func Next(n NodeName, s *State) (NodeName, error) {
	r, ok := routes[n]
	if !ok {
		return "", fmt.Errorf("%w: unknown node %q", ErrBadRoute, n)
	}
	next := r.router(s)
	if !slices.Contains(r.targets, next) {
		return "", fmt.Errorf("%w: %s -> %s", ErrBadRoute, n, next)
	}
	return next, nil
}

// Edge is one transition of the graph.
type Edge struct {
	From NodeName `json:"from" yaml:"from" msgpack:"from"`
	To   NodeName `json:"to" yaml:"to" msgpack:"to"`
	// Conditional is set when From has more than one target.
	Conditional bool `json:"conditional" yaml:"conditional" msgpack:"conditional"`
}

// Edges lists every transition in node order.
func Edges() []Edge {
	var edges []Edge
	for _, n := range Nodes {
		r := routes[n]
		for _, t := range r.targets {
			edges = append(edges, Edge{From: n, To: t, Conditional: len(r.targets) > 1})
		}
	}
	return edges
}
