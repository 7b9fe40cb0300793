package battle

// Router picks the next node from the merged state. Routers are pure.
type Router func(s *State) NodeName

// Always routes unconditionally to next.
func Always(next NodeName) Router {
	return func(*State) NodeName { return next }
}

// AfterInitialResponse ends the battle on a refusal and otherwise hands the
// reply to the evaluator.
func AfterInitialResponse(s *State) NodeName {
	if s.IsRefusal {
		return NodeOutcomeResolver
	}
	return NodeEvaluatorDecision
}

// AfterEvaluatorDecision continues the loop only on FOLLOW_UP.
func AfterEvaluatorDecision(s *State) NodeName {
	if s.Decision == DecisionFollowUp {
		return NodeRespondentFollowUp
	}
	return NodeOutcomeResolver
}

// AfterFollowUp ends the battle on a refusal or once the round limit is
// reached, regardless of the last decision.
func AfterFollowUp(s *State) NodeName {
	if s.IsRefusal || s.FollowUpRound >= s.MaxFollowUpRounds {
		return NodeOutcomeResolver
	}
	return NodeEvaluatorDecision
}
