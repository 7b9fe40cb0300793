package battle

// WinnerFor maps an outcome to the winning side. It is the only place
// winners are derived.
func WinnerFor(o Outcome) Winner {
	switch o {
	case OutcomeTerminated, OutcomeRefusal:
		return WinnerA
	case OutcomePass, OutcomeRetained:
		return WinnerB
	default:
		return WinnerDraw
	}
}

// ResolveOutcome classifies a finished battle. An outcome that is already
// set is kept; otherwise a terminal decision maps to the matching outcome,
// an exhausted loop to MAX_ROUNDS, and anything else to UNKNOWN.
func ResolveOutcome(s *State) Outcome {
	if s.Outcome != "" {
		return s.Outcome
	}
	switch s.Decision {
	case DecisionPass:
		return OutcomePass
	case DecisionTerminated:
		return OutcomeTerminated
	case DecisionRetained:
		return OutcomeRetained
	}
	if s.FollowUpRound >= s.MaxFollowUpRounds {
		return OutcomeMaxRounds
	}
	return OutcomeUnknown
}
