package battle

// Field names a State field that an Update may carry.
type Field string

const (
	FieldTranscript    Field = "transcript"
	FieldFollowUpRound Field = "follow_up_round"
	FieldDecision      Field = "decision"
	FieldIsRefusal     Field = "is_refusal"
	FieldOutcome       Field = "outcome"
	FieldWinner        Field = "winner"
	FieldError         Field = "error"
)

// Fields lists every mergeable field in merge order.
var Fields = []Field{
	FieldTranscript,
	FieldFollowUpRound,
	FieldDecision,
	FieldIsRefusal,
	FieldOutcome,
	FieldWinner,
	FieldError,
}

// MergePolicy says how an Update value combines with the current one.
type MergePolicy int

const (
	// Append concatenates the update after the current list.
	Append MergePolicy = iota + 1
	// Overwrite replaces the current value.
	Overwrite
	// SetOnce accepts a value only while the field is unset, or when it
	// repeats the value already held.
	SetOnce
	// Monotonic accepts only values not below the current one.
	Monotonic
)

func (p MergePolicy) String() string {
	switch p {
	case Append:
		return "append"
	case Overwrite:
		return "overwrite"
	case SetOnce:
		return "set-once"
	case Monotonic:
		return "monotonic"
	default:
		return "unknown"
	}
}

// MergePolicies is the per-field merge table used by State.Merge.
var MergePolicies = map[Field]MergePolicy{
	FieldTranscript:    Append,
	FieldFollowUpRound: Monotonic,
	FieldDecision:      Overwrite,
	FieldIsRefusal:     Overwrite,
	FieldOutcome:       SetOnce,
	FieldWinner:        SetOnce,
	FieldError:         Overwrite,
}

// Merge applies u to s following MergePolicies. The merge is atomic: on
// error s is left unchanged.
func (s *State) Merge(u Update) error {
	next := *s
	for _, f := range u.Fields() {
		if err := next.mergeField(f, MergePolicies[f], &u); err != nil {
			return err
		}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}

func (s *State) mergeField(f Field, p MergePolicy, u *Update) error {
	switch f {
	case FieldTranscript:
		if p != Append {
			return &MergeConflictError{Field: f, Policy: p, Have: len(s.Transcript), Got: len(u.Transcript)}
		}
		// Always copy so clones never share a backing array.
		merged := make([]Entry, 0, len(s.Transcript)+len(u.Transcript))
		merged = append(merged, s.Transcript...)
		s.Transcript = append(merged, u.Transcript...)
		return nil
	case FieldFollowUpRound:
		return mergeValue(f, p, &s.FollowUpRound, *u.FollowUpRound, func(a, b int) bool { return a < b })
	case FieldDecision:
		return mergeValue(f, p, &s.Decision, *u.Decision, nil)
	case FieldIsRefusal:
		return mergeValue(f, p, &s.IsRefusal, *u.IsRefusal, nil)
	case FieldOutcome:
		return mergeValue(f, p, &s.Outcome, *u.Outcome, nil)
	case FieldWinner:
		return mergeValue(f, p, &s.Winner, *u.Winner, nil)
	case FieldError:
		return mergeValue(f, p, &s.Error, *u.Error, nil)
	}
	return &MergeConflictError{Field: f, Policy: p}
}

// mergeValue applies a scalar policy. less is required for Monotonic.
func mergeValue[T comparable](f Field, p MergePolicy, dst *T, v T, less func(a, b T) bool) error {
	var zero T
	switch p {
	case Overwrite:
	case SetOnce:
		if *dst != zero && *dst != v {
			return &MergeConflictError{Field: f, Policy: p, Have: *dst, Got: v}
		}
	case Monotonic:
		if less == nil || less(v, *dst) {
			return &MergeConflictError{Field: f, Policy: p, Have: *dst, Got: v}
		}
	default:
		return &MergeConflictError{Field: f, Policy: p, Have: *dst, Got: v}
	}
	*dst = v
	return nil
}
