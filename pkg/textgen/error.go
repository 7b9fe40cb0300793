package textgen

import (
	"errors"
	"fmt"
)

var (
	// ErrBlocked is returned when the provider refuses to produce content,
	// e.g. a safety filter or an explicit refusal field in the response.
	ErrBlocked = errors.New("textgen: generate blocked")

	// ErrTruncated is returned when output hit the token limit.
	ErrTruncated = errors.New("textgen: generate truncated")

	// ErrTimeout is returned by WithTimeout when a call outlives its deadline.
	ErrTimeout = errors.New("textgen: call timed out")

	// ErrSchemaViolation is returned when structured output does not conform
	// to the requested Schema.
	ErrSchemaViolation = errors.New("textgen: schema violation")

	// ErrExhausted is returned by Scripted when it has nothing left to replay.
	ErrExhausted = errors.New("textgen: script exhausted")
)

// BlockedError carries the provider's refusal text.
type BlockedError struct {
	Reason string
}

func Blocked(reason string) *BlockedError {
	return &BlockedError{Reason: reason}
}

func (e *BlockedError) Error() string {
	if e.Reason == "" {
		return ErrBlocked.Error()
	}
	return fmt.Sprintf("%s: %s", ErrBlocked, e.Reason)
}

func (e *BlockedError) Unwrap() error {
	return ErrBlocked
}
