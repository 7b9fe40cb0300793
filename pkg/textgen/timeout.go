package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// WithTimeout bounds every call on g by d. A non-positive d returns g.
//
// The call runs on its own goroutine so a backend that ignores ctx still
// releases the caller when the deadline passes; its late result is dropped.
func WithTimeout(g Generator, d time.Duration) Generator {
	if d <= 0 {
		return g
	}
	return &timeoutGenerator{gen: g, timeout: d}
}

type timeoutGenerator struct {
	gen     Generator
	timeout time.Duration
}

type callResult[T any] struct {
	v   T
	err error
}

func (t *timeoutGenerator) Generate(ctx context.Context, req *Request) (string, error) {
	return withDeadline(ctx, t.timeout, func(ctx context.Context) (string, error) {
		return t.gen.Generate(ctx, req)
	})
}

func (t *timeoutGenerator) GenerateJSON(ctx context.Context, req *Request, schema *Schema) (json.RawMessage, error) {
	return withDeadline(ctx, t.timeout, func(ctx context.Context) (json.RawMessage, error) {
		return t.gen.GenerateJSON(ctx, req, schema)
	})
}

func withDeadline[T any](ctx context.Context, d time.Duration, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		v, err := call(ctx)
		done <- callResult[T]{v: v, err: err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s: %v", ErrTimeout, d, r.err)
		}
		return r.v, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return zero, ctx.Err()
	}
}
