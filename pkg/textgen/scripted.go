package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

var (
	_ Generator = (*Scripted)(nil)
	_ Forker    = (*Scripted)(nil)
)

// Scripted replays canned outputs in order. Generate consumes Replies and
// GenerateJSON consumes Outputs. When Loop is set the last item repeats
// once a list is exhausted; otherwise the call fails with ErrExhausted.
type Scripted struct {
	Replies []string `json:"replies,omitzero" yaml:"replies,omitzero"`
	Outputs []string `json:"outputs,omitzero" yaml:"outputs,omitzero"`
	Loop    bool     `json:"loop,omitzero" yaml:"loop,omitzero"`

	mu       sync.Mutex
	nReplies int
	nOutputs int
	requests []Request
}

func (s *Scripted) Generate(ctx context.Context, req *Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(req)
	v, err := s.next(s.Replies, &s.nReplies, "reply")
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *Scripted) GenerateJSON(ctx context.Context, req *Request, _ *Schema) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(req)
	v, err := s.next(s.Outputs, &s.nOutputs, "output")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(v), nil
}

// Fork returns a copy of s that replays from the first item with an empty
// request log.
func (s *Scripted) Fork() Generator {
	return &Scripted{
		Replies: slices.Clone(s.Replies),
		Outputs: slices.Clone(s.Outputs),
		Loop:    s.Loop,
	}
}

// Requests returns a copy of every request seen so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Scripted) record(req *Request) {
	if req != nil {
		s.requests = append(s.requests, *req)
	}
}

func (s *Scripted) next(items []string, n *int, kind string) (string, error) {
	if *n < len(items) {
		v := items[*n]
		*n++
		return v, nil
	}
	if s.Loop && len(items) > 0 {
		return items[len(items)-1], nil
	}
	return "", fmt.Errorf("%w: no %s left after %d", ErrExhausted, kind, *n)
}
