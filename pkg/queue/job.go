package queue

import (
	"context"
	"fmt"
)

// Job handles queue messages of one type.
type Job interface {
	Name() string
	// Type is the message type routed to this job.
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}

// TypedJob decodes the payload into T before calling its handler, so jobs
// never deal with raw message bytes.
type TypedJob[T any] struct {
	name string
	typ  string
	fn   func(context.Context, *T) error
}

func NewTypedJob[T any](name, msgType string, fn func(context.Context, *T) error) *TypedJob[T] {
	return &TypedJob[T]{name: name, typ: msgType, fn: fn}
}

func (j *TypedJob[T]) Name() string { return j.name }
func (j *TypedJob[T]) Type() string { return j.typ }

func (j *TypedJob[T]) Handle(ctx context.Context, payload interface{}) error {
	p, err := ParsePayload[T](payload)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	return j.fn(ctx, p)
}
