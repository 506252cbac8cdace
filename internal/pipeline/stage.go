// Package pipeline runs a detection pass over a directory of documents.
//
// A run is a chain of three stages: ingestion lists and lazily parses the
// input files, detection runs the rule registry on each parsed document,
// and persistence writes documents and their discrepancies in batches.
// Documents flow between stages one at a time inside an Envelope that
// records how far each one got.
package pipeline

import "context"

// Stage is one step of a run. A stage only knows its input and output;
// Chain wires it to its successor.
type Stage[In, Out any] interface {
	Handle(ctx context.Context, in In) (Out, error)
}

// StageFunc adapts a function to a Stage.
type StageFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

func (f StageFunc[In, Out]) Handle(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// Chain feeds the output of first into next. If first fails, next is not
// called.
func Chain[A, B, C any](first Stage[A, B], next Stage[B, C]) Stage[A, C] {
	return StageFunc[A, C](func(ctx context.Context, in A) (C, error) {
		mid, err := first.Handle(ctx, in)
		if err != nil {
			var zero C
			return zero, err
		}
		return next.Handle(ctx, mid)
	})
}
