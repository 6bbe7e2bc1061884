package service

import (
	"context"
	"errors"

	"github.com/helixml/openflights/domain/search"
)

// batchStrategy is one way of turning texts into vectors.
type batchStrategy struct {
	name string
	run  func(ctx context.Context, texts []string) ([]search.Vector, error)
}

// firstSuccess tries each strategy in order and returns the first result.
// Errors that no later strategy could fix stop the chain: dimension
// mismatches and context cancellation.
func firstSuccess(ctx context.Context, texts []string, strategies ...batchStrategy) ([]search.Vector, string, error) {
	var last error
	for _, s := range strategies {
		vectors, err := s.run(ctx, texts)
		if err == nil {
			return vectors, s.name, nil
		}
		last = err
		if errors.Is(err, search.ErrDimensionMismatch) || ctx.Err() != nil {
			return nil, s.name, err
		}
	}
	if last == nil {
		last = errors.New("no embedding strategy configured")
	}
	return nil, "", last
}
