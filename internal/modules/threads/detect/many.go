package detect

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunMany runs lectures with at most concurrency in flight. Lectures of one course still
// serialize on the course lock. Outputs keep input order; the first error cancels the rest.
func RunMany(ctx context.Context, deps Deps, inputs []Input, concurrency int) ([]*Output, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	outs := make([]*Output, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range inputs {
		i := i
		g.Go(func() error {
			out, err := Run(gctx, deps, inputs[i])
			outs[i] = out
			return err
		})
	}
	return outs, g.Wait()
}
