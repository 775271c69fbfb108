package rumor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"disaster-relief/backend/internal/scoring"
)

// BatchResult pairs one request with its verdict. Err is set when the
// primary model failed for that request; Verdict is then an Error verdict.
type BatchResult struct {
	Index   int
	Request Request
	Verdict scoring.Verdict
	Err     error
}

// AnalyzeBatch classifies requests concurrently, at most concurrency at a
// time, and returns results in input order. Per-request failures are recorded
// in the results; only cancellation of ctx aborts the batch.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, reqs []Request, concurrency int) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = 4
	}
	results := make([]BatchResult, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			verdict, err := a.Analyze(ctx, req)
			results[i] = BatchResult{Index: i, Request: req, Verdict: verdict, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
