package engine

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one seed in a batch.
//
// Err holds the run's own error: a *BoundedLoopError for Aborted runs, or
// the context error when the batch was cancelled before the run finished.
type BatchResult struct {
	Seed   string
	Result *Result
	Err    error
}

// BatchOption configures RunBatch.
type BatchOption func(*batchConfig)

type batchConfig struct {
	concurrency int
	seqOpts     []Option
}

// WithConcurrency bounds how many runs execute at once.
// Default: runtime.GOMAXPROCS(0).
func WithConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		c.concurrency = n
	}
}

// WithSequencerOptions passes options to every Sequencer in the batch.
func WithSequencerOptions(opts ...Option) BatchOption {
	return func(c *batchConfig) {
		c.seqOpts = append(c.seqOpts, opts...)
	}
}

// RunBatch rewrites every seed on its own Sequencer and returns results
// in seed order. The RuleSets are shared; each run gets its own Attempts.
//
// Individual run outcomes, including aborts, are reported per seed and do
// not stop the batch. The returned error is non-nil only when the
// Sequencer configuration is invalid.
func RunBatch(ctx context.Context, seeds []string, ruleSets []*RuleSet, opts ...BatchOption) ([]BatchResult, error) {
	cfg := batchConfig{concurrency: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}

	// Validate once up front so a bad configuration fails the whole batch.
	if _, err := NewSequencer(ruleSets, cfg.seqOpts...); err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(seeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			seq, err := NewSequencer(ruleSets, cfg.seqOpts...)
			if err != nil {
				return err
			}
			res, err := seq.Run(gctx, seed)
			results[i] = BatchResult{Seed: seed, Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
