// Package embedding wraps embedding backends with the guarantees the index
// pipeline relies on: bounded call time, ordered concurrent batching and a
// single failure signal.
package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"docqa/internal/domain"
)

// Defaults applied by NewGuard to zero Config fields.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultBatchSize   = 32
	DefaultConcurrency = 4
)

// Config controls how a Guard drives its backend.
type Config struct {
	// Timeout bounds every backend call, batch or single.
	Timeout time.Duration
	// BatchSize is the number of texts sent per backend call.
	BatchSize int
	// Concurrency caps in-flight backend calls during EmbedBatch.
	Concurrency int
	// RequestsPerSecond throttles backend calls; zero disables throttling.
	RequestsPerSecond float64
}

// Guard is a domain.Embedder decorating another one. Every failure it returns
// wraps domain.ErrEmbeddingUnavailable, including timeouts of backends that
// ignore their context.
type Guard struct {
	backend     domain.Embedder
	timeout     time.Duration
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
}

var _ domain.Embedder = (*Guard)(nil)

// NewGuard wraps backend.
func NewGuard(backend domain.Embedder, cfg Config) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	g := &Guard{
		backend:     backend,
		timeout:     cfg.Timeout,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
	}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Concurrency)
	}
	return g
}

// Name returns the backend name.
func (g *Guard) Name() string { return g.backend.Name() }

// Dimension returns the backend dimension.
func (g *Guard) Dimension() int { return g.backend.Dimension() }

// EmbedOne embeds a single text through the backend's single-text path.
func (g *Guard) EmbedOne(ctx context.Context, text string) ([]float64, error) {
	if err := g.wait(ctx); err != nil {
		return nil, g.unavailable(err)
	}
	vec, err := bounded(ctx, g.timeout, func(ctx context.Context) ([]float64, error) {
		return g.backend.EmbedOne(ctx, text)
	})
	if err != nil {
		return nil, g.unavailable(err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty vector", domain.ErrEmbeddingUnavailable, g.Name())
	}
	if want := g.backend.Dimension(); want > 0 && len(vec) != want {
		return nil, fmt.Errorf("%w: %s returned %d values, expected %d", domain.ErrEmbeddingUnavailable, g.Name(), len(vec), want)
	}
	return vec, nil
}

// EmbedBatch splits texts into sub-batches embedded concurrently. The
// result is aligned with texts regardless of completion order.
func (g *Guard) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.concurrency)
	for start := 0; start < len(texts); start += g.batchSize {
		start := start
		end := min(start+g.batchSize, len(texts))
		batch := texts[start:end]
		grp.Go(func() error {
			if err := g.wait(gctx); err != nil {
				return g.unavailable(err)
			}
			vecs, err := bounded(gctx, g.timeout, func(ctx context.Context) ([][]float64, error) {
				return g.backend.EmbedBatch(ctx, batch)
			})
			if err != nil {
				return g.unavailable(err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("%w: %s returned %d vectors for %d texts", domain.ErrEmbeddingUnavailable, g.Name(), len(vecs), len(batch))
			}
			for i, v := range vecs {
				if len(v) == 0 {
					return fmt.Errorf("%w: %s returned an empty vector for text %d", domain.ErrEmbeddingUnavailable, g.Name(), start+i)
				}
				out[start+i] = v
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	// sub-batches must agree with each other and with the backend
	want := g.backend.Dimension()
	if want <= 0 {
		want = len(out[0])
	}
	for i, v := range out {
		if len(v) != want {
			return nil, fmt.Errorf("%w: %s returned %d values for text %d, expected %d", domain.ErrEmbeddingUnavailable, g.Name(), len(v), i, want)
		}
	}
	return out, nil
}

func (g *Guard) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

func (g *Guard) unavailable(err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingUnavailable, g.Name(), err)
}

// bounded runs fn in its own goroutine and gives up when the timeout expires,
// even if fn never returns.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	}()
	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
