package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

type FanOutOptions struct {
	TopK          int
	Parallelism   int
	SearchTimeout time.Duration
	// AllowPartial keeps the lists of successful variants when some fail.
	AllowPartial bool
}

type FanOutResult struct {
	Lists  [][]domain.Chunk
	Failed []int
}

// FanOut runs one similarity search per variant and returns the ranked lists in
// variant order. Without AllowPartial the first failure cancels the remaining
// searches and is returned as *domain.SearchError.
func FanOut(ctx context.Context, variants []string, index ports.Index, opts FanOutOptions) (*FanOutResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	lists := make([][]domain.Chunk, len(variants))
	errs := make([]error, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}

	for i, variant := range variants {
		g.Go(func() error {
			chunks, err := searchVariant(gctx, index, variant, opts)
			if err != nil {
				searchErr := &domain.SearchError{Variant: i, Query: variant, Err: err}
				if opts.AllowPartial {
					errs[i] = searchErr
					return nil
				}
				return searchErr
			}
			lists[i] = chunks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &FanOutResult{Lists: lists}
	for i, err := range errs {
		if err == nil {
			continue
		}
		result.Failed = append(result.Failed, i)
		slog.Warn("fanout_variant_failed", "variant", i, "error", err)
	}
	if len(variants) > 0 && len(result.Failed) == len(variants) {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

func searchVariant(ctx context.Context, index ports.Index, query string, opts FanOutOptions) ([]domain.Chunk, error) {
	if opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.SearchTimeout)
		defer cancel()
	}
	chunks, err := index.Search(ctx, query, opts.TopK)
	if err != nil {
		return nil, err
	}
	if len(chunks) > opts.TopK {
		chunks = chunks[:opts.TopK]
	}
	return chunks, nil
}
