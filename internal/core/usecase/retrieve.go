package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

type RetrievalConfig struct {
	TopK              int
	MaxDocsForContext int
	RRFK              int

	FanOutParallelism int
	SearchTimeout     time.Duration
	RetrieveTimeout   time.Duration

	AllowPartial        bool
	FallbackSingleQuery bool
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = 5
	}
	if out.MaxDocsForContext <= 0 {
		out.MaxDocsForContext = 8
	}
	if out.RRFK <= 0 {
		out.RRFK = defaultRRFK
	}
	return out
}

type queryExpander interface {
	Expand(ctx context.Context, query string) ([]string, error)
}

// RetrievalPipeline composes query expansion, fan-out search and rank fusion.
// It holds no per-call state.
type RetrievalPipeline struct {
	expander queryExpander
	cfg      RetrievalConfig
	observer ports.RetrievalObserver
}

func NewRetrievalPipeline(expander queryExpander, cfg RetrievalConfig, observer ports.RetrievalObserver) *RetrievalPipeline {
	return &RetrievalPipeline{
		expander: expander,
		cfg:      cfg.normalize(),
		observer: observer,
	}
}

func (p *RetrievalPipeline) Retrieve(ctx context.Context, topicAndInstructions string, index ports.Index) (*domain.RetrievalResult, error) {
	if index == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("index is nil"))
	}
	if p.cfg.RetrieveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RetrieveTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := p.retrieve(ctx, topicAndInstructions, index)
	p.observe(result, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	slog.Info("retrieval_completed",
		"variants", len(result.Variants),
		"fused", len(result.Chunks),
		"degraded", result.Degraded,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return result, nil
}

func (p *RetrievalPipeline) retrieve(ctx context.Context, query string, index ports.Index) (*domain.RetrievalResult, error) {
	fellBack := false
	variants, err := p.expander.Expand(ctx, query)
	if err != nil {
		if !p.cfg.FallbackSingleQuery || !domain.IsKind(err, domain.ErrQueryGeneration) {
			return nil, fmt.Errorf("expand query: %w", err)
		}
		slog.Warn("query_expansion_fallback", "error", err)
		variants = SingleQuery(query)
		fellBack = true
	}

	fanOut, err := FanOut(ctx, variants, index, FanOutOptions{
		TopK:          p.cfg.TopK,
		Parallelism:   p.cfg.FanOutParallelism,
		SearchTimeout: p.cfg.SearchTimeout,
		AllowPartial:  p.cfg.AllowPartial,
	})
	if err != nil {
		return nil, fmt.Errorf("fan out search: %w", err)
	}

	return &domain.RetrievalResult{
		Query:          query,
		Variants:       variants,
		Chunks:         FuseRRF(fanOut.Lists, p.cfg.RRFK, p.cfg.MaxDocsForContext),
		Degraded:       fellBack || len(fanOut.Failed) > 0,
		FailedVariants: fanOut.Failed,
	}, nil
}

func (p *RetrievalPipeline) observe(result *domain.RetrievalResult, duration time.Duration, err error) {
	if p.observer == nil {
		return
	}
	var variants, fused int
	var degraded bool
	if result != nil {
		variants = len(result.Variants)
		fused = len(result.Chunks)
		degraded = result.Degraded
	}
	p.observer.ObserveRetrieval(variants, fused, degraded, duration, err)
}
