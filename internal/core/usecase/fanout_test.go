package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/deckgen/internal/core/domain"
)

type indexFake struct {
	mu       sync.Mutex
	results  map[string][]domain.Chunk
	errs     map[string]error
	delay    map[string]time.Duration
	queries  []string
	limits   []int
	inFlight int32
	peak     int32
	closed   bool
}

func (f *indexFake) Search(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if current <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, current) {
			break
		}
	}

	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, k)
	delay := f.delay[query]
	err := f.errs[query]
	res := f.results[query]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *indexFake) Close() error {
	f.closed = true
	return nil
}

func TestFanOutPreservesVariantOrder(t *testing.T) {
	index := &indexFake{
		results: map[string][]domain.Chunk{
			"q0": {chunkOf("a")},
			"q1": {chunkOf("b")},
			"q2": {chunkOf("c")},
		},
		delay: map[string]time.Duration{"q0": 20 * time.Millisecond},
	}

	res, err := FanOut(context.Background(), []string{"q0", "q1", "q2"}, index, FanOutOptions{TopK: 5, Parallelism: 3})
	if err != nil {
		t.Fatalf("FanOut() error = %v", err)
	}
	if len(res.Lists) != 3 {
		t.Fatalf("expected 3 lists, got %d", len(res.Lists))
	}
	for i, want := range []string{"a", "b", "c"} {
		if res.Lists[i][0].Content != want {
			t.Fatalf("list %d: expected %s, got %s", i, want, res.Lists[i][0].Content)
		}
	}
	for _, k := range index.limits {
		if k != 5 {
			t.Fatalf("expected top-k 5 per search, got %d", k)
		}
	}
}

func TestFanOutSearchesDuplicateVariantsIndependently(t *testing.T) {
	index := &indexFake{results: map[string][]domain.Chunk{"same": {chunkOf("a")}}}
	res, err := FanOut(context.Background(), []string{"same", "same"}, index, FanOutOptions{TopK: 5})
	if err != nil {
		t.Fatalf("FanOut() error = %v", err)
	}
	if len(index.queries) != 2 || len(res.Lists) != 2 {
		t.Fatalf("expected two independent searches, got %d", len(index.queries))
	}
}

func TestFanOutRespectsParallelism(t *testing.T) {
	delay := map[string]time.Duration{}
	variants := []string{"a", "b", "c", "d", "e", "f"}
	for _, v := range variants {
		delay[v] = 10 * time.Millisecond
	}
	index := &indexFake{delay: delay}

	if _, err := FanOut(context.Background(), variants, index, FanOutOptions{TopK: 5, Parallelism: 2}); err != nil {
		t.Fatalf("FanOut() error = %v", err)
	}
	if peak := atomic.LoadInt32(&index.peak); peak > 2 {
		t.Fatalf("expected at most 2 concurrent searches, got %d", peak)
	}
}

func TestFanOutFailureIdentifiesVariant(t *testing.T) {
	cause := errors.New("embedding service down")
	index := &indexFake{
		errs:  map[string]error{"bad": cause},
		delay: map[string]time.Duration{"slow": time.Second},
	}

	start := time.Now()
	_, err := FanOut(context.Background(), []string{"slow", "bad"}, index, FanOutOptions{TopK: 5, Parallelism: 2})
	if !domain.IsKind(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
	var searchErr *domain.SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("expected SearchError, got %T", err)
	}
	if searchErr.Variant != 1 || searchErr.Query != "bad" {
		t.Fatalf("unexpected failing variant: %+v", searchErr)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("expected sibling search to be cancelled")
	}
}

func TestFanOutPartialModeFlagsFailures(t *testing.T) {
	index := &indexFake{
		results: map[string][]domain.Chunk{"ok": {chunkOf("a")}},
		errs:    map[string]error{"bad": errors.New("boom")},
	}

	res, err := FanOut(context.Background(), []string{"ok", "bad"}, index, FanOutOptions{TopK: 5, AllowPartial: true})
	if err != nil {
		t.Fatalf("FanOut() error = %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0] != 1 {
		t.Fatalf("expected variant 1 failed, got %v", res.Failed)
	}
	if len(res.Lists[0]) != 1 || res.Lists[1] != nil {
		t.Fatalf("unexpected lists: %#v", res.Lists)
	}
}

func TestFanOutPartialModeFailsWhenAllFail(t *testing.T) {
	index := &indexFake{errs: map[string]error{"a": errors.New("x"), "b": errors.New("y")}}
	_, err := FanOut(context.Background(), []string{"a", "b"}, index, FanOutOptions{TopK: 5, AllowPartial: true})
	if !domain.IsKind(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestFanOutSearchTimeoutIsFailure(t *testing.T) {
	index := &indexFake{delay: map[string]time.Duration{"slow": time.Second}}
	_, err := FanOut(context.Background(), []string{"slow"}, index, FanOutOptions{TopK: 5, SearchTimeout: 10 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFanOutEmptyResultsAreNotErrors(t *testing.T) {
	res, err := FanOut(context.Background(), []string{"nothing"}, &indexFake{}, FanOutOptions{TopK: 5})
	if err != nil {
		t.Fatalf("FanOut() error = %v", err)
	}
	if len(res.Lists) != 1 || len(res.Lists[0]) != 0 {
		t.Fatalf("expected one empty list, got %#v", res.Lists)
	}
}
