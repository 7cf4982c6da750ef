package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

// IndexBuilder embeds a corpus once and keeps the vectors in process memory.
type IndexBuilder struct {
	embedder ports.Embedder
}

func NewIndexBuilder(embedder ports.Embedder) *IndexBuilder {
	return &IndexBuilder{embedder: embedder}
}

// Build on an empty corpus returns an empty index without calling the embedder.
func (b *IndexBuilder) Build(ctx context.Context, chunks []domain.Chunk) (ports.Index, error) {
	if len(chunks) == 0 {
		return &Index{embedder: b.embedder}, nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed corpus",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)))
	}

	entries := make([]entry, len(chunks))
	for i := range chunks {
		entries[i] = entry{chunk: chunks[i], vector: vectors[i], norm: norm(vectors[i])}
	}
	return &Index{embedder: b.embedder, entries: entries}, nil
}

type entry struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

// Index is read-only after Build and safe for concurrent Search.
type Index struct {
	embedder ports.Embedder

	mu      sync.RWMutex
	entries []entry
	closed  bool
}

var ErrIndexClosed = errors.New("memory index closed")

func (i *Index) Search(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if i.empty() {
		return []domain.Chunk{}, nil
	}
	vector, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qNorm := norm(vector)

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, ErrIndexClosed
	}

	type hit struct {
		pos   int
		score float64
	}
	hits := make([]hit, len(i.entries))
	for pos, e := range i.entries {
		hits[pos] = hit{pos: pos, score: cosine(vector, qNorm, e.vector, e.norm)}
	}
	// stable: equal scores keep corpus order
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	if k > len(hits) {
		k = len(hits)
	}
	out := make([]domain.Chunk, k)
	for n := 0; n < k; n++ {
		out[n] = i.entries[hits[n].pos].chunk
	}
	return out, nil
}

func (i *Index) empty() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return !i.closed && len(i.entries) == 0
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	i.entries = nil
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, na float64, b []float32, nb float64) float64 {
	if len(a) != len(b) || na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
