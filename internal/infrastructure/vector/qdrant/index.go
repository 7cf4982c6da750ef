package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
	"github.com/kirillkom/deckgen/internal/infrastructure/resilience"
)

const (
	payloadContent  = "content"
	payloadMetadata = "metadata"
	payloadOrdinal  = "ordinal"

	upsertBatchSize = 256
)

// IndexBuilder creates one throwaway collection per document.
type IndexBuilder struct {
	client   *Client
	embedder ports.Embedder
	prefix   string
}

func NewIndexBuilder(client *Client, embedder ports.Embedder, collectionPrefix string) *IndexBuilder {
	prefix := strings.TrimSpace(collectionPrefix)
	if prefix == "" {
		prefix = "deckgen"
	}
	return &IndexBuilder{client: client, embedder: embedder, prefix: prefix}
}

// Build on an empty corpus creates no collection; the index answers every search with nothing.
func (b *IndexBuilder) Build(ctx context.Context, chunks []domain.Chunk) (ports.Index, error) {
	if len(chunks) == 0 {
		return &Index{client: b.client, embedder: b.embedder}, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(chunks) || len(vectors[0]) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed corpus",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)))
	}

	collection := b.prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := b.client.createCollection(ctx, collection, len(vectors[0])); err != nil {
		return nil, resilience.WrapTemporary("qdrant create collection", nil, err)
	}
	idx := &Index{client: b.client, embedder: b.embedder, collection: collection}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(chunks))
		points := make([]point, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, point{
				ID:     uuid.NewString(),
				Vector: vectors[i],
				Payload: map[string]any{
					payloadContent:  chunks[i].Content,
					payloadMetadata: chunks[i].Metadata,
					payloadOrdinal:  i,
				},
			})
		}
		if err := b.client.upsert(ctx, collection, points); err != nil {
			_ = idx.Close()
			return nil, resilience.WrapTemporary("qdrant upsert", nil, err)
		}
	}

	slog.Debug("qdrant_index_built", "collection", collection, "chunks", len(chunks))
	return idx, nil
}

type Index struct {
	client     *Client
	embedder   ports.Embedder
	collection string

	closeOnce sync.Once
	closeErr  error
}

func (i *Index) Search(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if k <= 0 || i.collection == "" {
		return nil, nil
	}
	vector, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	points, err := i.client.search(ctx, i.collection, vector, k)
	if err != nil {
		return nil, resilience.WrapTemporary("qdrant search", nil, err)
	}

	type hit struct {
		chunk   domain.Chunk
		score   float64
		ordinal int
	}
	hits := make([]hit, 0, len(points))
	for _, p := range points {
		payload, _ := restoreNumbers(p.Payload).(map[string]any)
		metadata, _ := payload[payloadMetadata].(map[string]any)
		ordinal, _ := payload[payloadOrdinal].(int)
		hits = append(hits, hit{
			chunk:   domain.Chunk{Content: getStringPayload(payload, payloadContent), Metadata: metadata},
			score:   p.Score,
			ordinal: ordinal,
		})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].ordinal < hits[b].ordinal
	})

	out := make([]domain.Chunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.chunk)
	}
	return out, nil
}

// Close drops the collection. Safe to call more than once.
func (i *Index) Close() error {
	i.closeOnce.Do(func() {
		if i.collection == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		i.closeErr = i.client.deleteCollection(ctx, i.collection)
	})
	return i.closeErr
}
