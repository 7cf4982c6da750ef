package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/deckgen/internal/core/domain"
)

// DeckJobRepository persists and reads deck job state.
type DeckJobRepository interface {
	Create(ctx context.Context, job *domain.DeckJob) error
	GetByID(ctx context.Context, id string) (*domain.DeckJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error
	SaveDeck(ctx context.Context, id string, deck *domain.Deck, sourceChunks int) error
	SaveAnalysis(ctx context.Context, id string, analysis domain.DocumentAnalysis) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes deck job events.
type MessageQueue interface {
	PublishDeckRequested(ctx context.Context, jobID string) error
	SubscribeDeckRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts page text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, job *domain.DeckJob) ([]domain.Page, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// IndexBuilder embeds a chunk corpus into a searchable index.
type IndexBuilder interface {
	Build(ctx context.Context, chunks []domain.Chunk) (Index, error)
}

// Index answers nearest-neighbour queries over one document's chunks.
type Index interface {
	// Search returns at most k chunks ordered by descending similarity.
	Search(ctx context.Context, query string, k int) ([]domain.Chunk, error)
	Close() error
}

// TextGenerator runs a single chat completion.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type GenerateRequest struct {
	System      string
	Messages    []string
	Temperature float64
}

// RetrievalObserver receives one observation per retrieval call.
type RetrievalObserver interface {
	ObserveRetrieval(variants, fused int, degraded bool, duration time.Duration, err error)
}
