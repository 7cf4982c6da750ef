package ports

import (
	"context"
	"io"

	"github.com/kirillkom/deckgen/internal/core/domain"
)

// DeckSubmitter is the inbound contract for accepting a document and a deck request.
type DeckSubmitter interface {
	Submit(ctx context.Context, req domain.DeckRequest, filename, mimeType string, body io.Reader) (*domain.DeckJob, error)
}

// Retriever is the inbound contract of the retrieval core.
type Retriever interface {
	Retrieve(ctx context.Context, topicAndInstructions string, index Index) (*domain.RetrievalResult, error)
}

// DeckReader is the inbound read model for deck job state.
type DeckReader interface {
	GetByID(ctx context.Context, id string) (*domain.DeckJob, error)
}

// DeckProcessor is the inbound contract for asynchronous deck generation.
type DeckProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}
