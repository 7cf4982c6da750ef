package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

// Router picks an extractor by file extension, then by MIME type.
type Router struct {
	byExt    map[string]ports.TextExtractor
	byMime   map[string]ports.TextExtractor
	fallback ports.TextExtractor
}

func NewRouter(fallback ports.TextExtractor) *Router {
	return &Router{
		byExt:    map[string]ports.TextExtractor{},
		byMime:   map[string]ports.TextExtractor{},
		fallback: fallback,
	}
}

func (r *Router) Register(ext, mimeType string, extractor ports.TextExtractor) *Router {
	if ext != "" {
		r.byExt[strings.ToLower(ext)] = extractor
	}
	if mimeType != "" {
		r.byMime[strings.ToLower(mimeType)] = extractor
	}
	return r
}

func (r *Router) Extract(ctx context.Context, job *domain.DeckJob) ([]domain.Page, error) {
	extractor := r.pick(job)
	if extractor == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text",
			fmt.Errorf("no extractor for %q (%s)", job.Filename, job.MimeType))
	}
	return extractor.Extract(ctx, job)
}

func (r *Router) pick(job *domain.DeckJob) ports.TextExtractor {
	if ex, ok := r.byExt[strings.ToLower(filepath.Ext(job.Filename))]; ok {
		return ex
	}
	mime := strings.ToLower(strings.TrimSpace(strings.Split(job.MimeType, ";")[0]))
	if ex, ok := r.byMime[mime]; ok {
		return ex
	}
	return r.fallback
}
