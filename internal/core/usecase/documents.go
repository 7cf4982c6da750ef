package usecase

import (
	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

const (
	MetadataSource     = "source"
	MetadataPage       = "page"
	MetadataChunkIndex = "chunk_index"
)

// SplitPages splits every extracted page and tags each piece with its provenance.
func SplitPages(source string, pages []domain.Page, chunker ports.Chunker) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(pages))
	for _, page := range pages {
		for i, text := range chunker.Split(page.Text) {
			out = append(out, domain.Chunk{
				Content: text,
				Metadata: map[string]any{
					MetadataSource:     source,
					MetadataPage:       page.Number,
					MetadataChunkIndex: i,
				},
			})
		}
	}
	return out
}
