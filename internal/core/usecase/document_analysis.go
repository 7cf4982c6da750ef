package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

const analysisFallbackKey = "analysis"

// DocumentAnalyzer asks the model for a structural overview of the whole source
// document before retrieval narrows it down.
type DocumentAnalyzer struct {
	generator ports.TextGenerator
}

func NewDocumentAnalyzer(generator ports.TextGenerator) *DocumentAnalyzer {
	return &DocumentAnalyzer{generator: generator}
}

// Analyze never fails on an unparsable reply; the raw text is kept under "analysis".
// A nil analyzer is disabled and returns no analysis.
func (a *DocumentAnalyzer) Analyze(ctx context.Context, chunks []domain.Chunk) (domain.DocumentAnalysis, error) {
	if a == nil {
		return nil, nil
	}
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze document", errors.New("no chunks"))
	}
	contents := make([]string, len(chunks))
	for i, ch := range chunks {
		contents[i] = ch.Content
	}

	raw, err := a.generator.Generate(ctx, ports.GenerateRequest{
		Messages:    []string{buildAnalysisPrompt(strings.Join(contents, "\n"))},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze document: %w", err)
	}
	return parseAnalysis(raw), nil
}

func parseAnalysis(raw string) domain.DocumentAnalysis {
	var out domain.DocumentAnalysis
	if err := json.Unmarshal([]byte(cleanJSONReply(raw)), &out); err != nil || out == nil {
		slog.Warn("document_analysis_unparsed", "error", err)
		return domain.DocumentAnalysis{analysisFallbackKey: raw}
	}
	return out
}
