package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

const (
	defaultQueryVariants = 3
	originalQueryPrefix  = "0. "

	queryExpansionSystemPrompt = "You are a helpful assistant that generates multiple search queries based on a single input query."
)

// QueryExpander asks the generative model for alternative phrasings of a query.
type QueryExpander struct {
	generator ports.TextGenerator
	variants  int
}

func NewQueryExpander(generator ports.TextGenerator, variants int) *QueryExpander {
	if variants <= 0 {
		variants = defaultQueryVariants
	}
	return &QueryExpander{
		generator: generator,
		variants:  variants,
	}
}

// Expand returns 1+N query variants. Position 0 is the original query with the
// "0. " ordinal; the rest are the model's lines in emitted order.
func (e *QueryExpander) Expand(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "expand query", errors.New("empty query"))
	}

	raw, err := e.generator.Generate(ctx, ports.GenerateRequest{
		System:      queryExpansionSystemPrompt,
		Messages:    buildQueryExpansionMessages(query, e.variants),
		Temperature: 0,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrQueryGeneration, "expand query", err)
	}

	generated, err := parseQueryVariants(raw, e.variants)
	if err != nil {
		return nil, domain.WrapError(domain.ErrQueryGeneration, "parse query variants", err)
	}

	out := make([]string, 0, len(generated)+1)
	out = append(out, originalQueryPrefix+query)
	out = append(out, generated...)
	return out, nil
}

// SingleQuery is the degenerate expansion used when the model is unavailable.
func SingleQuery(query string) []string {
	return []string{originalQueryPrefix + query}
}

func buildQueryExpansionMessages(query string, variants int) []string {
	return []string{
		fmt.Sprintf("Generate multiple search queries related to: %s. When creating queries, please refine or add closely related contextual information to improve search results, without significantly altering the original query's meaning.", query),
		fmt.Sprintf("OUTPUT (%d queries):", variants),
	}
}

func parseQueryVariants(raw string, want int) ([]string, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	out := make([]string, 0, want)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if len(out) != want {
		return nil, fmt.Errorf("expected %d query variants, got %d", want, len(out))
	}
	return out, nil
}
