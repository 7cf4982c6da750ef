package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

const contentTemperature = 0.5

type DeckPrompt struct {
	Topic        string
	Information  string
	Instructions string
	NumSlides    int
}

// DeckContentGenerator turns retrieved context into slide content.
type DeckContentGenerator struct {
	generator ports.TextGenerator
}

func NewDeckContentGenerator(generator ports.TextGenerator) *DeckContentGenerator {
	return &DeckContentGenerator{generator: generator}
}

func (g *DeckContentGenerator) Generate(ctx context.Context, p DeckPrompt) (*domain.Deck, error) {
	if p.NumSlides <= 0 {
		p.NumSlides = 10
	}
	raw, err := g.complete(ctx, buildSlidesPrompt(p))
	if err != nil {
		return nil, fmt.Errorf("generate slides: %w", err)
	}
	return parseDeck(raw)
}

// Restyle adapts tone and complexity. Empty style and audience leave the deck as is.
func (g *DeckContentGenerator) Restyle(ctx context.Context, deck *domain.Deck, style, audience string) (*domain.Deck, error) {
	if strings.TrimSpace(style) == "" && strings.TrimSpace(audience) == "" {
		return deck, nil
	}
	if style == "" {
		style = "professional"
	}
	if audience == "" {
		audience = "general"
	}
	slidesJSON, err := json.Marshal(deck)
	if err != nil {
		return nil, fmt.Errorf("marshal deck: %w", err)
	}
	raw, err := g.complete(ctx, buildStylePrompt(string(slidesJSON), style, audience))
	if err != nil {
		return nil, fmt.Errorf("restyle slides: %w", err)
	}
	return parseDeck(raw)
}

func (g *DeckContentGenerator) GenerateExecutiveSummary(ctx context.Context, deck *domain.Deck) (domain.Slide, error) {
	slidesJSON, err := json.Marshal(deck)
	if err != nil {
		return domain.Slide{}, fmt.Errorf("marshal deck: %w", err)
	}
	raw, err := g.complete(ctx, buildExecutiveSummaryPrompt(string(slidesJSON)))
	if err != nil {
		return domain.Slide{}, fmt.Errorf("generate executive summary: %w", err)
	}

	var slide domain.Slide
	if err := json.Unmarshal([]byte(cleanJSONReply(raw)), &slide); err != nil {
		return domain.Slide{}, domain.WrapError(domain.ErrInvalidInput, "parse executive summary", err)
	}
	if slide.Title == "" {
		slide.Title = "Executive Summary"
	}
	return slide, nil
}

// InsertExecutiveSummary places the summary right after the introduction slide.
func InsertExecutiveSummary(deck *domain.Deck, summary domain.Slide) {
	if len(deck.Slides) == 0 {
		deck.Slides = []domain.Slide{summary}
		return
	}
	slides := make([]domain.Slide, 0, len(deck.Slides)+1)
	slides = append(slides, deck.Slides[0], summary)
	slides = append(slides, deck.Slides[1:]...)
	deck.Slides = slides
}

func (g *DeckContentGenerator) complete(ctx context.Context, prompt string) (string, error) {
	return g.generator.Generate(ctx, ports.GenerateRequest{
		Messages:    []string{prompt},
		Temperature: contentTemperature,
	})
}

func parseDeck(raw string) (*domain.Deck, error) {
	var deck domain.Deck
	if err := json.Unmarshal([]byte(cleanJSONReply(raw)), &deck); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse slides", err)
	}
	if len(deck.Slides) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse slides", errors.New("model returned no slides"))
	}
	return &deck, nil
}

var (
	fenceStart = regexp.MustCompile("^```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("\\s*```$")
	whitespace = regexp.MustCompile(`\s+`)
)

func cleanJSONReply(raw string) string {
	raw = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, raw)
	raw = strings.TrimSpace(raw)
	raw = fenceStart.ReplaceAllString(raw, "")
	raw = fenceEnd.ReplaceAllString(raw, "")
	return whitespace.ReplaceAllString(raw, " ")
}
