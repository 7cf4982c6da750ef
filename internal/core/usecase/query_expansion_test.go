package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

type generatorFake struct {
	reply    string
	err      error
	requests []ports.GenerateRequest
}

func (f *generatorFake) Generate(_ context.Context, req ports.GenerateRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestQueryExpanderPrependsOriginal(t *testing.T) {
	gen := &generatorFake{reply: "1. solar panels efficiency\n2. photovoltaic yield\n3. solar cell output\n"}
	expander := NewQueryExpander(gen, 3)

	variants, err := expander.Expand(context.Background(), "solar energy")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(variants) != 4 {
		t.Fatalf("expected 4 variants, got %d: %v", len(variants), variants)
	}
	if variants[0] != "0. solar energy" {
		t.Fatalf("expected original first, got %q", variants[0])
	}
	if variants[1] != "1. solar panels efficiency" || variants[3] != "3. solar cell output" {
		t.Fatalf("expected model ordering preserved, got %v", variants)
	}
}

func TestQueryExpanderKeepsOriginalVerbatim(t *testing.T) {
	gen := &generatorFake{reply: "a\nb\nc"}
	query := "Create a presentation about budget\n\nUser Instructions: "

	variants, err := NewQueryExpander(gen, 3).Expand(context.Background(), query)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if variants[0] != "0. "+query {
		t.Fatalf("expected untrimmed original, got %q", variants[0])
	}
	if got := SingleQuery(query); len(got) != 1 || got[0] != "0. "+query {
		t.Fatalf("expected untrimmed single query, got %q", got)
	}
}

func TestQueryExpanderUsesZeroTemperatureAndPrompt(t *testing.T) {
	gen := &generatorFake{reply: "a\nb\nc"}
	if _, err := NewQueryExpander(gen, 3).Expand(context.Background(), "topic"); err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(gen.requests) != 1 {
		t.Fatalf("expected one generation call, got %d", len(gen.requests))
	}
	req := gen.requests[0]
	if req.Temperature != 0 {
		t.Fatalf("expected temperature 0, got %v", req.Temperature)
	}
	if !strings.Contains(req.Messages[0], "topic") || !strings.Contains(req.Messages[1], "OUTPUT (3 queries)") {
		t.Fatalf("unexpected messages: %v", req.Messages)
	}
}

func TestQueryExpanderKeepsDuplicateVariants(t *testing.T) {
	gen := &generatorFake{reply: "0. same\n0. same\n0. same"}
	variants, err := NewQueryExpander(gen, 3).Expand(context.Background(), "same")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(variants) != 4 {
		t.Fatalf("expected duplicates kept, got %v", variants)
	}
}

func TestQueryExpanderRejectsWrongCount(t *testing.T) {
	gen := &generatorFake{reply: "1. only one\n\n"}
	_, err := NewQueryExpander(gen, 3).Expand(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrQueryGeneration) {
		t.Fatalf("expected ErrQueryGeneration, got %v", err)
	}
}

func TestQueryExpanderWrapsGeneratorFailure(t *testing.T) {
	cause := domain.WrapError(domain.ErrTemporary, "chat", errors.New("429"))
	_, err := NewQueryExpander(&generatorFake{err: cause}, 3).Expand(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrQueryGeneration) {
		t.Fatalf("expected ErrQueryGeneration, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary cause preserved, got %v", err)
	}
}

func TestQueryExpanderRejectsEmptyQuery(t *testing.T) {
	gen := &generatorFake{}
	_, err := NewQueryExpander(gen, 3).Expand(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(gen.requests) != 0 {
		t.Fatalf("expected no generation call")
	}
}
