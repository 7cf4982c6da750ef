package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"

	"github.com/kirillkom/deckgen/internal/core/domain"
)

type storageFake struct {
	data []byte
}

func (f *storageFake) Save(context.Context, string, io.Reader) error { return nil }

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func newTestPDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		doc.Cell(40, 10, text)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("generate test pdf: %v", err)
	}
	return buf.Bytes()
}

func TestExtractNumbersPages(t *testing.T) {
	data := newTestPDF(t, "Solar intro", "Grid storage")
	pages, err := NewExtractor(&storageFake{data: data}).Extract(context.Background(), &domain.DeckJob{Filename: "deck.pdf"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Number != 1 || !strings.Contains(pages[0].Text, "Solar") {
		t.Fatalf("unexpected first page %+v", pages[0])
	}
	if pages[1].Number != 2 || !strings.Contains(pages[1].Text, "Grid") {
		t.Fatalf("unexpected second page %+v", pages[1])
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := NewExtractor(&storageFake{data: []byte("not a pdf")}).Extract(context.Background(), &domain.DeckJob{Filename: "x.pdf"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
