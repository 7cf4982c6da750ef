package localfs

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/kirillkom/deckgen/internal/core/domain"
)

func TestSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Save(context.Background(), "id_report.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := s.Open(context.Background(), "id_report.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "hello" {
		t.Fatalf("unexpected content %q", raw)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left, got %d entries", len(entries))
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	s, _ := New(t.TempDir())
	for _, key := range []string{"", "../x", "a/b", ".hidden"} {
		if err := s.Save(context.Background(), key, strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("Save(%q) expected ErrInvalidInput, got %v", key, err)
		}
	}
}

func TestOpenMissing(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, err := s.Open(context.Background(), "missing.txt"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Save(ctx, "a.txt", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(dir + "/a.txt"); !os.IsNotExist(err) {
		t.Fatalf("expected no committed file")
	}
}
