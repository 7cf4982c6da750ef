package bootstrap

import (
	"testing"
	"time"

	"github.com/kirillkom/deckgen/internal/config"
	"github.com/kirillkom/deckgen/internal/infrastructure/vector/memory"
	"github.com/kirillkom/deckgen/internal/infrastructure/vector/qdrant"
)

func TestNewRetrievalSelectsBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.OpenAIAPIKey = "test"

	retrieval, err := NewRetrieval(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewRetrieval() error = %v", err)
	}
	if _, ok := retrieval.Indexes.(*memory.IndexBuilder); !ok {
		t.Fatalf("expected memory index builder, got %T", retrieval.Indexes)
	}
	if retrieval.Analyzer == nil {
		t.Fatalf("expected document analyzer by default")
	}

	cfg.VectorBackend = "qdrant"
	cfg.LLMProvider = "ollama"
	cfg.DocumentAnalysis = false
	retrieval, err = NewRetrieval(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewRetrieval(qdrant) error = %v", err)
	}
	if _, ok := retrieval.Indexes.(*qdrant.IndexBuilder); !ok {
		t.Fatalf("expected qdrant index builder, got %T", retrieval.Indexes)
	}
	if retrieval.Analyzer != nil {
		t.Fatalf("expected analyzer disabled")
	}
}

func TestNewRetrievalRejectsUnknownSettings(t *testing.T) {
	cfg := config.Defaults()
	cfg.LLMProvider = "mystery"
	if _, err := NewRetrieval(cfg, nil, nil); err == nil {
		t.Fatalf("expected provider error")
	}

	cfg = config.Defaults()
	cfg.VectorBackend = "faiss"
	if _, err := NewRetrieval(cfg, nil, nil); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestRetrievalConfigMapsDurations(t *testing.T) {
	cfg := config.Defaults()
	cfg.SearchTimeoutSeconds = 3
	cfg.RetrieveTimeoutSeconds = 30
	cfg.RetrievalAllowPartial = true

	got := RetrievalConfig(cfg)
	if got.SearchTimeout != 3*time.Second || got.RetrieveTimeout != 30*time.Second {
		t.Fatalf("unexpected timeouts %+v", got)
	}
	if !got.AllowPartial || got.TopK != 5 || got.MaxDocsForContext != 8 || got.RRFK != 60 {
		t.Fatalf("unexpected retrieval config %+v", got)
	}
}

func TestModelResilienceConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.ModelRateLimitRPS = 0
	cfg.BreakerEnabled = false

	got := ModelResilienceConfig(cfg)
	if got.RateLimitRPS != 0 || got.BreakerEnabled || got.RetryMaxAttempts != 3 {
		t.Fatalf("unexpected resilience config %+v", got)
	}
}
