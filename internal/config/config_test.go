package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DECKGEN_CONFIG", "")
	t.Setenv("TOP_K", "")
	t.Setenv("MAX_DOCS_FOR_CONTEXT", "")
	t.Setenv("RRF_K", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("DOCUMENT_ANALYSIS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 5 || cfg.MaxDocsForContext != 8 || cfg.RRFK != 60 || cfg.QueryVariants != 3 {
		t.Fatalf("unexpected retrieval defaults %+v", cfg)
	}
	if cfg.LLMModel != "gpt-4o" || cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Fatalf("unexpected model defaults %q/%q", cfg.LLMModel, cfg.EmbeddingModel)
	}
	if !cfg.DocumentAnalysis {
		t.Fatalf("expected document analysis on by default")
	}
	if cfg.ChunkSize != 2400 || cfg.ChunkOverlap != 100 || cfg.VectorBackend != "memory" {
		t.Fatalf("unexpected chunking defaults %+v", cfg)
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("DECKGEN_CONFIG", "")
	t.Setenv("TOP_K", "7")
	t.Setenv("RRF_K", "75")
	t.Setenv("MODEL_RATE_LIMIT_RPS", "2.5")
	t.Setenv("RETRIEVAL_ALLOW_PARTIAL", "true")
	t.Setenv("FANOUT_PARALLELISM", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 7 || cfg.RRFK != 75 || cfg.ModelRateLimitRPS != 2.5 || !cfg.RetrievalAllowPartial {
		t.Fatalf("expected overrides, got %+v", cfg)
	}
	if cfg.FanOutParallelism != 4 {
		t.Fatalf("expected invalid value to keep default, got %d", cfg.FanOutParallelism)
	}
}

func TestLoadYAMLOverlayEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deckgen.yaml")
	yamlBody := []byte("top_k: 9\nmax_docs_for_context: 4\nllm_provider: ollama\nbreaker_enabled: false\n")
	if err := os.WriteFile(path, yamlBody, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DECKGEN_CONFIG", path)
	t.Setenv("TOP_K", "11")
	t.Setenv("MAX_DOCS_FOR_CONTEXT", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("BREAKER_ENABLED", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 11 {
		t.Fatalf("expected env to win over file, got %d", cfg.TopK)
	}
	if cfg.MaxDocsForContext != 4 || cfg.LLMProvider != "ollama" || cfg.BreakerEnabled {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.RRFK != 60 {
		t.Fatalf("expected untouched default, got %d", cfg.RRFK)
	}
}

func TestLoadReportsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("top_k: [oops"), 0o600)
	t.Setenv("DECKGEN_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}

	t.Setenv("DECKGEN_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected read error")
	}
}
