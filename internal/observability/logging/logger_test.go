package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONLoggerCarriesServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLoggerTo(&buf, "deckgen-worker", "WARN")

	logger.Info("dropped")
	logger.Warn("retrieval_completed", "fused", 8)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "deckgen-worker" || entry["msg"] != "retrieval_completed" || entry["fused"] != float64(8) {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if parseLevel("verbose").String() != "INFO" {
		t.Fatalf("expected info for unknown level")
	}
	if parseLevel(" debug ").String() != "DEBUG" {
		t.Fatalf("expected debug")
	}
}
