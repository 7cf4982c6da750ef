package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Chunk is an immutable unit of source text produced by document splitting.
type Chunk struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Identity returns the canonical serialization of content and metadata used for
// deduplication. Metadata keys are sorted and every value carries a kind tag, so
// two chunks share an identity only when content and metadata match exactly.
func (c Chunk) Identity() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(c.Content))

	keys := make([]string, 0, len(c.Metadata))
	for key := range c.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(key))
		b.WriteByte('=')
		writeScalar(&b, c.Metadata[key])
	}
	b.WriteByte('}')
	return b.String()
}

func writeScalar(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("n:")
	case string:
		b.WriteString("s:")
		b.WriteString(strconv.Quote(t))
	case bool:
		b.WriteString("b:")
		b.WriteString(strconv.FormatBool(t))
	case int:
		writeInt(b, int64(t))
	case int8:
		writeInt(b, int64(t))
	case int16:
		writeInt(b, int64(t))
	case int32:
		writeInt(b, int64(t))
	case int64:
		writeInt(b, t)
	case uint:
		writeUint(b, uint64(t))
	case uint8:
		writeUint(b, uint64(t))
	case uint16:
		writeUint(b, uint64(t))
	case uint32:
		writeUint(b, uint64(t))
	case uint64:
		writeUint(b, t)
	case float32:
		writeFloat(b, float64(t))
	case float64:
		writeFloat(b, t)
	default:
		b.WriteString(strconv.Quote(fmt.Sprintf("%T:%v", v, v)))
	}
}

func writeInt(b *strings.Builder, v int64) {
	b.WriteString("i:")
	b.WriteString(strconv.FormatInt(v, 10))
}

func writeUint(b *strings.Builder, v uint64) {
	b.WriteString("u:")
	b.WriteString(strconv.FormatUint(v, 10))
}

func writeFloat(b *strings.Builder, v float64) {
	b.WriteString("f:")
	b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}

// ScoredChunk is a fused retrieval result.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// Page is a unit of extracted document text before splitting.
type Page struct {
	Number int
	Text   string
}

type RetrievalResult struct {
	Query          string        `json:"query"`
	Variants       []string      `json:"variants"`
	Chunks         []ScoredChunk `json:"chunks"`
	Degraded       bool          `json:"degraded,omitempty"`
	FailedVariants []int         `json:"failed_variants,omitempty"`
}

// Context joins the content of the fused chunks, in order, one per line.
func (r *RetrievalResult) Context() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Chunks))
	for _, chunk := range r.Chunks {
		parts = append(parts, chunk.Content)
	}
	return strings.Join(parts, "\n")
}

func (r *RetrievalResult) Plain() []Chunk {
	if r == nil {
		return nil
	}
	out := make([]Chunk, 0, len(r.Chunks))
	for _, chunk := range r.Chunks {
		out = append(out, chunk.Chunk)
	}
	return out
}
