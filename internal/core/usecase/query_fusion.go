package usecase

import (
	"sort"

	"github.com/kirillkom/deckgen/internal/core/domain"
)

const defaultRRFK = 60

type fusedCandidate struct {
	chunk domain.Chunk
	score float64
}

// FuseRRF merges ranked lists with reciprocal rank fusion. Every occurrence of a
// chunk identity at 0-based rank r adds 1/(r+rrfK). The result is ordered by
// descending fused score, ties kept in first-seen order, and capped at limit
// (limit <= 0 disables the cap).
func FuseRRF(lists [][]domain.Chunk, rrfK, limit int) []domain.ScoredChunk {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	index := make(map[string]int)
	candidates := make([]fusedCandidate, 0)
	for _, list := range lists {
		for rank, chunk := range list {
			key := chunk.Identity()
			pos, ok := index[key]
			if !ok {
				pos = len(candidates)
				index[key] = pos
				candidates = append(candidates, fusedCandidate{chunk: chunk})
			}
			candidates[pos].score += 1.0 / float64(rank+rrfK)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	candidates = trimCandidates(candidates, limit)
	out := make([]domain.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.ScoredChunk{Chunk: c.chunk, Score: c.score})
	}
	return out
}

func trimCandidates(candidates []fusedCandidate, limit int) []fusedCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
