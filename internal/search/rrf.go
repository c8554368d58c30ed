package search

import (
	"sort"

	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/models"
)

// rrfK is the standard Reciprocal Rank Fusion constant.
const rrfK = 60

// fusedHit is one chunk after fusion. RawScore is the best raw score the
// chunk achieved in either input list.
type fusedHit struct {
	Hit      db.ChunkHit
	Fused    float64
	RawScore float64
	ID       string
}

// fuseRRF combines the vector and fulltext rankings with
// score = sum(1 / (k + rank)) per list. Ties break on higher raw score, then
// lexicographic chunk id, so identical inputs always produce identical
// output. Result length is capped at limit.
func fuseRRF(vector, fulltext []db.ChunkHit, limit int) []fusedHit {
	fused := make(map[string]*fusedHit)

	accumulate := func(hits []db.ChunkHit) {
		for rank, h := range hits {
			id := models.MustRecordIDString(h.ID)
			entry, ok := fused[id]
			if !ok {
				entry = &fusedHit{Hit: h, RawScore: h.Score, ID: id}
				fused[id] = entry
			}
			entry.Fused += 1 / float64(rrfK+rank+1)
			if h.Score > entry.RawScore {
				entry.RawScore = h.Score
			}
		}
	}
	accumulate(vector)
	accumulate(fulltext)

	out := make([]fusedHit, 0, len(fused))
	for _, e := range fused {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fused != out[j].Fused {
			return out[i].Fused > out[j].Fused
		}
		if out[i].RawScore != out[j].RawScore {
			return out[i].RawScore > out[j].RawScore
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
