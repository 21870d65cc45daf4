package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSparse(t *testing.T) {
	assert.Equal(t, 0.5, NormalizeSparse(15, 30))
	assert.Equal(t, 1.0, NormalizeSparse(30, 30))
	assert.Equal(t, 1.0, NormalizeSparse(45, 30))
	assert.Equal(t, 0.0, NormalizeSparse(0, 30))
	assert.Equal(t, 0.0, NormalizeSparse(10, 0))
}

// Mirrors the spec's worked fusion-determinism example: A{dense=0.9,
// sparse=0} vs B{dense=0.6,sparse=1.0} (already-normalized sparse, so
// SMax=1 here) at weights 0.7/0.3 ranks [B, A]; flipping weights to
// 0.3/0.7 still ranks [B, A].
func TestFuseDeterminismWorkedExample(t *testing.T) {
	dense := []Candidate{
		{ID: "A", Dense: 0.9},
		{ID: "B", Dense: 0.6},
	}
	sparse := []Candidate{
		{ID: "A", Sparse: 0},
		{ID: "B", Sparse: 1.0},
	}

	w1 := Weights{Dense: 0.7, Sparse: 0.3, SMax: 1}
	out := Fuse(dense, sparse, w1, 0)
	assert.Equal(t, "B", out[0].ID)
	assert.InDelta(t, 0.72, out[0].HybridScore, 1e-9)
	assert.Equal(t, "A", out[1].ID)
	assert.InDelta(t, 0.63, out[1].HybridScore, 1e-9)

	w2 := Weights{Dense: 0.3, Sparse: 0.7, SMax: 1}
	out2 := Fuse(dense, sparse, w2, 0)
	assert.Equal(t, "B", out2[0].ID)
	assert.InDelta(t, 0.88, out2[0].HybridScore, 1e-9)
	assert.Equal(t, "A", out2[1].ID)
	assert.InDelta(t, 0.27, out2[1].HybridScore, 1e-9)
}

func TestFuseMissingComponentIsZero(t *testing.T) {
	dense := []Candidate{{ID: "A", Dense: 0.8}}
	sparse := []Candidate{{ID: "B", Sparse: 30}}
	out := Fuse(dense, sparse, DefaultWeights(), 0)
	byID := map[string]Fused{}
	for _, f := range out {
		byID[f.ID] = f
	}
	assert.Equal(t, 0.0, byID["A"].SparseScore)
	assert.Equal(t, 0.0, byID["B"].DenseScore)
}

func TestFuseTruncatesToTopK(t *testing.T) {
	dense := []Candidate{{ID: "A", Dense: 0.9}, {ID: "B", Dense: 0.5}, {ID: "C", Dense: 0.1}}
	out := Fuse(dense, nil, DefaultWeights(), 2)
	assert.Len(t, out, 2)
	assert.Equal(t, "A", out[0].ID)
}

func TestFusePreservesSimilarity(t *testing.T) {
	dense := []Candidate{{ID: "A", Dense: 0.77}}
	out := Fuse(dense, nil, DefaultWeights(), 0)
	assert.Equal(t, 0.77, out[0].Similarity)
}
