// Package fusion combines dense (cosine) and sparse (BM25 or
// lexical-weight) candidate scores into a single ranked list by
// weighted linear combination — not reciprocal-rank fusion. This
// mirrors the deterministic, component-score-preserving contract the
// retrieval pipeline depends on for diagnostics and reranker input
// shaping.
package fusion

import "sort"

// Candidate is one retrieved item before score fusion. Dense and
// Sparse are the raw component scores; a missing component is zero.
type Candidate struct {
	ID       string
	Text     string
	Dense    float64 // cosine similarity, already in [0,1]
	Sparse   float64 // raw BM25/lexical-weight sum, NOT yet normalized
	Metadata map[string]string
}

// Fused is a Candidate after normalization and weighted combination.
type Fused struct {
	ID          string
	Text        string
	Similarity  float64 // preserved original dense score, if present
	DenseScore  float64
	SparseScore float64 // normalized to [0,1]
	HybridScore float64
	Metadata    map[string]string
}

// Weights configures the linear combination; DenseWeight + SparseWeight
// should sum to 1 but callers are not required to enforce it.
type Weights struct {
	Dense  float64
	Sparse float64
	// SMax is the normalization ceiling for raw sparse scores:
	// normalized = min(raw / SMax, 1.0). Default 30 for BM25, 10 for
	// lexical-weight (SPLADE) models — callers pick the constant that
	// matches whichever sparse source produced Candidate.Sparse.
	SMax float64
}

// DefaultWeights returns the spec's default hybrid weighting: 0.7
// dense, 0.3 sparse, S_MAX=30 (BM25).
func DefaultWeights() Weights {
	return Weights{Dense: 0.7, Sparse: 0.3, SMax: 30}
}

// NormalizeSparse maps a raw sparse score into [0,1] by min(raw/sMax, 1.0).
func NormalizeSparse(raw, sMax float64) float64 {
	if sMax <= 0 {
		return 0
	}
	n := raw / sMax
	if n > 1 {
		return 1
	}
	if n < 0 {
		return 0
	}
	return n
}

// Fuse unions dense and sparse candidate sets by ID, computes
// hybrid_score = w_d*dense + w_s*sparse for every merged record, and
// returns them sorted by hybrid_score descending (stable on ties),
// truncated to topK. topK <= 0 means "no truncation".
func Fuse(dense, sparse []Candidate, w Weights, topK int) []Fused {
	byID := make(map[string]*Fused)
	order := make([]string, 0, len(dense)+len(sparse))

	ensure := func(c Candidate) *Fused {
		f, ok := byID[c.ID]
		if !ok {
			f = &Fused{ID: c.ID, Text: c.Text, Metadata: c.Metadata}
			byID[c.ID] = f
			order = append(order, c.ID)
		}
		return f
	}

	for _, c := range dense {
		f := ensure(c)
		f.DenseScore = c.Dense
		f.Similarity = c.Dense
		if f.Text == "" {
			f.Text = c.Text
		}
		mergeMetadata(f, c.Metadata)
	}
	for _, c := range sparse {
		f := ensure(c)
		f.SparseScore = NormalizeSparse(c.Sparse, w.SMax)
		if f.Text == "" {
			f.Text = c.Text
		}
		mergeMetadata(f, c.Metadata)
	}

	out := make([]Fused, 0, len(order))
	for _, id := range order {
		f := byID[id]
		f.HybridScore = w.Dense*f.DenseScore + w.Sparse*f.SparseScore
		out = append(out, *f)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].HybridScore > out[j].HybridScore })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func mergeMetadata(f *Fused, md map[string]string) {
	if len(md) == 0 {
		return
	}
	if f.Metadata == nil {
		f.Metadata = make(map[string]string, len(md))
	}
	for k, v := range md {
		if _, exists := f.Metadata[k]; !exists {
			f.Metadata[k] = v
		}
	}
}
