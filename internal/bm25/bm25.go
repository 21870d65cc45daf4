// Package bm25 implements an Okapi BM25 sparse index over tokenized
// documents. It is exposed as a lazily-initialized singleton (Get)
// mirroring the original service's BM25IndexCache: a single atomic
// swap publishes {model, documents, corpus} together so readers never
// observe a torn state, and Refresh rebuilds it from a fresh document
// source.
package bm25

import (
	"context"
	"math"
	"sort"
	"sync"

	"retrievalcore/internal/tokenizer"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Document is one BM25-indexed corpus entry.
type Document struct {
	ID   string
	Text string
}

// Result is a single scored hit.
type Result struct {
	ID    string
	Score float64
}

// Source loads the corpus to index. Implementations typically read
// every drug's searchable text from the catalog store.
type Source interface {
	LoadDocuments(ctx context.Context) ([]Document, error)
}

// Index is the BM25 scorer over a fixed corpus snapshot.
type Index struct {
	docIDs  []string
	corpus  [][]string
	df      map[string]int
	avgLen  float64
	docLens []int
}

// Build tokenizes docs and constructs the BM25 index over them.
func Build(docs []Document) *Index {
	idx := &Index{
		docIDs: make([]string, 0, len(docs)),
		corpus: make([][]string, 0, len(docs)),
		df:     make(map[string]int),
	}
	var total int
	for _, d := range docs {
		toks := tokenizer.Tokenize(d.Text, false)
		if len(toks) == 0 {
			continue
		}
		idx.docIDs = append(idx.docIDs, d.ID)
		idx.corpus = append(idx.corpus, toks)
		idx.docLens = append(idx.docLens, len(toks))
		total += len(toks)

		seen := make(map[string]struct{})
		for _, t := range toks {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			idx.df[t]++
		}
	}
	if len(idx.corpus) > 0 {
		idx.avgLen = float64(total) / float64(len(idx.corpus))
	}
	return idx
}

// Search scores query against every document and returns the top-k
// hits with score > 0, sorted by descending score.
func (idx *Index) Search(query string, topK int) []Result {
	if idx == nil || len(idx.corpus) == 0 {
		return nil
	}
	queryTokens := tokenizer.Tokenize(query, true)
	if len(queryTokens) == 0 {
		return nil
	}
	n := float64(len(idx.corpus))
	scores := make([]float64, len(idx.corpus))
	for _, qt := range queryTokens {
		df := idx.df[qt]
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		for i, doc := range idx.corpus {
			tf := termFreq(doc, qt)
			if tf == 0 {
				continue
			}
			denom := tf + k1*(1-b+b*float64(idx.docLens[i])/safeAvg(idx.avgLen))
			scores[i] += idf * (tf * (k1 + 1)) / denom
		}
	}

	type scored struct {
		i int
		s float64
	}
	ranked := make([]scored, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			ranked = append(ranked, scored{i, s})
		}
	}
	sort.Slice(ranked, func(a, b int) bool { return ranked[a].s > ranked[b].s })
	if topK <= 0 {
		topK = 10
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out := make([]Result, len(ranked))
	for i, r := range ranked {
		out[i] = Result{ID: idx.docIDs[r.i], Score: r.s}
	}
	return out
}

func safeAvg(avg float64) float64 {
	if avg == 0 {
		return 1
	}
	return avg
}

func termFreq(doc []string, term string) float64 {
	var n float64
	for _, t := range doc {
		if t == term {
			n++
		}
	}
	return n
}

// singleton state, published as one atomic pointer swap so a reader
// mid-Search never sees a half-rebuilt index.
var (
	mu      sync.Mutex
	current *Index
)

// Get returns the current index, building it from source on first use.
func Get(ctx context.Context, source Source) (*Index, error) {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return current, nil
	}
	return rebuildLocked(ctx, source)
}

// Refresh forces a full rebuild from source, used after ingestion
// mutates the corpus.
func Refresh(ctx context.Context, source Source) (*Index, error) {
	mu.Lock()
	defer mu.Unlock()
	return rebuildLocked(ctx, source)
}

func rebuildLocked(ctx context.Context, source Source) (*Index, error) {
	docs, err := source.LoadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	idx := Build(docs)
	current = idx
	return idx, nil
}
