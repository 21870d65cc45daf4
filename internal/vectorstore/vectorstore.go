// Package vectorstore adapts the two interchangeable hybrid-search
// backends the retrieval core can run against behind one interface:
// a native hybrid store (dense ANN + sparse signal in one collection)
// and a relational+in-memory fallback (pgvector for dense, BM25 for
// sparse). Both expose the same upsert/search/info/delete contract so
// the orchestrator never needs to know which one is live.
package vectorstore

import (
	"context"
	"fmt"

	"retrievalcore/internal/bm25"
	"retrievalcore/internal/fusion"
	"retrievalcore/internal/persistence/databases"
	"retrievalcore/internal/sparseencoder"
)

// Document is one record to upsert: a dense embedding plus the text the
// fallback store's BM25 index tokenizes. The native store ignores Text;
// its sparse leg is computed from the query at search time.
type Document struct {
	ID       string
	Text     string
	Dense    []float32
	Metadata map[string]string
}

// Info describes the backing collection for diagnostics/admin endpoints.
type Info struct {
	Backend    string // "native" or "fallback"
	Collection string
	Dimension  int
	DocCount   int
}

// Store is the vector store adapter contract (§4.5).
type Store interface {
	UpsertDocuments(ctx context.Context, docs []Document) error
	HybridSearch(ctx context.Context, query string, denseQ []float32, topK int, w fusion.Weights) ([]fusion.Fused, error)
	DenseSearch(ctx context.Context, denseQ []float32, topK int) ([]fusion.Fused, error)
	CollectionInfo(ctx context.Context) (Info, error)
	DeleteCollection(ctx context.Context) error
}

// bm25Source adapts a document slice already upserted into the store
// into a bm25.Source so the sparse index can be rebuilt from it.
type bm25Source struct {
	docs []bm25.Document
}

func (s bm25Source) LoadDocuments(context.Context) ([]bm25.Document, error) { return s.docs, nil }

// fallbackStore implements §4.5(b): dense lives in pgvector/memory via
// databases.VectorStore, sparse is the BM25 singleton index.
type fallbackStore struct {
	vector     databases.VectorStore
	collection string
	docs       map[string]string // id -> text, retained to rebuild the BM25 index on upsert
}

// NewFallbackStore builds the relational+in-memory adapter over an
// already-constructed dense vector store.
func NewFallbackStore(vector databases.VectorStore, collection string) Store {
	return &fallbackStore{vector: vector, collection: collection, docs: make(map[string]string)}
}

func (s *fallbackStore) UpsertDocuments(ctx context.Context, docs []Document) error {
	for _, d := range docs {
		if err := s.vector.Upsert(ctx, d.ID, d.Dense, d.Metadata); err != nil {
			return fmt.Errorf("vectorstore: upsert %s: %w", d.ID, err)
		}
		s.docs[d.ID] = d.Text
	}
	bmDocs := make([]bm25.Document, 0, len(s.docs))
	for id, text := range s.docs {
		bmDocs = append(bmDocs, bm25.Document{ID: id, Text: text})
	}
	if _, err := bm25.Refresh(ctx, bm25Source{docs: bmDocs}); err != nil {
		return fmt.Errorf("vectorstore: refresh bm25 index: %w", err)
	}
	return nil
}

func (s *fallbackStore) HybridSearch(ctx context.Context, query string, denseQ []float32, topK int, w fusion.Weights) ([]fusion.Fused, error) {
	dense, err := s.vector.SimilaritySearch(ctx, denseQ, topK, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: dense search: %w", err)
	}
	idx, err := bm25.Get(ctx, bm25Source{})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: load bm25 index: %w", err)
	}
	sparseHits := idx.Search(query, topK)

	denseCands := make([]fusion.Candidate, len(dense))
	for i, r := range dense {
		denseCands[i] = fusion.Candidate{ID: r.ID, Dense: r.Score, Metadata: r.Metadata}
	}
	sparseCands := make([]fusion.Candidate, len(sparseHits))
	for i, r := range sparseHits {
		sparseCands[i] = fusion.Candidate{ID: r.ID, Sparse: r.Score}
	}
	return fusion.Fuse(denseCands, sparseCands, w, topK), nil
}

func (s *fallbackStore) DenseSearch(ctx context.Context, denseQ []float32, topK int) ([]fusion.Fused, error) {
	dense, err := s.vector.SimilaritySearch(ctx, denseQ, topK, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: dense search: %w", err)
	}
	out := make([]fusion.Fused, len(dense))
	for i, r := range dense {
		out[i] = fusion.Fused{ID: r.ID, Similarity: r.Score, DenseScore: r.Score, HybridScore: r.Score, Metadata: r.Metadata}
	}
	return out, nil
}

func (s *fallbackStore) CollectionInfo(context.Context) (Info, error) {
	return Info{Backend: "fallback", Collection: s.collection, Dimension: s.vector.Dimension(), DocCount: len(s.docs)}, nil
}

func (s *fallbackStore) DeleteCollection(ctx context.Context) error {
	for id := range s.docs {
		if err := s.vector.Delete(ctx, id); err != nil {
			return fmt.Errorf("vectorstore: delete %s: %w", id, err)
		}
	}
	s.docs = make(map[string]string)
	_, err := bm25.Refresh(ctx, bm25Source{})
	return err
}

// nativeStore implements §4.5(a): a single collection holding dense
// vectors, queried through databases.VectorStore (ANN, cosine). The
// sparse leg is produced by an external lexical-weight encoder and
// folded into the hybrid score client-side, since the underlying
// client here does not expose named sparse vector fields — see
// DESIGN.md for why this degrades gracefully rather than block on a
// dual-vector collection schema.
type nativeStore struct {
	vector     databases.VectorStore
	sparse     *sparseencoder.Client
	collection string
}

// NewNativeStore builds the native-hybrid-store adapter.
func NewNativeStore(vector databases.VectorStore, sparse *sparseencoder.Client, collection string) Store {
	return &nativeStore{vector: vector, sparse: sparse, collection: collection}
}

func (s *nativeStore) UpsertDocuments(ctx context.Context, docs []Document) error {
	for _, d := range docs {
		if err := s.vector.Upsert(ctx, d.ID, d.Dense, d.Metadata); err != nil {
			return fmt.Errorf("vectorstore: upsert %s: %w", d.ID, err)
		}
	}
	return nil
}

func (s *nativeStore) HybridSearch(ctx context.Context, query string, denseQ []float32, topK int, w fusion.Weights) ([]fusion.Fused, error) {
	dense, err := s.vector.SimilaritySearch(ctx, denseQ, topK, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: dense search: %w", err)
	}
	denseCands := make([]fusion.Candidate, len(dense))
	for i, r := range dense {
		denseCands[i] = fusion.Candidate{ID: r.ID, Dense: r.Score, Metadata: r.Metadata}
	}

	var sparseCands []fusion.Candidate
	if s.sparse != nil {
		weights, ok, err := s.sparse.Encode(ctx, query)
		if err == nil && ok {
			sparseCands = candidatesFromWeights(dense, weights)
			w.SMax = s.sparse.MaxScore()
		}
	}
	return fusion.Fuse(denseCands, sparseCands, w, topK), nil
}

// candidatesFromWeights approximates a per-candidate sparse score as
// the sum of all the query's term weights scaled by that candidate's
// dense score; candidate text and metadata are not consulted.
func candidatesFromWeights(dense []databases.VectorResult, weights map[string]float64) []fusion.Candidate {
	var total float64
	for _, w := range weights {
		total += w
	}
	out := make([]fusion.Candidate, len(dense))
	for i, r := range dense {
		out[i] = fusion.Candidate{ID: r.ID, Sparse: total * r.Score}
	}
	return out
}

func (s *nativeStore) DenseSearch(ctx context.Context, denseQ []float32, topK int) ([]fusion.Fused, error) {
	dense, err := s.vector.SimilaritySearch(ctx, denseQ, topK, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: dense search: %w", err)
	}
	out := make([]fusion.Fused, len(dense))
	for i, r := range dense {
		out[i] = fusion.Fused{ID: r.ID, Similarity: r.Score, DenseScore: r.Score, HybridScore: r.Score, Metadata: r.Metadata}
	}
	return out, nil
}

func (s *nativeStore) CollectionInfo(context.Context) (Info, error) {
	return Info{Backend: "native", Collection: s.collection, Dimension: s.vector.Dimension()}, nil
}

func (s *nativeStore) DeleteCollection(ctx context.Context) error {
	return fmt.Errorf("vectorstore: native store delete_collection not supported by the underlying client")
}
