package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalcore/internal/bm25"
	"retrievalcore/internal/fusion"
	"retrievalcore/internal/persistence/databases"
)

func resetBM25(t *testing.T) {
	t.Helper()
	_, _ = bm25.Refresh(context.Background(), emptySource{})
}

type emptySource struct{}

func (emptySource) LoadDocuments(context.Context) ([]bm25.Document, error) { return nil, nil }

func TestFallbackStoreUpsertAndHybridSearch(t *testing.T) {
	resetBM25(t)
	vec := databases.NewMemoryVector()
	store := NewFallbackStore(vec, "drug_chunks")

	err := store.UpsertDocuments(context.Background(), []Document{
		{ID: "1", Text: "두통약 두통 완화", Dense: []float32{1, 0, 0}},
		{ID: "2", Text: "감기약 기침 완화", Dense: []float32{0, 1, 0}},
	})
	require.NoError(t, err)

	results, err := store.HybridSearch(context.Background(), "두통", []float32{1, 0, 0}, 5, fusion.DefaultWeights())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].ID)
}

func TestFallbackStoreCollectionInfo(t *testing.T) {
	resetBM25(t)
	vec := databases.NewMemoryVector()
	store := NewFallbackStore(vec, "drug_chunks")
	_ = store.UpsertDocuments(context.Background(), []Document{{ID: "1", Text: "두통", Dense: []float32{1, 0}}})
	info, err := store.CollectionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback", info.Backend)
	assert.Equal(t, 1, info.DocCount)
}

func TestFallbackStoreDeleteCollection(t *testing.T) {
	resetBM25(t)
	vec := databases.NewMemoryVector()
	store := NewFallbackStore(vec, "drug_chunks")
	_ = store.UpsertDocuments(context.Background(), []Document{{ID: "1", Text: "두통", Dense: []float32{1, 0}}})
	require.NoError(t, store.DeleteCollection(context.Background()))
	info, _ := store.CollectionInfo(context.Background())
	assert.Equal(t, 0, info.DocCount)
}

func TestNativeStoreDenseSearch(t *testing.T) {
	vec := databases.NewMemoryVector()
	_ = vec.Upsert(context.Background(), "1", []float32{1, 0}, nil)
	store := NewNativeStore(vec, nil, "drug_chunks")
	results, err := store.DenseSearch(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].ID)
}

func TestNativeStoreCollectionInfo(t *testing.T) {
	vec := databases.NewMemoryVector()
	store := NewNativeStore(vec, nil, "drug_chunks")
	info, err := store.CollectionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "native", info.Backend)
}
