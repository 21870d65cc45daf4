package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalcore/internal/catalog"
	"retrievalcore/internal/fusion"
	"retrievalcore/internal/vectorstore"
)

type fakeVectorStore struct {
	results []fusion.Fused
}

func (f *fakeVectorStore) UpsertDocuments(context.Context, []vectorstore.Document) error { return nil }
func (f *fakeVectorStore) HybridSearch(context.Context, string, []float32, int, fusion.Weights) ([]fusion.Fused, error) {
	return f.results, nil
}
func (f *fakeVectorStore) DenseSearch(context.Context, []float32, int) ([]fusion.Fused, error) {
	return f.results, nil
}
func (f *fakeVectorStore) CollectionInfo(context.Context) (vectorstore.Info, error) {
	return vectorstore.Info{}, nil
}
func (f *fakeVectorStore) DeleteCollection(context.Context) error { return nil }

type fakeCatalog struct {
	drugs    map[string]catalog.Drug
	diseases map[string]catalog.Disease
}

func (f *fakeCatalog) UpsertDrug(context.Context, catalog.Drug) error { return nil }
func (f *fakeCatalog) GetDrug(_ context.Context, id string) (catalog.Drug, bool, error) {
	d, ok := f.drugs[id]
	return d, ok, nil
}
func (f *fakeCatalog) ListDrugs(context.Context, int, int) ([]catalog.Drug, error) { return nil, nil }
func (f *fakeCatalog) DeleteDrug(context.Context, string) error                    { return nil }
func (f *fakeCatalog) UpsertDisease(context.Context, catalog.Disease) error        { return nil }
func (f *fakeCatalog) GetDisease(_ context.Context, id string) (catalog.Disease, bool, error) {
	d, ok := f.diseases[id]
	return d, ok, nil
}
func (f *fakeCatalog) ListDiseases(context.Context, int, int) ([]catalog.Disease, error) {
	return nil, nil
}
func (f *fakeCatalog) LoadDrugTexts(context.Context) (map[string]string, error)    { return nil, nil }
func (f *fakeCatalog) LoadDiseaseTexts(context.Context) (map[string]string, error) { return nil, nil }
func (f *fakeCatalog) AppendSearchLog(context.Context, catalog.SearchLog) error    { return nil }
func (f *fakeCatalog) Stats(context.Context) (map[string]int, error)              { return nil, nil }

type fakeEmbedder struct{ vec []float32 }

func (f fakeEmbedder) EmbedOne(context.Context, string) ([]float32, error) { return f.vec, nil }

type failingLLM struct{}

func (failingLLM) GenerateAnswer(context.Context, string, string) (string, error) {
	return "", errors.New("llm unavailable")
}

func TestSearchReturnsCatalogEnrichedResults(t *testing.T) {
	o := &Orchestrator{
		Drugs: &fakeVectorStore{results: []fusion.Fused{
			{ID: "d1", Similarity: 0.9, DenseScore: 0.9, SparseScore: 0.5, HybridScore: 0.8},
		}},
		Catalog:  &fakeCatalog{drugs: map[string]catalog.Drug{"d1": {ID: "d1", Name: "타이레놀", Manufacturer: "한국얀센"}}},
		Embedder: fakeEmbedder{vec: []float32{1, 0}},
		Weights:  fusion.DefaultWeights(),
	}
	results, err := o.Search(context.Background(), "두통", 5, false, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "타이레놀", results[0].ItemName)
	assert.Equal(t, "한국얀센", results[0].EntpName)
	assert.Nil(t, results[0].RelevanceScore)
}

func TestSearchDiseasesDedupesByDisease(t *testing.T) {
	o := &Orchestrator{
		Diseases: &fakeVectorStore{results: []fusion.Fused{
			{ID: "chunk1", Similarity: 0.6, HybridScore: 0.6, Metadata: map[string]string{"disease_id": "dis1"}},
			{ID: "chunk2", Similarity: 0.9, HybridScore: 0.9, Metadata: map[string]string{"disease_id": "dis1"}},
		}},
		Catalog:  &fakeCatalog{diseases: map[string]catalog.Disease{"dis1": {ID: "dis1", Name: "편두통", Treatment: "진통제"}}},
		Embedder: fakeEmbedder{vec: []float32{1, 0}},
		Weights:  fusion.DefaultWeights(),
	}
	results, err := o.SearchDiseases(context.Background(), "두통", 3, false, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "편두통", results[0].ItemName)
	assert.Equal(t, 0.9, results[0].Similarity)
}

func TestSearchAndGenerateFallsBackOnLLMFailure(t *testing.T) {
	o := &Orchestrator{
		Drugs: &fakeVectorStore{results: []fusion.Fused{
			{ID: "d1", Similarity: 0.9, HybridScore: 0.9},
		}},
		Catalog:  &fakeCatalog{drugs: map[string]catalog.Drug{"d1": {ID: "d1", Name: "타이레놀"}}},
		Embedder: fakeEmbedder{vec: []float32{1, 0}},
		Weights:  fusion.DefaultWeights(),
		LLM:      failingLLM{},
	}
	resp, err := o.SearchAndGenerate(context.Background(), "두통", 5, false, false)
	require.NoError(t, err)
	assert.Equal(t, apologyResponse, resp.AIResponse)
	assert.NotEmpty(t, resp.Disclaimer)
	assert.Len(t, resp.Results, 1)
}
