package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalcore/internal/catalog"
	"retrievalcore/internal/fusion"
	"retrievalcore/internal/rag/chunker"
	"retrievalcore/internal/upstreamcatalog"
	"retrievalcore/internal/vectorstore"
)

type fakeCatalogStore struct {
	drugs map[string]catalog.Drug
}

func (f *fakeCatalogStore) UpsertDrug(_ context.Context, d catalog.Drug) error {
	f.drugs[d.ID] = d
	return nil
}
func (f *fakeCatalogStore) GetDrug(_ context.Context, id string) (catalog.Drug, bool, error) {
	d, ok := f.drugs[id]
	return d, ok, nil
}
func (f *fakeCatalogStore) ListDrugs(context.Context, int, int) ([]catalog.Drug, error) { return nil, nil }
func (f *fakeCatalogStore) DeleteDrug(context.Context, string) error                    { return nil }
func (f *fakeCatalogStore) UpsertDisease(context.Context, catalog.Disease) error        { return nil }
func (f *fakeCatalogStore) GetDisease(context.Context, string) (catalog.Disease, bool, error) {
	return catalog.Disease{}, false, nil
}
func (f *fakeCatalogStore) ListDiseases(context.Context, int, int) ([]catalog.Disease, error) {
	return nil, nil
}
func (f *fakeCatalogStore) LoadDrugTexts(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.drugs))
	for id, d := range f.drugs {
		out[id] = d.IndexText()
	}
	return out, nil
}
func (f *fakeCatalogStore) LoadDiseaseTexts(context.Context) (map[string]string, error) {
	return nil, nil
}
func (f *fakeCatalogStore) AppendSearchLog(context.Context, catalog.SearchLog) error { return nil }
func (f *fakeCatalogStore) Stats(context.Context) (map[string]int, error)           { return nil, nil }

type fakeVectors struct {
	deleted bool
	upserts []vectorstore.Document
}

func (f *fakeVectors) UpsertDocuments(_ context.Context, docs []vectorstore.Document) error {
	f.upserts = append(f.upserts, docs...)
	return nil
}
func (f *fakeVectors) HybridSearch(context.Context, string, []float32, int, fusion.Weights) ([]fusion.Fused, error) {
	return nil, nil
}
func (f *fakeVectors) DenseSearch(context.Context, []float32, int) ([]fusion.Fused, error) {
	return nil, nil
}
func (f *fakeVectors) CollectionInfo(context.Context) (vectorstore.Info, error) {
	return vectorstore.Info{}, nil
}
func (f *fakeVectors) DeleteCollection(context.Context) error {
	f.deleted = true
	f.upserts = nil
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Name() string   { return "fake" }
func (fakeEmbedder) Dimension() int { return 2 }
func (fakeEmbedder) Ping(context.Context) error { return nil }
func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func TestSyncUpsertsDrugsAndBuildsVectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(struct {
			Items []upstreamcatalog.RawDrug `json:"items"`
			More  bool                      `json:"has_more"`
		}{
			Items: []upstreamcatalog.RawDrug{{ID: "d1", Name: "타이레놀", Efficacy: "<b>해열</b>"}},
			More:  false,
		})
	}))
	defer srv.Close()

	cat := &fakeCatalogStore{drugs: map[string]catalog.Drug{}}
	vec := &fakeVectors{}
	p := &Pipeline{
		Upstream: upstreamcatalog.NewClient(srv.URL),
		Catalog:  cat,
		Vectors:  vec,
		Embedder: fakeEmbedder{},
		Chunker:  chunker.SimpleChunker{},
	}

	stats, err := p.Sync(context.Background(), 5, true)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DrugsUpserted)
	assert.True(t, vec.deleted)
	assert.Equal(t, 1, stats.VectorsUpdated)
	assert.Equal(t, "해열", cat.drugs["d1"].Efficacy)
}

func TestRebuildReembedsWithoutFetch(t *testing.T) {
	cat := &fakeCatalogStore{drugs: map[string]catalog.Drug{
		"d1": {ID: "d1", Name: "아스피린", Efficacy: "두통 완화"},
	}}
	vec := &fakeVectors{}
	p := &Pipeline{Catalog: cat, Vectors: vec, Embedder: fakeEmbedder{}, Chunker: chunker.SimpleChunker{}}

	stats, err := p.Rebuild(context.Background())
	require.NoError(t, err)
	assert.True(t, vec.deleted)
	assert.Equal(t, 1, stats.VectorsUpdated)
	assert.Len(t, vec.upserts, 1)
}
