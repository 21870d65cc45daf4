package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalcore/internal/catalog"
	"retrievalcore/internal/fusion"
	"retrievalcore/internal/graph"
	"retrievalcore/internal/memory"
	"retrievalcore/internal/memorystore"
	"retrievalcore/internal/persistence/databases"
	"retrievalcore/internal/retrieve"
	"retrievalcore/internal/vectorstore"
)

type fakeCatalog struct {
	drugs map[string]catalog.Drug
}

func (f *fakeCatalog) UpsertDrug(ctx context.Context, d catalog.Drug) error { f.drugs[d.ID] = d; return nil }
func (f *fakeCatalog) GetDrug(ctx context.Context, id string) (catalog.Drug, bool, error) {
	d, ok := f.drugs[id]
	return d, ok, nil
}
func (f *fakeCatalog) ListDrugs(ctx context.Context, limit, offset int) ([]catalog.Drug, error) {
	out := make([]catalog.Drug, 0, len(f.drugs))
	for _, d := range f.drugs {
		out = append(out, d)
	}
	return out, nil
}
func (f *fakeCatalog) DeleteDrug(ctx context.Context, id string) error { delete(f.drugs, id); return nil }
func (f *fakeCatalog) UpsertDisease(ctx context.Context, d catalog.Disease) error { return nil }
func (f *fakeCatalog) GetDisease(ctx context.Context, id string) (catalog.Disease, bool, error) {
	return catalog.Disease{}, false, nil
}
func (f *fakeCatalog) ListDiseases(ctx context.Context, limit, offset int) ([]catalog.Disease, error) {
	return nil, nil
}
func (f *fakeCatalog) LoadDrugTexts(ctx context.Context) (map[string]string, error) { return nil, nil }
func (f *fakeCatalog) LoadDiseaseTexts(ctx context.Context) (map[string]string, error) {
	return nil, nil
}
func (f *fakeCatalog) AppendSearchLog(ctx context.Context, l catalog.SearchLog) error { return nil }
func (f *fakeCatalog) Stats(ctx context.Context) (map[string]int, error) {
	return map[string]int{"drugs": len(f.drugs)}, nil
}

type fakeVectorStore struct {
	fused []fusion.Fused
}

func (f *fakeVectorStore) UpsertDocuments(ctx context.Context, docs []vectorstore.Document) error {
	return nil
}
func (f *fakeVectorStore) HybridSearch(ctx context.Context, query string, denseQ []float32, topK int, w fusion.Weights) ([]fusion.Fused, error) {
	return f.fused, nil
}
func (f *fakeVectorStore) DenseSearch(ctx context.Context, denseQ []float32, topK int) ([]fusion.Fused, error) {
	return f.fused, nil
}
func (f *fakeVectorStore) CollectionInfo(ctx context.Context) (vectorstore.Info, error) {
	return vectorstore.Info{}, nil
}
func (f *fakeVectorStore) DeleteCollection(ctx context.Context) error { return nil }

type fakeLLM struct{ answer string }

func (f *fakeLLM) GenerateAnswer(ctx context.Context, query, context string) (string, error) {
	return f.answer, nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeCatalog) {
	t.Helper()
	cat := &fakeCatalog{drugs: map[string]catalog.Drug{
		"d1": {ID: "d1", Name: "타이레놀", Manufacturer: "한국얀센", Efficacy: "해열, 진통"},
	}}

	store, err := memorystore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	memSvc := &memory.Service{Store: store}

	graphSvc := &graph.Service{DB: databases.NewMemoryGraph()}

	orch := &retrieve.Orchestrator{
		Drugs:   &fakeVectorStore{fused: []fusion.Fused{{ID: "d1", Similarity: 0.9, DenseScore: 0.9, HybridScore: 0.9}}},
		Catalog: cat,
		LLM:     &fakeLLM{answer: "타이레놀을 추천합니다."},
		Weights: fusion.Weights{Dense: 0.7, Sparse: 0.3, SMax: 30},
	}

	return &Handler{Orchestrator: orch, Catalog: cat, Graph: graphSvc, Memory: memSvc}, cat
}

func TestSearchReturnsResultsWithoutAIResponse(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"두통","top_k":5}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Search(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "타이레놀")
	assert.NotContains(t, rec.Body.String(), "ai_response")
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Search(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatGeneratesAnswerAndRecordsHistory(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"두통이 있어요","use_memory":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Chat(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "타이레놀을 추천합니다.")
	assert.Contains(t, body, `"conversation_turn":1`)
}

func TestChatCacheHitReturnsFromCacheTrue(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()
	h.Memory.CacheSet(ctx, "두통이 있어요", "cached answer", []string{"d1"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"두통이 있어요","use_memory":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Chat(c))
	assert.Contains(t, rec.Body.String(), `"from_cache":true`)
	assert.Contains(t, rec.Body.String(), "cached answer")
}

func TestChatHistoryGetAndDelete(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()
	h.Memory.AppendHistory(ctx, "sess1", memory.ConversationTurn{Role: "user", Content: "hi"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/chat/history/sess1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session")
	c.SetParamValues("sess1")

	require.NoError(t, h.ChatHistoryGet(c))
	assert.Contains(t, rec.Body.String(), "hi")

	delReq := httptest.NewRequest(http.MethodDelete, "/chat/history/sess1", nil)
	delRec := httptest.NewRecorder()
	delC := e.NewContext(delReq, delRec)
	delC.SetParamNames("session")
	delC.SetParamValues("sess1")
	require.NoError(t, h.ChatHistoryDelete(delC))
	assert.Empty(t, h.Memory.History(ctx, "sess1"))
}

func TestGetDrugNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/drugs/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	require.NoError(t, h.GetDrug(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDrugFound(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/drugs/d1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("d1")

	require.NoError(t, h.GetDrug(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "타이레놀")
}

func TestAdminStatsReturnsDrugCount(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.AdminStats(c))
	assert.Contains(t, rec.Body.String(), `"drugs":1`)
}

func TestGraphStatsReturnsVocabulary(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/graph/stats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.GraphStats(c))
	assert.Contains(t, rec.Body.String(), "INTERACTS_WITH")
}
