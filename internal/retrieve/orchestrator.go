// Package retrieve implements the end-to-end query pipeline (§4.8):
// embed the query once, fetch hybrid candidates, optionally rerank,
// optionally enrich with graph relations, and hand the result to an
// answer-LLM collaborator. Every external leg degrades rather than
// aborts the request — reranking, graph enrichment, and the LLM call
// are all soft dependencies.
package retrieve

import (
	"context"
	"fmt"
	"sort"

	"retrievalcore/internal/catalog"
	"retrievalcore/internal/fusion"
	"retrievalcore/internal/reranker"
	"retrievalcore/internal/vectorstore"
)

// Embedder produces a single dense embedding for a query string.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// LLMAnswerer is the injectable answer-generation collaborator.
type LLMAnswerer interface {
	GenerateAnswer(ctx context.Context, query, context string) (string, error)
}

// GraphEnricher returns a formatted "[약물 관계 정보]" section for the
// given drug IDs, or an empty string when enrichment yields nothing.
type GraphEnricher interface {
	Enrich(ctx context.Context, drugIDs []string) (string, error)
}

const apologyResponse = "AI 응답을 생성할 수 없습니다. 아래 검색 결과를 참고해 주세요."
const disclaimer = "이 정보는 참고용이며 전문적인 의료 진단을 대체할 수 없습니다. 증상이 심각한 경우 반드시 전문의와 상담하세요."

// SearchResult is one ranked catalog record returned to callers.
type SearchResult struct {
	DrugID         string
	ItemName       string
	EntpName       string
	Efficacy       string
	UseMethod      string
	CautionInfo    string
	SideEffects    string
	Similarity     float64
	RelevanceScore *float64
	DenseScore     *float64
	SparseScore    *float64
	HybridScore    *float64
}

// RAGResponse is the search_and_generate response envelope.
type RAGResponse struct {
	Query          string
	Results        []SearchResult
	DiseaseResults []SearchResult
	AIResponse     string
	Disclaimer     string
}

// Orchestrator wires every collaborator search needs.
type Orchestrator struct {
	Drugs    vectorstore.Store
	Diseases vectorstore.Store
	Catalog  catalog.Store
	Embedder Embedder
	Reranker *reranker.Client
	Graph    GraphEnricher
	LLM      LLMAnswerer
	Weights  fusion.Weights
}

// Search implements `search(query, top_k, use_reranking, query_embedding?)`.
func (o *Orchestrator) Search(ctx context.Context, query string, topK int, useReranking bool, queryEmbedding []float32) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	qvec, err := o.resolveEmbedding(ctx, query, queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed query: %w", err)
	}

	rerankAvailable := useReranking && o.Reranker != nil
	factor := 3
	if rerankAvailable {
		factor = 5
	}
	initialK := topK * factor

	fused, err := o.Drugs.HybridSearch(ctx, query, qvec, initialK, o.Weights)
	if err != nil {
		return nil, fmt.Errorf("retrieve: hybrid search: %w", err)
	}

	drugs := make(map[string]catalog.Drug, len(fused))
	for _, f := range fused {
		d, ok, err := o.Catalog.GetDrug(ctx, f.ID)
		if err != nil || !ok {
			continue
		}
		drugs[f.ID] = d
	}

	if rerankAvailable {
		candidates := make([]reranker.Candidate, 0, len(fused))
		for _, f := range fused {
			d, ok := drugs[f.ID]
			if !ok {
				continue
			}
			candidates = append(candidates, reranker.Candidate{ID: f.ID, Text: d.SearchableText(), Score: f.HybridScore})
		}
		ranked := o.Reranker.Rerank(ctx, query, candidates, topK)
		byID := fusedByID(fused)
		out := make([]SearchResult, 0, len(ranked))
		for _, r := range ranked {
			d, ok := drugs[r.ID]
			if !ok {
				continue
			}
			f := byID[r.ID]
			rs := r.RelevanceScore
			out = append(out, toSearchResult(d, f, &rs))
		}
		return out, nil
	}

	if len(fused) > topK {
		fused = fused[:topK]
	}
	out := make([]SearchResult, 0, len(fused))
	for _, f := range fused {
		d, ok := drugs[f.ID]
		if !ok {
			continue
		}
		out = append(out, toSearchResult(d, f, nil))
	}
	return out, nil
}

// SearchDiseases implements `search_diseases` — de-duplicated by disease
// so only the single highest-similarity chunk per disease survives.
func (o *Orchestrator) SearchDiseases(ctx context.Context, query string, topK int, useReranking bool, queryEmbedding []float32) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}
	if o.Diseases == nil {
		return nil, nil
	}
	qvec, err := o.resolveEmbedding(ctx, query, queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed query: %w", err)
	}

	rerankAvailable := useReranking && o.Reranker != nil
	factor := 3
	if rerankAvailable {
		factor = 5
	}
	fused, err := o.Diseases.HybridSearch(ctx, query, qvec, topK*factor, o.Weights)
	if err != nil {
		return nil, fmt.Errorf("retrieve: disease hybrid search: %w", err)
	}
	fused = dedupeHighestSimilarity(fused)

	diseases := make(map[string]catalog.Disease, len(fused))
	for _, f := range fused {
		d, ok, err := o.Catalog.GetDisease(ctx, f.ID)
		if err != nil || !ok {
			continue
		}
		diseases[f.ID] = d
	}

	if rerankAvailable {
		candidates := make([]reranker.Candidate, 0, len(fused))
		for _, f := range fused {
			d, ok := diseases[f.ID]
			if !ok {
				continue
			}
			candidates = append(candidates, reranker.Candidate{ID: f.ID, Text: d.SearchableText(), Score: f.HybridScore})
		}
		ranked := o.Reranker.Rerank(ctx, query, candidates, topK)
		byID := fusedByID(fused)
		out := make([]SearchResult, 0, len(ranked))
		for _, r := range ranked {
			d, ok := diseases[r.ID]
			if !ok {
				continue
			}
			f := byID[r.ID]
			rs := r.RelevanceScore
			out = append(out, diseaseToSearchResult(d, f, &rs))
		}
		return out, nil
	}

	if len(fused) > topK {
		fused = fused[:topK]
	}
	out := make([]SearchResult, 0, len(fused))
	for _, f := range fused {
		d, ok := diseases[f.ID]
		if !ok {
			continue
		}
		out = append(out, diseaseToSearchResult(d, f, nil))
	}
	return out, nil
}

// SearchAndGenerate implements `search_and_generate`. LLM failure is a
// soft failure: the canned apology is returned alongside whatever
// retrieval results were already computed.
func (o *Orchestrator) SearchAndGenerate(ctx context.Context, query string, topK int, includeDiseases, includeGraph bool) (RAGResponse, error) {
	qvec, err := o.resolveEmbedding(ctx, query, nil)
	if err != nil {
		return RAGResponse{}, fmt.Errorf("retrieve: embed query: %w", err)
	}

	results, err := o.Search(ctx, query, topK, true, qvec)
	if err != nil {
		return RAGResponse{}, err
	}

	var diseaseResults []SearchResult
	if includeDiseases {
		diseaseResults, _ = o.SearchDiseases(ctx, query, 3, true, qvec)
	}

	var graphSection string
	if includeGraph && o.Graph != nil {
		ids := make([]string, 0, len(results))
		for _, r := range results {
			ids = append(ids, r.DrugID)
		}
		if s, err := o.Graph.Enrich(ctx, ids); err == nil {
			graphSection = s
		}
	}

	resp := RAGResponse{Query: query, Results: results, DiseaseResults: diseaseResults, Disclaimer: disclaimer}

	if o.LLM == nil {
		resp.AIResponse = apologyResponse
		return resp, nil
	}
	promptCtx := assembleContext(diseaseResults, results, graphSection)
	answer, err := o.LLM.GenerateAnswer(ctx, query, promptCtx)
	if err != nil {
		resp.AIResponse = apologyResponse
		return resp, nil
	}
	resp.AIResponse = answer
	return resp, nil
}

func (o *Orchestrator) resolveEmbedding(ctx context.Context, query string, given []float32) ([]float32, error) {
	if len(given) > 0 {
		return given, nil
	}
	if o.Embedder == nil {
		return nil, nil
	}
	return o.Embedder.EmbedOne(ctx, query)
}

func toSearchResult(d catalog.Drug, f fusion.Fused, relevance *float64) SearchResult {
	dense := f.DenseScore
	sparse := f.SparseScore
	hybrid := f.HybridScore
	return SearchResult{
		DrugID: d.ID, ItemName: d.Name, EntpName: d.Manufacturer,
		Efficacy: d.Efficacy, UseMethod: d.UseMethod, CautionInfo: d.CautionInfo, SideEffects: d.SideEffects,
		Similarity: f.Similarity, RelevanceScore: relevance,
		DenseScore: &dense, SparseScore: &sparse, HybridScore: &hybrid,
	}
}

func diseaseToSearchResult(d catalog.Disease, f fusion.Fused, relevance *float64) SearchResult {
	dense := f.DenseScore
	sparse := f.SparseScore
	hybrid := f.HybridScore
	return SearchResult{
		DrugID: d.ID, ItemName: d.Name,
		Efficacy: d.Treatment, CautionInfo: d.Causes,
		Similarity: f.Similarity, RelevanceScore: relevance,
		DenseScore: &dense, SparseScore: &sparse, HybridScore: &hybrid,
	}
}

func fusedByID(fused []fusion.Fused) map[string]fusion.Fused {
	m := make(map[string]fusion.Fused, len(fused))
	for _, f := range fused {
		m[f.ID] = f
	}
	return m
}

// dedupeHighestSimilarity keeps only the highest-similarity chunk per
// disease, where the disease ID is either metadata["disease_id"] or the
// chunk ID itself when no chunking metadata is present.
func dedupeHighestSimilarity(fused []fusion.Fused) []fusion.Fused {
	best := make(map[string]fusion.Fused)
	for _, f := range fused {
		diseaseID := f.ID
		if f.Metadata != nil {
			if d, ok := f.Metadata["disease_id"]; ok && d != "" {
				diseaseID = d
			}
		}
		if cur, ok := best[diseaseID]; !ok || f.Similarity > cur.Similarity {
			f.ID = diseaseID
			best[diseaseID] = f
		}
	}
	out := make([]fusion.Fused, 0, len(best))
	for _, f := range best {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HybridScore > out[j].HybridScore })
	return out
}

func assembleContext(diseases, drugs []SearchResult, graphSection string) string {
	var ctx string
	if len(diseases) > 0 {
		ctx += "=== 관련 질병 정보 ===\n"
		for _, d := range diseases {
			ctx += fmt.Sprintf("- %s: %s\n", d.ItemName, d.Efficacy)
		}
		ctx += "\n"
	}
	ctx += "=== 추천 의약품 정보 ===\n"
	for _, d := range drugs {
		ctx += fmt.Sprintf("- %s (%s): %s\n", d.ItemName, d.EntpName, d.Efficacy)
	}
	if graphSection != "" {
		ctx += "\n[약물 관계 정보]\n" + graphSection
	}
	return ctx
}
