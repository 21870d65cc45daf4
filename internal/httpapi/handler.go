// Package httpapi exposes the §6 HTTP surface over echo: search, chat
// (with memory-backed caching and history), the drug catalog,
// admin/ingestion operations, and the graph query endpoints. Handlers
// are thin adapters — all domain logic lives in the collaborator
// packages this one wires together.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"retrievalcore/internal/catalog"
	"retrievalcore/internal/graph"
	"retrievalcore/internal/ingestion"
	"retrievalcore/internal/memory"
	"retrievalcore/internal/retrieve"
)

const (
	defaultTopK     = 5
	maxTopK         = 20
	defaultChatTopK = 5
	maxChatTopK     = 10
	maxSyncPages    = 100
)

// Handler wires every collaborator the HTTP surface depends on.
type Handler struct {
	Orchestrator *retrieve.Orchestrator
	Catalog      catalog.Store
	Graph        *graph.Service
	Memory       *memory.Service
	Ingestion    *ingestion.Pipeline
}

// RegisterRoutes mounts every §6 endpoint onto e.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/search", h.Search)
	e.POST("/chat", h.Chat)
	e.GET("/chat/history/:session", h.ChatHistoryGet)
	e.DELETE("/chat/history/:session", h.ChatHistoryDelete)

	e.GET("/drugs", h.ListDrugs)
	e.GET("/drugs/:id", h.GetDrug)

	admin := e.Group("/admin")
	admin.POST("/sync", h.AdminSync)
	admin.POST("/rebuild-vectors", h.AdminRebuildVectors)
	admin.GET("/stats", h.AdminStats)
	admin.GET("/health", h.AdminHealth)

	g := e.Group("/graph")
	g.GET("/drug/:id/interactions", h.GraphDrugInteractions)
	g.GET("/drug/:id/related", h.GraphDrugRelated)
	g.GET("/drug/:id/graph", h.GraphDrugGraph)
	g.GET("/disease/:id/drugs", h.GraphDiseaseDrugs)
	g.GET("/symptom/:symptom/drugs", h.GraphSymptomDrugs)
	g.GET("/stats", h.GraphStats)
	g.GET("/health", h.GraphHealth)
}

func errorJSON(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]any{"success": false, "error": err.Error()})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// apiSearchResult is the wire shape for retrieve.SearchResult.
type apiSearchResult struct {
	DrugID         string   `json:"drug_id"`
	ItemName       string   `json:"item_name"`
	EntpName       string   `json:"entp_name,omitempty"`
	Efficacy       string   `json:"efficacy"`
	UseMethod      string   `json:"use_method,omitempty"`
	CautionInfo    string   `json:"caution_info,omitempty"`
	SideEffects    string   `json:"side_effects,omitempty"`
	Similarity     float64  `json:"similarity"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
	DenseScore     *float64 `json:"dense_score,omitempty"`
	SparseScore    *float64 `json:"sparse_score,omitempty"`
	HybridScore    *float64 `json:"hybrid_score,omitempty"`
}

func toAPIResult(r retrieve.SearchResult) apiSearchResult {
	return apiSearchResult{
		DrugID: r.DrugID, ItemName: r.ItemName, EntpName: r.EntpName,
		Efficacy: r.Efficacy, UseMethod: r.UseMethod, CautionInfo: r.CautionInfo, SideEffects: r.SideEffects,
		Similarity: r.Similarity, RelevanceScore: r.RelevanceScore,
		DenseScore: r.DenseScore, SparseScore: r.SparseScore, HybridScore: r.HybridScore,
	}
}

func toAPIResults(rs []retrieve.SearchResult) []apiSearchResult {
	out := make([]apiSearchResult, len(rs))
	for i, r := range rs {
		out[i] = toAPIResult(r)
	}
	return out
}

// searchRequest is the POST /search body.
type searchRequest struct {
	Query             string `json:"query"`
	TopK              int    `json:"top_k"`
	IncludeAIResponse bool   `json:"include_ai_response"`
	IncludeDiseases   bool   `json:"include_diseases"`
}

// Search implements POST /search.
func (h *Handler) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	if req.Query == "" {
		return errorJSON(c, http.StatusBadRequest, errEmptyQuery)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	topK = clamp(topK, 1, maxTopK)

	start := time.Now()
	ctx := c.Request().Context()

	data := map[string]any{}
	var totalResults int

	if req.IncludeAIResponse {
		resp, err := h.Orchestrator.SearchAndGenerate(ctx, req.Query, topK, req.IncludeDiseases, true)
		if err != nil {
			return errorJSON(c, http.StatusInternalServerError, err)
		}
		data["results"] = toAPIResults(resp.Results)
		if req.IncludeDiseases {
			data["disease_results"] = toAPIResults(resp.DiseaseResults)
		}
		data["ai_response"] = resp.AIResponse
		data["disclaimer"] = resp.Disclaimer
		totalResults = len(resp.Results)
	} else {
		results, err := h.Orchestrator.Search(ctx, req.Query, topK, true, nil)
		if err != nil {
			return errorJSON(c, http.StatusInternalServerError, err)
		}
		data["results"] = toAPIResults(results)
		if req.IncludeDiseases {
			diseases, err := h.Orchestrator.SearchDiseases(ctx, req.Query, 3, true, nil)
			if err == nil {
				data["disease_results"] = toAPIResults(diseases)
			}
		}
		totalResults = len(results)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
		"meta": map[string]any{
			"total_results":    totalResults,
			"response_time_ms": time.Since(start).Milliseconds(),
			"query":            req.Query,
		},
	})
}

// chatRequest is the POST /chat body.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	TopK      int    `json:"top_k"`
	UseMemory bool   `json:"use_memory"`
}

// Chat implements POST /chat: cache lookup, retrieval + LLM generation
// on miss, cache write, and history append — all best-effort around
// the one thing that must succeed, the search itself.
func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	if req.Message == "" {
		return errorJSON(c, http.StatusBadRequest, errEmptyQuery)
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultChatTopK
	}
	topK = clamp(topK, 1, maxChatTopK)

	ctx := c.Request().Context()

	if req.UseMemory && h.Memory != nil {
		if entry, ok := h.Memory.CacheGet(ctx, req.Message); ok {
			turn := h.recordTurn(ctx, req.UseMemory, sessionID, req.Message, entry.Response)
			return c.JSON(http.StatusOK, map[string]any{
				"success":           true,
				"message":           entry.Response,
				"sources":           entry.Sources,
				"disclaimer":        disclaimerText,
				"session_id":        sessionID,
				"from_cache":        true,
				"conversation_turn": turn,
			})
		}
	}

	resp, err := h.Orchestrator.SearchAndGenerate(ctx, req.Message, topK, false, true)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	sources := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		sources = append(sources, r.DrugID)
	}

	if req.UseMemory && h.Memory != nil {
		h.Memory.CacheSet(ctx, req.Message, resp.AIResponse, sources)
	}

	turn := h.recordTurn(ctx, req.UseMemory, sessionID, req.Message, resp.AIResponse)

	return c.JSON(http.StatusOK, map[string]any{
		"success":           true,
		"message":           resp.AIResponse,
		"sources":           sources,
		"disclaimer":        resp.Disclaimer,
		"session_id":        sessionID,
		"from_cache":        false,
		"conversation_turn": turn,
	})
}

// recordTurn appends the user/assistant pair to session history when
// memory is in use and returns the resulting turn number (the pair
// count after appending both turns).
func (h *Handler) recordTurn(ctx context.Context, useMemory bool, sessionID, userMessage, response string) int {
	if !useMemory || h.Memory == nil {
		return 0
	}
	h.Memory.AppendHistory(ctx, sessionID, memory.ConversationTurn{Role: "user", Content: userMessage, CreatedAt: time.Now()})
	h.Memory.AppendHistory(ctx, sessionID, memory.ConversationTurn{Role: "assistant", Content: response, CreatedAt: time.Now()})
	return len(h.Memory.History(ctx, sessionID)) / 2
}

const errEmptyQueryText = "query must not be empty"
const disclaimerText = "이 정보는 참고용이며 전문적인 의료 진단을 대체할 수 없습니다. 증상이 심각한 경우 반드시 전문의와 상담하세요."

var errEmptyQuery = errString(errEmptyQueryText)

type errString string

func (e errString) Error() string { return string(e) }
