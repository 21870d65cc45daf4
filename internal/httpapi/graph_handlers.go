package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	defaultRelatedLimit = 10
	maxRelatedLimit     = 50
	defaultGraphDepth   = 1
	maxGraphDepth       = 3
	defaultDiseaseLimit = 10
	defaultSymptomLimit = 10
)

// GraphDrugInteractions implements GET /graph/drug/{id}/interactions.
func (h *Handler) GraphDrugInteractions(c echo.Context) error {
	interactions, err := h.Graph.GetDrugInteractions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": interactions})
}

// GraphDrugRelated implements GET /graph/drug/{id}/related?limit=.
func (h *Handler) GraphDrugRelated(c echo.Context) error {
	limit := clamp(atoiOrDefault(c.QueryParam("limit"), defaultRelatedLimit), 1, maxRelatedLimit)
	related, err := h.Graph.GetRelatedDrugs(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": related})
}

// GraphDrugGraph implements GET /graph/drug/{id}/graph?depth=.
func (h *Handler) GraphDrugGraph(c echo.Context) error {
	depth := clamp(atoiOrDefault(c.QueryParam("depth"), defaultGraphDepth), 1, maxGraphDepth)
	view, err := h.Graph.GetDrugGraph(c.Request().Context(), c.Param("id"), depth)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": view})
}

// GraphDiseaseDrugs implements GET /graph/disease/{id}/drugs.
func (h *Handler) GraphDiseaseDrugs(c echo.Context) error {
	limit := clamp(atoiOrDefault(c.QueryParam("limit"), defaultDiseaseLimit), 1, maxRelatedLimit)
	drugs, err := h.Graph.GetDrugsForDisease(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": drugs})
}

// GraphSymptomDrugs implements GET /graph/symptom/{symptom}/drugs.
func (h *Handler) GraphSymptomDrugs(c echo.Context) error {
	limit := clamp(atoiOrDefault(c.QueryParam("limit"), defaultSymptomLimit), 1, maxRelatedLimit)
	drugs, err := h.Graph.GetDrugsForSymptom(c.Request().Context(), c.Param("symptom"), limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": drugs})
}

// graphLabels and graphRelations are the fixed §4.11 vocabulary —
// GraphDB has no generic count query, so /graph/stats reports the
// schema shape rather than live node/edge counts.
var graphLabels = []string{"Drug", "Disease", "Symptom"}
var graphRelations = []string{"INTERACTS_WITH", "TREATS", "RELIEVES", "SIMILAR_TO"}

// GraphStats implements GET /graph/stats.
func (h *Handler) GraphStats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"labels":    graphLabels,
			"relations": graphRelations,
		},
	})
}

// GraphHealth implements GET /graph/health.
func (h *Handler) GraphHealth(c echo.Context) error {
	if h.Graph == nil || h.Graph.DB == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"success": false, "status": "disabled"})
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "status": "ok"})
}
