package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// adminSyncRequest is the POST /admin/sync body.
type adminSyncRequest struct {
	MaxPages     int  `json:"max_pages"`
	BuildVectors bool `json:"build_vectors"`
}

// AdminSync implements POST /admin/sync.
func (h *Handler) AdminSync(c echo.Context) error {
	var req adminSyncRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	maxPages = clamp(maxPages, 1, maxSyncPages)

	stats, err := h.Ingestion.Sync(c.Request().Context(), maxPages, req.BuildVectors)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
			"data":    stats,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": stats})
}

// AdminRebuildVectors implements POST /admin/rebuild-vectors.
func (h *Handler) AdminRebuildVectors(c echo.Context) error {
	stats, err := h.Ingestion.Rebuild(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
			"data":    stats,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": stats})
}

// AdminStats implements GET /admin/stats.
func (h *Handler) AdminStats(c echo.Context) error {
	stats, err := h.Catalog.Stats(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": stats})
}

// AdminHealth implements GET /admin/health.
func (h *Handler) AdminHealth(c echo.Context) error {
	status := "ok"
	code := http.StatusOK
	if _, err := h.Catalog.Stats(c.Request().Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{"success": code == http.StatusOK, "status": status})
}

func atoiOrDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
