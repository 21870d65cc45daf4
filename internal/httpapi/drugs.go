package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const defaultDrugListLimit = 20

// ListDrugs implements GET /drugs?limit=&offset=.
func (h *Handler) ListDrugs(c echo.Context) error {
	limit := defaultDrugListLimit
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		offset = v
	}

	drugs, err := h.Catalog.ListDrugs(c.Request().Context(), limit, offset)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": drugs, "meta": map[string]any{"limit": limit, "offset": offset}})
}

// GetDrug implements GET /drugs/{id}.
func (h *Handler) GetDrug(c echo.Context) error {
	id := c.Param("id")
	drug, ok, err := h.Catalog.GetDrug(c.Request().Context(), id)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	if !ok {
		return errorJSON(c, http.StatusNotFound, errDrugNotFound)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": drug})
}

var errDrugNotFound = errString("drug not found")
