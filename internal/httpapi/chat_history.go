package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ChatHistoryGet implements GET /chat/history/{session}.
func (h *Handler) ChatHistoryGet(c echo.Context) error {
	session := c.Param("session")
	if session == "" || h.Memory == nil {
		return c.JSON(http.StatusOK, map[string]any{"success": true, "session_id": session, "history": []any{}})
	}
	turns := h.Memory.History(c.Request().Context(), session)
	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"session_id": session,
		"history":    turns,
	})
}

// ChatHistoryDelete implements DELETE /chat/history/{session}.
func (h *Handler) ChatHistoryDelete(c echo.Context) error {
	session := c.Param("session")
	if session == "" {
		return errorJSON(c, http.StatusBadRequest, errEmptyQuery)
	}
	if h.Memory != nil {
		if err := h.Memory.DeleteHistory(c.Request().Context(), session); err != nil {
			return errorJSON(c, http.StatusInternalServerError, err)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "session_id": session})
}
