package kitchen

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pos-gateway/internal/common"
)

// Handler serves the kitchen display.
type Handler struct {
	Board *Board
}

// Open lists open tickets for the display, oldest first.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Board.Open(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "kitchen board unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": tickets})
}

// Complete removes a finished ticket from the board.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "order id is required", nil)
		return
	}
	if err := h.Board.Complete(r.Context(), orderID); err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "kitchen board unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"orderId": orderID, "status": "completed"}})
}
