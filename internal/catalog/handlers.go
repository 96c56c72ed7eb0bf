package catalog

import (
	"net/http"

	"github.com/noah-isme/pos-gateway/internal/common"
)

// Handler exposes catalog reads to the terminal UI.
type Handler struct {
	Svc *Service
}

func (h *Handler) MenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.MenuItems(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, common.CodeUpstream, "menu unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Svc.Categories(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, common.CodeUpstream, "categories unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cats})
}

func (h *Handler) Tables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.Svc.Tables(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, common.CodeUpstream, "tables unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": tables})
}
